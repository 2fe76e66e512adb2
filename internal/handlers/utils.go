package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/linkup-social/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// Response is the envelope every endpoint answers with.
type Response struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func userFromContext(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok {
		return types.User{}, errors.New("no user in context")
	}
	return user, nil
}

func contextWithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	resp.Status = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	writeResponse(w, status, Response{Message: message, Data: data})
}

// writeList attaches a count alongside the data payload.
func writeList(w http.ResponseWriter, status int, message string, data any, count int) {
	writeResponse(w, status, Response{Message: message, Data: data, Count: &count})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeResponse(w, status, Response{Message: message, Error: message})
}
