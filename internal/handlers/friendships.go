package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linkup-social/apiserver/internal/services"
	"github.com/linkup-social/apiserver/types"
)

// FriendshipHandler provides the friendship endpoints.
type FriendshipHandler struct {
	friendships *services.FriendshipService
}

func NewFriendshipHandler(friendships *services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendships: friendships}
}

// FriendshipRouter registers friendship routes on the given router. All
// routes require authentication.
func FriendshipRouter(r chi.Router, friendships *services.FriendshipService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewFriendshipHandler(friendships)

	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Put("/{friendshipID}", handler.Respond)
}

// List returns every friendship the caller appears in, with both users'
// public fields resolved.
func (h *FriendshipHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	friendships, err := h.friendships.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve friendships")
		return
	}
	writeList(w, http.StatusOK, "get friendships successfully", friendships, len(friendships))
}

type CreateFriendshipRequest struct {
	User1 int64 `json:"user1"`
	User2 int64 `json:"user2"`
}

// Create records a pending friend request from user1 to user2.
func (h *FriendshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateFriendshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id format")
		return
	}
	if req.User1 == 0 || req.User2 == 0 {
		writeError(w, http.StatusBadRequest, "both user1 and user2 are required")
		return
	}

	friendship, err := h.friendships.Create(r.Context(), user.ID, req.User1, req.User2)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			writeError(w, http.StatusForbidden, "you can only send friend requests from your own account")
			return
		}
		h.writeFriendshipError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "friend request sent successfully", friendship)
}

type RespondFriendshipRequest struct {
	Action string `json:"action"`
}

// Respond lets the receiving user accept or reject a pending request.
func (h *FriendshipHandler) Respond(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	friendshipID, err := strconv.ParseInt(chi.URLParam(r, "friendshipID"), 10, 64)
	if err != nil || friendshipID < 1 {
		writeError(w, http.StatusBadRequest, "invalid friendship id")
		return
	}

	var req RespondFriendshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var status types.FriendshipStatus
	switch req.Action {
	case "accept":
		status = types.FriendshipAccepted
	case "reject":
		status = types.FriendshipRejected
	default:
		writeError(w, http.StatusBadRequest, "action must be accept or reject")
		return
	}

	friendship, err := h.friendships.Respond(r.Context(), user.ID, friendshipID, status)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			writeError(w, http.StatusForbidden, "only the receiving user can respond to this request")
			return
		}
		h.writeFriendshipError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "friend request "+string(status), friendship)
}

func (h *FriendshipHandler) writeFriendshipError(w http.ResponseWriter, err error) {
	var validationErr services.ValidationError
	var notFoundErr services.NotFoundError
	var conflictErr services.ConflictError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, conflictErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "failed to process friendship")
	}
}
