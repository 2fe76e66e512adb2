package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/linkup-social/apiserver/config"
	"github.com/linkup-social/apiserver/internal/services"
	"github.com/linkup-social/apiserver/internal/store"
	"github.com/linkup-social/apiserver/internal/token"
)

const (
	cookieAccessToken  = "accessToken"
	cookieRefreshToken = "refreshToken"

	maxAvatarBytes     = 5 << 20
	maxMultipartMemory = 8 << 20
	formFieldAvatar    = "avatar"
)

// UserHandler provides the authentication and profile endpoints.
type UserHandler struct {
	sessions *services.SessionService
	users    *services.UserService
	tokens   *token.Issuer
	cookies  config.CookieConfig
}

// NewUserHandler constructs a handler with the provided dependencies.
func NewUserHandler(sessions *services.SessionService, users *services.UserService, tokens *token.Issuer, cookies config.CookieConfig) *UserHandler {
	return &UserHandler{
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		cookies:  cookies,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Post("/login", handler.Login)
	r.Post("/register", handler.Register)
	r.Post("/refresh-token", handler.RefreshToken)
	r.Post("/logout", handler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth)
		r.Get("/me", handler.Me)
		r.Get("/find-users", handler.FindUsers)
		r.Put("/me/avatar", handler.UploadAvatar)
		r.Get("/{userID}/avatar", handler.GetAvatar)
	})
}

// RequireAuth validates the access-token cookie, loads the current user
// with a single lookup, and attaches it to the request context. Downstream
// handlers never run on failure.
func (h *UserHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieAccessToken)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "access token is required")
			return
		}

		identity, err := h.tokens.VerifyAccessToken(cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired access token")
			return
		}

		user, err := h.users.GetByID(r.Context(), identity.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "user not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), user)))
	})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and delivers a fresh token pair as cookies.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, pair, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusBadRequest, "user not found")
		case errors.Is(err, services.ErrInvalidPassword):
			writeError(w, http.StatusBadRequest, "invalid password")
		default:
			writeError(w, http.StatusInternalServerError, "failed to log in")
		}
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, "login successful", map[string]any{"user": user})
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates a new account. No tokens are issued.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	if _, err := h.sessions.Register(r.Context(), req.Name, req.Email, req.Password, req.ConfirmPassword); err != nil {
		var validationErr services.ValidationError
		switch {
		case errors.Is(err, services.ErrPasswordMismatch):
			writeError(w, http.StatusBadRequest, "password and rewrite password do not match")
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "email already exists")
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Message)
		default:
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, "sign up successful", nil)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates the token pair. The presented token is read from
// the body, falling back to the refresh-token cookie.
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(cookieRefreshToken); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	user, pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to refresh tokens")
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, "tokens refreshed successfully", map[string]any{"user": user})
}

// Logout clears the stored refresh token and expires both cookies. Either
// a refresh token (body or cookie) or an access token (Authorization
// header or cookie) identifies the session.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	refreshToken := req.RefreshToken
	if refreshToken == "" {
		if cookie, err := r.Cookie(cookieRefreshToken); err == nil {
			refreshToken = cookie.Value
		}
	}

	accessToken := bearerToken(r)
	if accessToken == "" {
		if cookie, err := r.Cookie(cookieAccessToken); err == nil {
			accessToken = cookie.Value
		}
	}

	if refreshToken == "" && accessToken == "" {
		writeError(w, http.StatusBadRequest, "access token or refresh token is required")
		return
	}

	if err := h.sessions.Logout(r.Context(), refreshToken, accessToken); err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, "logout successful", nil)
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, "get information successfully", user)
}

// FindUsers searches users by name, excluding the caller, fixed limit.
func (h *UserHandler) FindUsers(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	users, err := h.users.Search(r.Context(), user.ID, r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve users")
		return
	}
	writeList(w, http.StatusOK, "get users successfully", users, len(users))
}

// UploadAvatar stores the uploaded image and records it on the profile.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.users.AvatarsEnabled() {
		writeError(w, http.StatusServiceUnavailable, "avatar storage is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := avatarFile(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	key, err := h.users.UpdateAvatar(r.Context(), user.ID, header.Filename, contentType, file, header.Size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}
	writeJSON(w, http.StatusOK, "avatar updated successfully", map[string]any{"avatar": key})
}

// GetAvatar streams a user's stored avatar.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !h.users.AvatarsEnabled() {
		writeError(w, http.StatusServiceUnavailable, "avatar storage is not configured")
		return
	}

	reader, key, err := h.users.OpenAvatar(r.Context(), userID)
	if err != nil {
		var notFoundErr services.NotFoundError
		if errors.Is(err, store.ErrNotFound) || errors.As(err, &notFoundErr) {
			writeError(w, http.StatusNotFound, "avatar not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load avatar")
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func (h *UserHandler) setTokenCookies(w http.ResponseWriter, pair token.Pair) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessToken,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(h.tokens.AccessTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cookieRefreshToken,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.tokens.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *UserHandler) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{cookieAccessToken, cookieRefreshToken} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteNoneMode,
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func avatarFile(form *multipart.Form) (multipart.File, *multipart.FileHeader, error) {
	if form == nil || len(form.File[formFieldAvatar]) == 0 {
		return nil, nil, errors.New("avatar file is required")
	}
	header := form.File[formFieldAvatar][0]
	if header.Size > maxAvatarBytes {
		return nil, nil, errors.New("avatar file too large")
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, errors.New("failed to read avatar file")
	}
	return file, header, nil
}
