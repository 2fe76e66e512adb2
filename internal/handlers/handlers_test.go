package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linkup-social/apiserver/config"
	"github.com/linkup-social/apiserver/internal/services"
	"github.com/linkup-social/apiserver/internal/store"
	"github.com/linkup-social/apiserver/internal/token"
	"github.com/linkup-social/apiserver/types"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]types.User)}
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) SetRefreshToken(ctx context.Context, id int64, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.RefreshToken = token
	r.users[id] = user
	return nil
}

func (r *memUserRepo) SetAvatar(ctx context.Context, id int64, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Avatar = &key
	r.users[id] = user
	return nil
}

func (r *memUserRepo) SearchByName(ctx context.Context, excludeID int64, name string, limit int) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]types.User, 0, limit)
	for id := int64(1); id <= r.nextID && len(matches) < limit; id++ {
		user, ok := r.users[id]
		if !ok || id == excludeID {
			continue
		}
		if name == "" || strings.Contains(strings.ToLower(user.Name), strings.ToLower(name)) {
			matches = append(matches, user)
		}
	}
	return matches, nil
}

type memFriendshipRepo struct {
	mu          sync.Mutex
	nextID      int64
	friendships map[int64]types.Friendship
}

func newMemFriendshipRepo() *memFriendshipRepo {
	return &memFriendshipRepo{friendships: make(map[int64]types.Friendship)}
}

func (r *memFriendshipRepo) GetByID(ctx context.Context, id int64) (types.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	friendship, ok := r.friendships[id]
	if !ok {
		return types.Friendship{}, store.ErrNotFound
	}
	return friendship, nil
}

func (r *memFriendshipRepo) GetByPair(ctx context.Context, userA, userB int64) (types.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, friendship := range r.friendships {
		if (friendship.User1ID == userA && friendship.User2ID == userB) ||
			(friendship.User1ID == userB && friendship.User2ID == userA) {
			return friendship, nil
		}
	}
	return types.Friendship{}, store.ErrNotFound
}

func (r *memFriendshipRepo) Create(ctx context.Context, friendship types.Friendship) (types.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.friendships {
		if existing.User1ID == friendship.User1ID && existing.User2ID == friendship.User2ID {
			return types.Friendship{}, store.ErrDuplicate
		}
	}
	r.nextID++
	friendship.ID = r.nextID
	friendship.CreatedAt = time.Now()
	friendship.UpdatedAt = friendship.CreatedAt
	r.friendships[friendship.ID] = friendship
	return friendship, nil
}

func (r *memFriendshipRepo) ListByUser(ctx context.Context, userID int64) ([]types.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]types.Friendship, 0)
	for id := int64(1); id <= r.nextID; id++ {
		friendship, ok := r.friendships[id]
		if !ok {
			continue
		}
		if friendship.User1ID == userID || friendship.User2ID == userID {
			matches = append(matches, friendship)
		}
	}
	return matches, nil
}

func (r *memFriendshipRepo) UpdateStatus(ctx context.Context, id int64, status types.FriendshipStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	friendship, ok := r.friendships[id]
	if !ok {
		return store.ErrNotFound
	}
	friendship.Status = status
	r.friendships[id] = friendship
	return nil
}

// testAPI wires real services over in-memory repositories behind the same
// router layout the server uses.
type testAPI struct {
	router      chi.Router
	users       *memUserRepo
	friendships *memFriendshipRepo
	sessions    *services.SessionService
	tokens      *token.Issuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	issuer, err := token.NewIssuer("access-secret", "refresh-secret", 0, 0)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	userRepo := newMemUserRepo()
	friendshipRepo := newMemFriendshipRepo()

	sessionService := services.NewSessionService(userRepo, issuer)
	userService := services.NewUserService(userRepo, nil)
	friendshipService := services.NewFriendshipService(friendshipRepo, userRepo, nil, nil)

	userHandler := NewUserHandler(sessionService, userService, issuer, config.CookieConfig{Secure: true})

	router := chi.NewRouter()
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userHandler)
	})
	router.Route("/friendships", func(r chi.Router) {
		FriendshipRouter(r, friendshipService, userHandler.RequireAuth)
	})

	return &testAPI{
		router:      router,
		users:       userRepo,
		friendships: friendshipRepo,
		sessions:    sessionService,
		tokens:      issuer,
	}
}

func (a *testAPI) do(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API.
func (a *testAPI) register(t *testing.T, name, email, password string) types.User {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/users/register", map[string]string{
		"name":            name,
		"email":           email,
		"password":        password,
		"confirmPassword": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", email, rec.Code, rec.Body.String())
	}

	user, err := a.users.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("lookup registered user: %v", err)
	}
	return user
}

// login performs a login and returns the token cookies the server set.
func (a *testAPI) login(t *testing.T, email, password string) (access, refresh *http.Cookie) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/users/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, body = %s", email, rec.Code, rec.Body.String())
	}

	for _, cookie := range rec.Result().Cookies() {
		switch cookie.Name {
		case cookieAccessToken:
			access = cookie
		case cookieRefreshToken:
			refresh = cookie
		}
	}
	if access == nil || refresh == nil {
		t.Fatal("login did not set both token cookies")
	}
	return access, refresh
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}
