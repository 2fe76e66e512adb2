package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/linkup-social/apiserver/internal/store"
	"github.com/linkup-social/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]types.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
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

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
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
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) SetRefreshToken(ctx context.Context, id int64, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.RefreshToken = token
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) SetAvatar(ctx context.Context, id int64, key string) error {
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

func (r *fakeUserRepo) SearchByName(ctx context.Context, excludeID int64, name string, limit int) ([]types.User, error) {
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

// fakeFriendshipRepo is an in-memory FriendshipRepository.
type fakeFriendshipRepo struct {
	mu          sync.Mutex
	nextID      int64
	friendships map[int64]types.Friendship
}

func newFakeFriendshipRepo() *fakeFriendshipRepo {
	return &fakeFriendshipRepo{friendships: make(map[int64]types.Friendship)}
}

func (r *fakeFriendshipRepo) GetByID(ctx context.Context, id int64) (types.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	friendship, ok := r.friendships[id]
	if !ok {
		return types.Friendship{}, store.ErrNotFound
	}
	return friendship, nil
}

func (r *fakeFriendshipRepo) GetByPair(ctx context.Context, userA, userB int64) (types.Friendship, error) {
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

func (r *fakeFriendshipRepo) Create(ctx context.Context, friendship types.Friendship) (types.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.friendships {
		if existing.User1ID == friendship.User1ID && existing.User2ID == friendship.User2ID {
			return types.Friendship{}, store.ErrDuplicate
		}
	}
	r.nextID++
	friendship.ID = r.nextID
	now := time.Now()
	friendship.CreatedAt = now
	friendship.UpdatedAt = now
	r.friendships[friendship.ID] = friendship
	return friendship, nil
}

func (r *fakeFriendshipRepo) ListByUser(ctx context.Context, userID int64) ([]types.Friendship, error) {
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

func (r *fakeFriendshipRepo) UpdateStatus(ctx context.Context, id int64, status types.FriendshipStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	friendship, ok := r.friendships[id]
	if !ok {
		return store.ErrNotFound
	}
	friendship.Status = status
	friendship.UpdatedAt = time.Now()
	r.friendships[id] = friendship
	return nil
}

// capturePublisher records published events.
type capturePublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	attrs    []map[string]string
}

func (p *capturePublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, data)
	p.attrs = append(p.attrs, attrs)
	return "msg-1", nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}
