package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/linkup-social/apiserver/internal/storage"
	"github.com/linkup-social/apiserver/types"
)

const searchLimit = 10

// UserService covers the profile use-cases outside the session lifecycle:
// lookup, name search, and avatar storage.
type UserService struct {
	users   UserRepository
	avatars *storage.Storage
}

// NewUserService constructs the service. avatars may be nil when no object
// storage is configured; avatar operations then report it unavailable.
func NewUserService(users UserRepository, avatars *storage.Storage) *UserService {
	return &UserService{users: users, avatars: avatars}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

// Search returns up to ten users whose name contains name, excluding the
// caller. An empty name returns the first ten other users.
func (s *UserService) Search(ctx context.Context, callerID int64, name string) ([]types.User, error) {
	return s.users.SearchByName(ctx, callerID, strings.TrimSpace(name), searchLimit)
}

// AvatarsEnabled reports whether an object-storage backend is configured.
func (s *UserService) AvatarsEnabled() bool {
	return s.avatars != nil
}

// UpdateAvatar stores the uploaded image and records its key on the user.
// A previously stored object under a different key (the extension changed)
// is removed afterwards.
func (s *UserService) UpdateAvatar(ctx context.Context, userID int64, filename, contentType string, r io.Reader, size int64) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	key := avatarKey(userID, filename)
	if err := s.avatars.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	if err := s.users.SetAvatar(ctx, userID, key); err != nil {
		return "", err
	}

	if user.Avatar != nil && *user.Avatar != "" && *user.Avatar != key {
		// Best effort; a stale object is harmless.
		_ = s.avatars.Delete(ctx, *user.Avatar)
	}
	return key, nil
}

// OpenAvatar streams the stored avatar of the user, returning the object
// key alongside the reader.
func (s *UserService) OpenAvatar(ctx context.Context, userID int64) (io.ReadCloser, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user.Avatar == nil || *user.Avatar == "" {
		return nil, "", notFound("avatar")
	}
	reader, err := s.avatars.Get(ctx, *user.Avatar)
	if err != nil {
		return nil, "", err
	}
	return reader, *user.Avatar, nil
}

func avatarKey(userID int64, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("avatars/%d%s", userID, ext)
}
