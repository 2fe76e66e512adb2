package services

import (
	"context"
	"errors"

	"github.com/linkup-social/apiserver/internal/store"
	"github.com/linkup-social/apiserver/internal/token"
	"github.com/linkup-social/apiserver/internal/validate"
	"github.com/linkup-social/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetRefreshToken(ctx context.Context, id int64, token *string) error
	SetAvatar(ctx context.Context, id int64, key string) error
	SearchByName(ctx context.Context, excludeID int64, name string, limit int) ([]types.User, error)
}

const defaultUserRole = "user"

// SessionService implements the session-token lifecycle: registration,
// login, refresh-token rotation, and logout. A user has at most one live
// session; every login or refresh overwrites the stored refresh token,
// invalidating any previously issued one.
type SessionService struct {
	users  UserRepository
	tokens *token.Issuer
}

func NewSessionService(users UserRepository, tokens *token.Issuer) *SessionService {
	return &SessionService{users: users, tokens: tokens}
}

// Register creates an account. No tokens are issued; the user logs in
// afterwards.
func (s *SessionService) Register(ctx context.Context, name, email, password, confirmPassword string) (types.User, error) {
	if password != confirmPassword {
		return types.User{}, ErrPasswordMismatch
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return types.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	if err := validate.Email(email); err != nil {
		return types.User{}, ValidationError{Message: err.Error()}
	}
	if err := validate.Password(password); err != nil {
		return types.User{}, ValidationError{Message: err.Error()}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		Role:         defaultUserRole,
		PasswordHash: string(hashed),
	})
	if err != nil {
		// Concurrent registration backstop: the unique email index wins.
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, err
	}
	return user, nil
}

// Login verifies credentials, issues a fresh token pair, and persists the
// new refresh token, replacing any previous session.
func (s *SessionService) Login(ctx context.Context, email, password string) (types.User, token.Pair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, token.Pair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, token.Pair{}, ErrInvalidPassword
	}

	pair, err := s.tokens.IssuePair(token.IdentityOf(user))
	if err != nil {
		return types.User{}, token.Pair{}, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return types.User{}, token.Pair{}, err
	}
	return user, pair, nil
}

// Refresh rotates the token pair. The presented refresh token must verify
// AND exactly match the stored value; a token superseded by a later login
// or refresh is rejected even if its signature is still valid.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (types.User, token.Pair, error) {
	identity, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return types.User{}, token.Pair{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, token.Pair{}, ErrInvalidRefreshToken
		}
		return types.User{}, token.Pair{}, err
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return types.User{}, token.Pair{}, ErrInvalidRefreshToken
	}

	pair, err := s.tokens.IssuePair(token.IdentityOf(user))
	if err != nil {
		return types.User{}, token.Pair{}, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return types.User{}, token.Pair{}, err
	}
	return user, pair, nil
}

// Logout clears the stored refresh token. Either token kind identifies the
// session; the refresh token takes precedence when both are supplied.
func (s *SessionService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	var identity token.Identity
	var err error

	switch {
	case refreshToken != "":
		identity, err = s.tokens.VerifyRefreshToken(refreshToken)
	case accessToken != "":
		identity, err = s.tokens.VerifyAccessToken(accessToken)
	default:
		return invalid("access token or refresh token is required")
	}
	if err != nil {
		return err
	}

	if err := s.users.SetRefreshToken(ctx, identity.ID, nil); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}
