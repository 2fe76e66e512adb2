package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/linkup-social/apiserver/internal/store"
	"github.com/linkup-social/apiserver/types"
)

// FriendshipRepository defines persistence operations for friendships.
type FriendshipRepository interface {
	GetByID(ctx context.Context, id int64) (types.Friendship, error)
	GetByPair(ctx context.Context, userA, userB int64) (types.Friendship, error)
	Create(ctx context.Context, friendship types.Friendship) (types.Friendship, error)
	ListByUser(ctx context.Context, userID int64) ([]types.Friendship, error)
	UpdateStatus(ctx context.Context, id int64, status types.FriendshipStatus) error
}

// EventPublisher delivers domain events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// FriendshipEventChannel is the broker channel friendship events are
// published on.
const FriendshipEventChannel = "friendships"

// FriendshipEvent is the payload published when a friend request is created.
type FriendshipEvent struct {
	FriendshipID int64 `json:"friendshipId"`
	User1        int64 `json:"user1"`
	User2        int64 `json:"user2"`
	RequestedBy  int64 `json:"requestedBy"`
}

// FriendshipService creates, lists, and resolves friendship requests.
type FriendshipService struct {
	friendships FriendshipRepository
	users       UserRepository
	events      EventPublisher
	log         *slog.Logger
}

// NewFriendshipService constructs the service. events may be nil, in which
// case no notifications are published.
func NewFriendshipService(friendships FriendshipRepository, users UserRepository, events EventPublisher, log *slog.Logger) *FriendshipService {
	if log == nil {
		log = slog.Default()
	}
	return &FriendshipService{
		friendships: friendships,
		users:       users,
		events:      events,
		log:         log,
	}
}

// Create records a pending friend request from user1 to user2. The
// requester must be user1: users only originate requests from their own
// account.
func (s *FriendshipService) Create(ctx context.Context, requesterID, user1, user2 int64) (types.Friendship, error) {
	if user1 < 1 || user2 < 1 {
		return types.Friendship{}, invalid("invalid user id")
	}
	if user1 == user2 {
		return types.Friendship{}, invalid("users cannot send friend request to themselves")
	}
	if requesterID != user1 {
		return types.Friendship{}, ErrForbidden
	}

	userOne, err := s.users.GetByID(ctx, user1)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Friendship{}, notFound("user1")
		}
		return types.Friendship{}, err
	}
	userTwo, err := s.users.GetByID(ctx, user2)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Friendship{}, notFound("user2")
		}
		return types.Friendship{}, err
	}

	if existing, err := s.friendships.GetByPair(ctx, user1, user2); err == nil {
		return types.Friendship{}, ConflictError{Status: existing.Status}
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Friendship{}, err
	}

	friendship, err := s.friendships.Create(ctx, types.Friendship{
		User1ID:     user1,
		User2ID:     user2,
		RequestedBy: user1,
		Status:      types.FriendshipPending,
	})
	if err != nil {
		// Two simultaneous requests for the same pair can both pass the
		// existence check; the unique index catches the stored ordering.
		if errors.Is(err, store.ErrDuplicate) {
			return types.Friendship{}, ConflictError{}
		}
		return types.Friendship{}, err
	}

	summaryOne := userOne.Summary()
	summaryTwo := userTwo.Summary()
	friendship.User1 = &summaryOne
	friendship.User2 = &summaryTwo

	s.publishCreated(ctx, friendship)
	return friendship, nil
}

// List returns every friendship the user appears in, on either side of
// the pair.
func (s *FriendshipService) List(ctx context.Context, userID int64) ([]types.Friendship, error) {
	return s.friendships.ListByUser(ctx, userID)
}

// Respond resolves a pending request. Only the receiving user (user2) may
// accept or reject, and only while the request is still pending.
func (s *FriendshipService) Respond(ctx context.Context, userID, friendshipID int64, status types.FriendshipStatus) (types.Friendship, error) {
	if !status.Valid() || status == types.FriendshipPending {
		return types.Friendship{}, invalid("action must be accept or reject")
	}

	friendship, err := s.friendships.GetByID(ctx, friendshipID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Friendship{}, notFound("friendship")
		}
		return types.Friendship{}, err
	}
	if friendship.User2ID != userID {
		return types.Friendship{}, ErrForbidden
	}
	if friendship.Status != types.FriendshipPending {
		return types.Friendship{}, ConflictError{Status: friendship.Status}
	}

	if err := s.friendships.UpdateStatus(ctx, friendshipID, status); err != nil {
		return types.Friendship{}, err
	}
	friendship.Status = status
	return friendship, nil
}

// publishCreated notifies downstream consumers of a new friend request.
// Best-effort: a broker failure is logged, not surfaced to the caller.
func (s *FriendshipService) publishCreated(ctx context.Context, friendship types.Friendship) {
	if s.events == nil {
		return
	}

	data, err := json.Marshal(FriendshipEvent{
		FriendshipID: friendship.ID,
		User1:        friendship.User1ID,
		User2:        friendship.User2ID,
		RequestedBy:  friendship.RequestedBy,
	})
	if err != nil {
		s.log.Error("marshal friendship event", "error", err)
		return
	}

	// The recipient attribute tells notification consumers who to alert
	// without decoding the payload.
	attrs := map[string]string{
		"requestedBy": strconv.FormatInt(friendship.RequestedBy, 10),
		"recipient":   strconv.FormatInt(friendship.OtherUser(friendship.RequestedBy), 10),
	}
	if _, err := s.events.Publish(ctx, FriendshipEventChannel, data, attrs); err != nil {
		s.log.Error("publish friendship event", "friendship_id", friendship.ID, "error", err)
	}
}
