package types

import "time"

// FriendshipStatus is the state of a friendship request.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s FriendshipStatus) Valid() bool {
	switch s {
	case FriendshipPending, FriendshipAccepted, FriendshipRejected:
		return true
	}
	return false
}

// Friendship links two users. The pair is unordered for uniqueness
// purposes: at most one record exists for (A, B) regardless of which
// user is stored first.
type Friendship struct {
	ID int64 `json:"id" db:"id"`

	// User1ID is the originating user; always equals RequestedBy at
	// creation time.
	User1ID int64 `json:"user1" db:"user1_id"`

	// User2ID is the receiving user.
	User2ID int64 `json:"user2" db:"user2_id"`

	// RequestedBy is the user who created the request.
	RequestedBy int64 `json:"requestedBy" db:"requested_by"`

	Status FriendshipStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// User1 and User2 carry the public fields of the referenced users
	// when the record is read with its pair resolved.
	User1 *UserSummary `json:"user1Details,omitempty" db:"-"`
	User2 *UserSummary `json:"user2Details,omitempty" db:"-"`
}

// OtherUser returns the id on the opposite side of the pair from userID.
func (f Friendship) OtherUser(userID int64) int64 {
	if f.User1ID == userID {
		return f.User2ID
	}
	return f.User1ID
}
