package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/linkup-social/apiserver/types"
)

// FriendshipRepository handles persistence for friendships.
type FriendshipRepository struct {
	db *sql.DB
}

func NewFriendshipRepository(db *sql.DB) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

func (r *FriendshipRepository) GetByID(ctx context.Context, id int64) (types.Friendship, error) {
	const query = `
		SELECT id, user1_id, user2_id, requested_by, status, created_at, updated_at
		FROM friendships
		WHERE id = $1`
	return r.scanFriendship(r.db.QueryRowContext(ctx, query, id))
}

// GetByPair looks up the friendship between the two users regardless of
// the order the pair was stored in.
func (r *FriendshipRepository) GetByPair(ctx context.Context, userA, userB int64) (types.Friendship, error) {
	const query = `
		SELECT id, user1_id, user2_id, requested_by, status, created_at, updated_at
		FROM friendships
		WHERE (user1_id = $1 AND user2_id = $2)
		   OR (user1_id = $2 AND user2_id = $1)`
	return r.scanFriendship(r.db.QueryRowContext(ctx, query, userA, userB))
}

func (r *FriendshipRepository) Create(ctx context.Context, friendship types.Friendship) (types.Friendship, error) {
	now := time.Now()
	friendship.CreatedAt = now
	friendship.UpdatedAt = now

	const query = `
		INSERT INTO friendships (user1_id, user2_id, requested_by, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		friendship.User1ID,
		friendship.User2ID,
		friendship.RequestedBy,
		friendship.Status,
		friendship.CreatedAt,
		friendship.UpdatedAt,
	).Scan(&friendship.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Friendship{}, ErrDuplicate
		}
		return types.Friendship{}, err
	}
	return friendship, nil
}

// ListByUser returns every friendship the user appears in, on either side
// of the pair, with both users' public fields resolved.
func (r *FriendshipRepository) ListByUser(ctx context.Context, userID int64) ([]types.Friendship, error) {
	const query = `
		SELECT f.id, f.user1_id, f.user2_id, f.requested_by, f.status, f.created_at, f.updated_at,
		       u1.name, u1.email, u2.name, u2.email
		FROM friendships f
		JOIN users u1 ON u1.id = f.user1_id
		JOIN users u2 ON u2.id = f.user2_id
		WHERE f.user1_id = $1 OR f.user2_id = $1
		ORDER BY f.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friendships := make([]types.Friendship, 0)
	for rows.Next() {
		var friendship types.Friendship
		var user1, user2 types.UserSummary
		if err := rows.Scan(
			&friendship.ID,
			&friendship.User1ID,
			&friendship.User2ID,
			&friendship.RequestedBy,
			&friendship.Status,
			&friendship.CreatedAt,
			&friendship.UpdatedAt,
			&user1.Name,
			&user1.Email,
			&user2.Name,
			&user2.Email,
		); err != nil {
			return nil, err
		}
		user1.ID = friendship.User1ID
		user2.ID = friendship.User2ID
		friendship.User1 = &user1
		friendship.User2 = &user2
		friendships = append(friendships, friendship)
	}
	return friendships, rows.Err()
}

func (r *FriendshipRepository) UpdateStatus(ctx context.Context, id int64, status types.FriendshipStatus) error {
	const query = `
		UPDATE friendships
		SET status = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FriendshipRepository) scanFriendship(row rowScanner) (types.Friendship, error) {
	var friendship types.Friendship
	err := row.Scan(
		&friendship.ID,
		&friendship.User1ID,
		&friendship.User2ID,
		&friendship.RequestedBy,
		&friendship.Status,
		&friendship.CreatedAt,
		&friendship.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Friendship{}, ErrNotFound
		}
		return types.Friendship{}, err
	}
	return friendship, nil
}
