package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"Ziyarawebserver/internal/domain"
)

type RefreshTokenStore struct {
	q Querier
}

func (s *RefreshTokenStore) CreateToken(ctx context.Context, t domain.RefreshToken) error {
	const q = `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at, request_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.q.Exec(ctx, q, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt, t.RequestIP, t.UserAgent)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// ConsumeToken atomically claims the stored record during rotation. Succeeds
// at most once per token and only before expiry.
func (s *RefreshTokenStore) ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (domain.RefreshToken, error) {
	const q = `
		UPDATE refresh_tokens
		SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at >= $2
		RETURNING id, user_id, token_hash, expires_at, created_at, used_at, request_ip, user_agent
	`

	var (
		t          domain.RefreshToken
		idUUID     pgtype.UUID
		userIDUUID pgtype.UUID
		usedAt     pgtype.Timestamptz
	)
	err := s.q.QueryRow(ctx, q, tokenHash, now).Scan(
		&idUUID,
		&userIDUUID,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.CreatedAt,
		&usedAt,
		&t.RequestIP,
		&t.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RefreshToken{}, domain.ErrTokenInvalid
		}
		return domain.RefreshToken{}, fmt.Errorf("consume refresh token: %w", err)
	}
	t.ID = uuidOrEmpty(idUUID)
	t.UserID = uuidOrEmpty(userIDUUID)
	t.UsedAt = timestamptzPtr(usedAt)
	return t, nil
}

// RevokeByHash marks one stored token used and reports whether a live token
// was hit. Revoking an unknown or already revoked token is a no-op.
func (s *RefreshTokenStore) RevokeByHash(ctx context.Context, tokenHash string, when time.Time) (bool, error) {
	const q = `
		UPDATE refresh_tokens
		SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL
	`
	tag, err := s.q.Exec(ctx, q, tokenHash, when)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string, when time.Time) error {
	const q = `
		UPDATE refresh_tokens
		SET used_at = $2
		WHERE user_id = $1 AND used_at IS NULL
	`
	if _, err := s.q.Exec(ctx, q, userID, when); err != nil {
		return fmt.Errorf("revoke refresh tokens for user: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE expires_at < $1`
	tag, err := s.q.Exec(ctx, q, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
