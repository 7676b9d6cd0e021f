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

type EmailChangeStore struct {
	q Querier
}

func (s *EmailChangeStore) CreateToken(ctx context.Context, t domain.EmailChangeToken) error {
	const q = `
		INSERT INTO email_change_tokens (user_id, new_email, token_hash, expires_at, created_at, request_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q.Exec(ctx, q, t.UserID, t.NewEmail, t.TokenHash, t.ExpiresAt, t.CreatedAt, t.RequestIP, t.UserAgent)
	if err != nil {
		return fmt.Errorf("create email change token: %w", err)
	}
	return nil
}

func (s *EmailChangeStore) ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (domain.EmailChangeToken, error) {
	const q = `
		UPDATE email_change_tokens
		SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at >= $2
		RETURNING id, user_id, new_email, token_hash, expires_at, created_at, used_at, request_ip, user_agent
	`

	var (
		t          domain.EmailChangeToken
		idUUID     pgtype.UUID
		userIDUUID pgtype.UUID
		usedAt     pgtype.Timestamptz
	)
	err := s.q.QueryRow(ctx, q, tokenHash, now).Scan(
		&idUUID,
		&userIDUUID,
		&t.NewEmail,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.CreatedAt,
		&usedAt,
		&t.RequestIP,
		&t.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EmailChangeToken{}, domain.ErrTokenInvalid
		}
		return domain.EmailChangeToken{}, fmt.Errorf("consume email change token: %w", err)
	}
	t.ID = uuidOrEmpty(idUUID)
	t.UserID = uuidOrEmpty(userIDUUID)
	t.UsedAt = timestamptzPtr(usedAt)
	return t, nil
}

func (s *EmailChangeStore) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const q = `
		SELECT count(*)
		FROM email_change_tokens
		WHERE user_id = $1 AND created_at >= $2
	`
	var n int
	if err := s.q.QueryRow(ctx, q, userID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count email change tokens: %w", err)
	}
	return n, nil
}

func (s *EmailChangeStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM email_change_tokens WHERE expires_at < $1`
	tag, err := s.q.Exec(ctx, q, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired email change tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
