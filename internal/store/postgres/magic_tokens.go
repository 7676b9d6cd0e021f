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

type MagicLinkStore struct {
	q Querier
}

func (s *MagicLinkStore) CreateToken(ctx context.Context, t domain.MagicLinkToken) error {
	const q = `
		INSERT INTO magic_link_tokens (email, token_hash, expires_at, created_at, request_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.q.Exec(ctx, q, t.Email, t.TokenHash, t.ExpiresAt, t.CreatedAt, t.RequestIP, t.UserAgent)
	if err != nil {
		return fmt.Errorf("create magic link token: %w", err)
	}
	return nil
}

// ConsumeToken atomically claims the token: it succeeds at most once per
// token, only for the address it was issued to, and only before expiry. A
// miss for any reason is ErrTokenInvalid.
func (s *MagicLinkStore) ConsumeToken(ctx context.Context, email, tokenHash string, now time.Time) (domain.MagicLinkToken, error) {
	const q = `
		UPDATE magic_link_tokens
		SET used_at = $3
		WHERE email = $1 AND token_hash = $2 AND used_at IS NULL AND expires_at >= $3
		RETURNING id, email, token_hash, expires_at, created_at, used_at, request_ip, user_agent
	`

	var (
		t      domain.MagicLinkToken
		idUUID pgtype.UUID
		usedAt pgtype.Timestamptz
	)
	err := s.q.QueryRow(ctx, q, email, tokenHash, now).Scan(
		&idUUID,
		&t.Email,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.CreatedAt,
		&usedAt,
		&t.RequestIP,
		&t.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MagicLinkToken{}, domain.ErrTokenInvalid
		}
		return domain.MagicLinkToken{}, fmt.Errorf("consume magic link token: %w", err)
	}
	t.ID = uuidOrEmpty(idUUID)
	t.UsedAt = timestamptzPtr(usedAt)
	return t, nil
}

// CountCreatedSince counts every token issued to the address after since,
// used or not. Rate limiting counts issuance, not consumption.
func (s *MagicLinkStore) CountCreatedSince(ctx context.Context, email string, since time.Time) (int, error) {
	const q = `
		SELECT count(*)
		FROM magic_link_tokens
		WHERE email = $1 AND created_at >= $2
	`
	var n int
	if err := s.q.QueryRow(ctx, q, email, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count magic link tokens: %w", err)
	}
	return n, nil
}

func (s *MagicLinkStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM magic_link_tokens WHERE expires_at < $1`
	tag, err := s.q.Exec(ctx, q, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic link tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
