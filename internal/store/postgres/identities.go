package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"Ziyarawebserver/internal/domain"
)

type IdentitiesStore struct {
	q Querier
}

// CreateIdentity links a provider account to a user. The (provider, account)
// pair is unique; a duplicate insert reports domain.ErrForbidden because the
// account already belongs to someone.
func (s *IdentitiesStore) CreateIdentity(ctx context.Context, ident domain.AuthIdentity) (domain.AuthIdentity, error) {
	const q = `
		INSERT INTO auth_identities (user_id, provider, provider_account_id, email_at_provider, email_verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	var idUUID pgtype.UUID
	err := s.q.QueryRow(ctx, q,
		ident.UserID,
		ident.Provider,
		ident.ProviderAccountID,
		ident.EmailAtProvider,
		ident.EmailVerified,
	).Scan(&idUUID, &ident.CreatedAt)
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" {
			return domain.AuthIdentity{}, domain.ErrForbidden
		}
		return domain.AuthIdentity{}, fmt.Errorf("create identity: %w", err)
	}
	ident.ID = uuidOrEmpty(idUUID)
	return ident, nil
}

func (s *IdentitiesStore) GetByProviderAccount(ctx context.Context, provider, accountID string) (domain.AuthIdentity, error) {
	const q = `
		SELECT id, user_id, provider, provider_account_id, email_at_provider, email_verified, created_at
		FROM auth_identities
		WHERE provider = $1 AND provider_account_id = $2
	`

	var (
		ident      domain.AuthIdentity
		idUUID     pgtype.UUID
		userIDUUID pgtype.UUID
		verified   pgtype.Bool
	)
	err := s.q.QueryRow(ctx, q, provider, accountID).Scan(
		&idUUID,
		&userIDUUID,
		&ident.Provider,
		&ident.ProviderAccountID,
		&ident.EmailAtProvider,
		&verified,
		&ident.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AuthIdentity{}, domain.ErrNotFound
		}
		return domain.AuthIdentity{}, fmt.Errorf("get identity: %w", err)
	}
	ident.ID = uuidOrEmpty(idUUID)
	ident.UserID = uuidOrEmpty(userIDUUID)
	if verified.Valid {
		v := verified.Bool
		ident.EmailVerified = &v
	}
	return ident, nil
}

func (s *IdentitiesStore) ListByUser(ctx context.Context, userID string) ([]domain.AuthIdentity, error) {
	const q = `
		SELECT id, user_id, provider, provider_account_id, email_at_provider, email_verified, created_at
		FROM auth_identities
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := s.q.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []domain.AuthIdentity
	for rows.Next() {
		var (
			ident      domain.AuthIdentity
			idUUID     pgtype.UUID
			userIDUUID pgtype.UUID
			verified   pgtype.Bool
		)
		if err := rows.Scan(
			&idUUID,
			&userIDUUID,
			&ident.Provider,
			&ident.ProviderAccountID,
			&ident.EmailAtProvider,
			&verified,
			&ident.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		ident.ID = uuidOrEmpty(idUUID)
		ident.UserID = uuidOrEmpty(userIDUUID)
		if verified.Valid {
			v := verified.Bool
			ident.EmailVerified = &v
		}
		out = append(out, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return out, nil
}
