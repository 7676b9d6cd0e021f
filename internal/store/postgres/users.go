package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"Ziyarawebserver/internal/domain"
)

type UsersStore struct {
	q Querier
}

const userColumns = `
	u.id, u.email, u.email_verified_at, u.name, u.surname, u.phone, u.city,
	u.birth_date, u.email_notification, u.sms_notification, u.created_at, u.updated_at,
	coalesce((SELECT array_agg(f.flight_id::text ORDER BY f.created_at) FROM user_favorites f WHERE f.user_id = u.id), '{}'),
	coalesce((SELECT array_agg(c.flight_id::text ORDER BY c.created_at) FROM user_comparisons c WHERE c.user_id = u.id), '{}')
`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u          domain.User
		idUUID     pgtype.UUID
		emailText  pgtype.Text
		verifiedAt pgtype.Timestamptz
		birthDate  pgtype.Date
		favorites  pgtype.FlatArray[string]
		compared   pgtype.FlatArray[string]
	)
	err := row.Scan(
		&idUUID,
		&emailText,
		&verifiedAt,
		&u.Name,
		&u.Surname,
		&u.Phone,
		&u.City,
		&birthDate,
		&u.EmailNotification,
		&u.SMSNotification,
		&u.CreatedAt,
		&u.UpdatedAt,
		&favorites,
		&compared,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.Email = textOrEmpty(emailText)
	u.EmailVerifiedAt = timestamptzPtr(verifiedAt)
	u.BirthDate = datePtr(birthDate)
	u.FavoriteTourIDs = textArrayOrEmpty(favorites)
	u.ComparisonTourIDs = textArrayOrEmpty(compared)
	return u, nil
}

// CreateUser inserts a user with the given email (may be empty) and optional
// verification time.
func (s *UsersStore) CreateUser(ctx context.Context, email string, verifiedAt *time.Time, name, surname string) (domain.User, error) {
	const q = `
		INSERT INTO users AS u (email, email_verified_at, name, surname)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	u, err := scanUser(s.q.QueryRow(ctx, q, nullIfEmpty(email), verifiedAt, name, surname))
	if err != nil {
		return domain.User{}, mapUserWriteError("create user", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	u, err := scanUser(s.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users u WHERE u.email = $1`

	u, err := scanUser(s.q.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpdateProfile applies the non-nil fields of upd. A nil field keeps its
// current value.
func (s *UsersStore) UpdateProfile(ctx context.Context, userID string, upd domain.UserUpdate) (domain.User, error) {
	const q = `
		UPDATE users u
		SET name = coalesce($2, name),
			surname = coalesce($3, surname),
			phone = coalesce($4, phone),
			city = coalesce($5, city),
			birth_date = coalesce($6, birth_date),
			email_notification = coalesce($7, email_notification),
			sms_notification = coalesce($8, sms_notification),
			updated_at = now()
		WHERE u.id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.q.QueryRow(ctx, q, userID,
		upd.Name, upd.Surname, upd.Phone, upd.City, upd.BirthDate,
		upd.EmailNotification, upd.SMSNotification,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// SetEmail replaces the user's email and verification time.
func (s *UsersStore) SetEmail(ctx context.Context, userID, email string, verifiedAt *time.Time) error {
	const q = `
		UPDATE users
		SET email = $2, email_verified_at = $3, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.q.Exec(ctx, q, userID, nullIfEmpty(email), verifiedAt)
	if err != nil {
		return mapUserWriteError("set email", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) MarkEmailVerified(ctx context.Context, userID string, when time.Time) error {
	const q = `
		UPDATE users
		SET email_verified_at = $2, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.q.Exec(ctx, q, userID, when)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) DeleteUser(ctx context.Context, userID string) error {
	const q = `DELETE FROM users WHERE id = $1`
	tag, err := s.q.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Favorites and comparisons share the same shape: a (user, flight) set where
// re-adding and re-removing are no-ops.

func (s *UsersStore) AddFavorite(ctx context.Context, userID, flightID string) error {
	return s.addListEntry(ctx, "user_favorites", userID, flightID)
}

func (s *UsersStore) RemoveFavorite(ctx context.Context, userID, flightID string) error {
	return s.removeListEntry(ctx, "user_favorites", userID, flightID)
}

func (s *UsersStore) MergeFavorites(ctx context.Context, userID string, flightIDs []string) error {
	return s.mergeListEntries(ctx, "user_favorites", userID, flightIDs)
}

func (s *UsersStore) AddComparison(ctx context.Context, userID, flightID string) error {
	return s.addListEntry(ctx, "user_comparisons", userID, flightID)
}

func (s *UsersStore) RemoveComparison(ctx context.Context, userID, flightID string) error {
	return s.removeListEntry(ctx, "user_comparisons", userID, flightID)
}

func (s *UsersStore) MergeComparisons(ctx context.Context, userID string, flightIDs []string) error {
	return s.mergeListEntries(ctx, "user_comparisons", userID, flightIDs)
}

func (s *UsersStore) addListEntry(ctx context.Context, table, userID, flightID string) error {
	q := fmt.Sprintf(`
		INSERT INTO %s (user_id, flight_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, table)
	if _, err := s.q.Exec(ctx, q, userID, flightID); err != nil {
		return mapListWriteError(table, err)
	}
	return nil
}

func (s *UsersStore) removeListEntry(ctx context.Context, table, userID, flightID string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND flight_id = $2`, table)
	if _, err := s.q.Exec(ctx, q, userID, flightID); err != nil {
		return fmt.Errorf("remove from %s: %w", table, err)
	}
	return nil
}

func (s *UsersStore) mergeListEntries(ctx context.Context, table, userID string, flightIDs []string) error {
	if len(flightIDs) == 0 {
		return nil
	}
	q := fmt.Sprintf(`
		INSERT INTO %s (user_id, flight_id)
		SELECT $1, f.id FROM flights f WHERE f.id = ANY($2::uuid[])
		ON CONFLICT DO NOTHING
	`, table)
	if _, err := s.q.Exec(ctx, q, userID, flightIDs); err != nil {
		return fmt.Errorf("merge into %s: %w", table, err)
	}
	return nil
}

func mapUserWriteError(op string, err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" && pgerr.ConstraintName == "users_email_uq" {
		return domain.ErrEmailTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mapListWriteError(table string, err error) error {
	var pgerr *pgconn.PgError
	// unknown flight id surfaces as an FK violation
	if errors.As(err, &pgerr) && pgerr.Code == "23503" {
		return domain.ErrNotFound
	}
	return fmt.Errorf("add to %s: %w", table, err)
}
