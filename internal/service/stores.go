package service

import (
	"context"
	"time"

	"Ziyarawebserver/internal/domain"
)

// Store interfaces are declared here, where they are consumed. The postgres
// package provides the implementations; tests provide stubs.

type UsersStore interface {
	CreateUser(ctx context.Context, email string, verifiedAt *time.Time, name, surname string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateProfile(ctx context.Context, userID string, upd domain.UserUpdate) (domain.User, error)
	SetEmail(ctx context.Context, userID, email string, verifiedAt *time.Time) error
	MarkEmailVerified(ctx context.Context, userID string, when time.Time) error
	DeleteUser(ctx context.Context, userID string) error

	AddFavorite(ctx context.Context, userID, flightID string) error
	RemoveFavorite(ctx context.Context, userID, flightID string) error
	MergeFavorites(ctx context.Context, userID string, flightIDs []string) error
	AddComparison(ctx context.Context, userID, flightID string) error
	RemoveComparison(ctx context.Context, userID, flightID string) error
	MergeComparisons(ctx context.Context, userID string, flightIDs []string) error
}

type IdentitiesStore interface {
	CreateIdentity(ctx context.Context, ident domain.AuthIdentity) (domain.AuthIdentity, error)
	GetByProviderAccount(ctx context.Context, provider, accountID string) (domain.AuthIdentity, error)
	ListByUser(ctx context.Context, userID string) ([]domain.AuthIdentity, error)
}

type MagicLinkStore interface {
	CreateToken(ctx context.Context, t domain.MagicLinkToken) error
	ConsumeToken(ctx context.Context, email, tokenHash string, now time.Time) (domain.MagicLinkToken, error)
	CountCreatedSince(ctx context.Context, email string, since time.Time) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type RefreshTokenStore interface {
	CreateToken(ctx context.Context, t domain.RefreshToken) error
	ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (domain.RefreshToken, error)
	RevokeByHash(ctx context.Context, tokenHash string, when time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string, when time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type EmailChangeStore interface {
	CreateToken(ctx context.Context, t domain.EmailChangeToken) error
	ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (domain.EmailChangeToken, error)
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type ToursStore interface {
	SearchTours(ctx context.Context, p domain.TourSearchParams) ([]domain.TourView, error)
	GetToursByIDs(ctx context.Context, ids []string) ([]domain.TourView, error)
	Aggregates(ctx context.Context, p domain.TourSearchParams) ([]domain.TourAggregate, error)
	TourTypes(ctx context.Context) ([]domain.LookupValue, error)
	Tariffs(ctx context.Context) ([]domain.LookupValue, error)
	DepartureCities(ctx context.Context) ([]string, error)
}

type OperatorsStore interface {
	ListOperators(ctx context.Context) ([]domain.Operator, error)
	GetOperatorByID(ctx context.Context, id int) (domain.Operator, error)
}

// Stores is the bundle handed to transactional closures.
type Stores struct {
	Users         UsersStore
	Identities    IdentitiesStore
	MagicLinks    MagicLinkStore
	RefreshTokens RefreshTokenStore
	EmailChanges  EmailChangeStore
}

// TxRunner executes fn atomically: every store call inside fn shares one
// transaction, committed iff fn returns nil.
type TxRunner interface {
	InTx(ctx context.Context, fn func(s Stores) error) error
}
