package domain

import "time"

// User is created on first successful auth (oauth, magic link, dev login).
// Email is empty until a provider or a magic link supplies one; it is unique
// across users when set.
type User struct {
	ID              string
	Email           string
	EmailVerifiedAt *time.Time

	Name      string
	Surname   string
	Phone     string
	City      string
	BirthDate *time.Time

	EmailNotification bool
	SMSNotification   bool

	FavoriteTourIDs   []string
	ComparisonTourIDs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserUpdate is a partial profile update. Nil fields keep their current value;
// there is no way to clear a field through this path.
type UserUpdate struct {
	Name              *string
	Surname           *string
	Phone             *string
	City              *string
	BirthDate         *time.Time
	EmailNotification *bool
	SMSNotification   *bool
}

// AuthIdentity links one (provider, provider account) pair to exactly one user.
// The pair is unique; rows are immutable after creation.
type AuthIdentity struct {
	ID                string
	UserID            string
	Provider          string
	ProviderAccountID string
	EmailAtProvider   string
	EmailVerified     *bool
	CreatedAt         time.Time
}

// MagicLinkToken is a single-use emailed login secret. Only the HMAC of the
// raw token is stored. Usable iff UsedAt is nil and ExpiresAt >= now.
type MagicLinkToken struct {
	ID        string
	Email     string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UsedAt    *time.Time
	RequestIP string
	UserAgent string
}

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UsedAt    *time.Time
	RequestIP string
	UserAgent string
}

type EmailChangeToken struct {
	ID        string
	UserID    string
	NewEmail  string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UsedAt    *time.Time
	RequestIP string
	UserAgent string
}

type TokensPair struct {
	Access  string
	Refresh string
}

// Required actions returned to the client after an auth exchange.
const (
	ActionAddEmail    = "add_email"
	ActionVerifyEmail = "verify_email"
)

// ProviderProfile is what an OAuth provider attests about its account after
// the presented token has been validated.
type ProviderProfile struct {
	Provider      string
	AccountID     string
	Email         string
	EmailVerified *bool
	FullName      string
}

// AuthResult is the outcome of any login flow that issues tokens.
type AuthResult struct {
	User              User
	Tokens            TokensPair
	Provider          string
	ProviderAccountID string
	RequiredActions   []string
	SuggestedEmail    string
}

// Operator is the live operator record, as opposed to the snapshot embedded
// in tours.
type Operator struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Logo            string   `json:"logo"`
	FoundationYear  int      `json:"foundation_year"`
	Rating          *float64 `json:"rating"`
	ReviewsCount    *int     `json:"reviews_count"`
	Specialisations []string `json:"specialisations"`
	Features        []string `json:"features"`
	Certificates    []string `json:"certificates"`
	Verified        bool     `json:"verified"`
}
