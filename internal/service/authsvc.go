package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Ziyarawebserver/internal/auth"
	"Ziyarawebserver/internal/domain"
)

type ProviderValidator interface {
	Validate(ctx context.Context, provider, accessToken, idToken string) (domain.ProviderProfile, error)
}

type TokenIssuer interface {
	IssueAccess(userID string) (string, error)
	IssueRefresh(userID string) (string, error)
	VerifyRefresh(raw string) (string, error)
}

type MagicLinkMailer interface {
	SendMagicLink(toEmail, rawToken string) error
}

// RequestMeta is recorded with every issued single-use token.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// AuthService owns every login flow: oauth exchange, magic links, refresh
// rotation, logout and the dev backdoor.
type AuthService struct {
	Validator ProviderValidator
	Tokens    TokenIssuer
	Peppers   auth.Peppers
	Mailer    MagicLinkMailer

	Store Stores
	Tx    TxRunner

	MagicLinkTTL         time.Duration
	MagicLinkRatePerHour int
	RefreshTTL           time.Duration

	DevLoginEnabled bool

	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// OAuthExchange validates a provider token and logs the account in, creating
// the user and the identity link on first contact.
func (s *AuthService) OAuthExchange(ctx context.Context, provider, accessToken, idToken string, meta RequestMeta) (domain.AuthResult, error) {
	profile, err := s.Validator.Validate(ctx, provider, accessToken, idToken)
	if err != nil {
		return domain.AuthResult{}, err
	}

	var result domain.AuthResult
	err = s.Tx.InTx(ctx, func(st Stores) error {
		user, err := s.resolveIdentity(ctx, st, profile)
		if err != nil {
			return err
		}
		pair, err := s.issueTokens(ctx, st, user.ID, meta)
		if err != nil {
			return err
		}
		result = domain.AuthResult{
			User:              user,
			Tokens:            pair,
			Provider:          profile.Provider,
			ProviderAccountID: profile.AccountID,
		}
		result.RequiredActions, result.SuggestedEmail = requiredActions(user, profile.Email)
		return nil
	})
	if err != nil {
		return domain.AuthResult{}, err
	}
	return result, nil
}

func (s *AuthService) resolveIdentity(ctx context.Context, st Stores, profile domain.ProviderProfile) (domain.User, error) {
	ident, err := st.Identities.GetByProviderAccount(ctx, profile.Provider, profile.AccountID)
	if err == nil {
		user, err := st.Users.GetUserByID(ctx, ident.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			// integrity fault, not a client error
			return domain.User{}, fmt.Errorf("identity %s references missing user %s", ident.ID, ident.UserID)
		}
		if err != nil {
			return domain.User{}, err
		}
		return s.syncAttestedEmail(ctx, st, user, profile)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	user, err := s.findOrCreateForProfile(ctx, st, profile)
	if err != nil {
		return domain.User{}, err
	}

	_, err = st.Identities.CreateIdentity(ctx, domain.AuthIdentity{
		UserID:            user.ID,
		Provider:          profile.Provider,
		ProviderAccountID: profile.AccountID,
		EmailAtProvider:   profile.Email,
		EmailVerified:     profile.EmailVerified,
	})
	if err != nil {
		return domain.User{}, err
	}
	return s.syncAttestedEmail(ctx, st, user, profile)
}

// syncAttestedEmail adopts the provider's email when the provider vouches for
// it: a differing address overwrites the stored one, a matching unverified
// address becomes verified.
func (s *AuthService) syncAttestedEmail(ctx context.Context, st Stores, user domain.User, profile domain.ProviderProfile) (domain.User, error) {
	attested := profile.EmailVerified != nil && *profile.EmailVerified
	if !attested || profile.Email == "" {
		return user, nil
	}

	now := s.now()
	switch {
	case user.Email != profile.Email:
		if err := st.Users.SetEmail(ctx, user.ID, profile.Email, &now); err != nil {
			return domain.User{}, err
		}
		user.Email = profile.Email
		user.EmailVerifiedAt = &now
	case user.EmailVerifiedAt == nil:
		if err := st.Users.MarkEmailVerified(ctx, user.ID, now); err != nil {
			return domain.User{}, err
		}
		user.EmailVerifiedAt = &now
	}
	return user, nil
}

func (s *AuthService) findOrCreateForProfile(ctx context.Context, st Stores, profile domain.ProviderProfile) (domain.User, error) {
	attested := profile.EmailVerified != nil && *profile.EmailVerified

	// Linking to an existing account by address requires the provider to
	// vouch for it. An unverified claim is just a string anyone can type
	// into their provider profile.
	if attested && profile.Email != "" {
		user, err := st.Users.GetUserByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			return user, nil
		case !errors.Is(err, domain.ErrNotFound):
			return domain.User{}, err
		}
	}

	name, surname := splitFullName(profile.FullName)
	email := ""
	var verifiedAt *time.Time
	if profile.Email != "" {
		email = profile.Email
		if attested {
			now := s.now()
			verifiedAt = &now
		}
	}
	return st.Users.CreateUser(ctx, email, verifiedAt, name, surname)
}

// MagicLinkStart issues an emailed login link. Over-limit requests are
// dropped silently so the endpoint does not disclose which addresses exist
// or are being hammered.
func (s *AuthService) MagicLinkStart(ctx context.Context, email string, meta RequestMeta) error {
	email = strings.TrimSpace(strings.ToLower(email))
	now := s.now()

	n, err := s.Store.MagicLinks.CountCreatedSince(ctx, email, now.Add(-time.Hour))
	if err != nil {
		return err
	}
	if n >= s.MagicLinkRatePerHour {
		return nil
	}

	raw, err := auth.NewRawToken()
	if err != nil {
		return err
	}
	err = s.Store.MagicLinks.CreateToken(ctx, domain.MagicLinkToken{
		Email:     email,
		TokenHash: auth.HashToken(s.Peppers.MagicLink, raw),
		ExpiresAt: now.Add(s.MagicLinkTTL),
		CreatedAt: now,
		RequestIP: meta.IP,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return err
	}

	if err := s.Mailer.SendMagicLink(email, raw); err != nil {
		return fmt.Errorf("send magic link: %w", err)
	}
	return nil
}

// MagicLinkVerify consumes the emailed token and logs its address in. The
// address acts as its own identity provider: the first login creates the user
// and an "email" identity. Clicking the link proves address ownership, so the
// email is always verified afterwards.
func (s *AuthService) MagicLinkVerify(ctx context.Context, email, rawToken string, meta RequestMeta) (domain.AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	hash := auth.HashToken(s.Peppers.MagicLink, rawToken)
	now := s.now()

	var result domain.AuthResult
	err := s.Tx.InTx(ctx, func(st Stores) error {
		if _, err := st.MagicLinks.ConsumeToken(ctx, email, hash, now); err != nil {
			return err
		}

		verified := true
		user, err := s.resolveIdentity(ctx, st, domain.ProviderProfile{
			Provider:      auth.ProviderEmail,
			AccountID:     email,
			Email:         email,
			EmailVerified: &verified,
		})
		if err != nil {
			return err
		}

		pair, err := s.issueTokens(ctx, st, user.ID, meta)
		if err != nil {
			return err
		}
		result = domain.AuthResult{
			User:              user,
			Tokens:            pair,
			Provider:          auth.ProviderEmail,
			ProviderAccountID: email,
		}
		return nil
	})
	if err != nil {
		return domain.AuthResult{}, err
	}
	return result, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a new
// pair is issued. A token that fails the signature check, was already
// rotated, or belongs to a different subject is invalid.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string, meta RequestMeta) (domain.AuthResult, error) {
	userID, err := s.Tokens.VerifyRefresh(rawRefresh)
	if err != nil {
		return domain.AuthResult{}, err
	}
	hash := auth.HashToken(s.Peppers.Refresh, rawRefresh)
	now := s.now()

	var result domain.AuthResult
	err = s.Tx.InTx(ctx, func(st Stores) error {
		rec, err := st.RefreshTokens.ConsumeToken(ctx, hash, now)
		if err != nil {
			return err
		}
		if rec.UserID != userID {
			return domain.ErrTokenInvalid
		}

		user, err := st.Users.GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrTokenInvalid
			}
			return err
		}

		pair, err := s.issueTokens(ctx, st, user.ID, meta)
		if err != nil {
			return err
		}
		result = domain.AuthResult{User: user, Tokens: pair}
		return nil
	})
	if err != nil {
		return domain.AuthResult{}, err
	}
	return result, nil
}

// Logout revokes the presented refresh token and reports whether a live
// token was actually revoked. Other sessions of the same user stay valid.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) (bool, error) {
	if _, err := s.Tokens.VerifyRefresh(rawRefresh); err != nil {
		return false, err
	}
	hash := auth.HashToken(s.Peppers.Refresh, rawRefresh)
	return s.Store.RefreshTokens.RevokeByHash(ctx, hash, s.now())
}

// LogoutAll revokes every active refresh token of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens.RevokeAllForUser(ctx, userID, s.now())
}

// DevLogin issues tokens for an arbitrary address without any verification,
// backed by a "dev" provider identity. Only reachable when the dev flag is on.
func (s *AuthService) DevLogin(ctx context.Context, email string, meta RequestMeta) (domain.AuthResult, error) {
	if !s.DevLoginEnabled {
		return domain.AuthResult{}, domain.ErrForbidden
	}
	email = strings.TrimSpace(strings.ToLower(email))

	var result domain.AuthResult
	err := s.Tx.InTx(ctx, func(st Stores) error {
		verified := true
		user, err := s.resolveIdentity(ctx, st, domain.ProviderProfile{
			Provider:      auth.ProviderDev,
			AccountID:     email,
			Email:         email,
			EmailVerified: &verified,
		})
		if err != nil {
			return err
		}
		pair, err := s.issueTokens(ctx, st, user.ID, meta)
		if err != nil {
			return err
		}
		result = domain.AuthResult{
			User:              user,
			Tokens:            pair,
			Provider:          auth.ProviderDev,
			ProviderAccountID: email,
		}
		return nil
	})
	if err != nil {
		return domain.AuthResult{}, err
	}
	return result, nil
}

// CleanupExpired removes expired single-use tokens of every class. Meant to
// run periodically.
func (s *AuthService) CleanupExpired(ctx context.Context) (int64, error) {
	now := s.now()
	var total int64
	for _, del := range []func(context.Context, time.Time) (int64, error){
		s.Store.MagicLinks.DeleteExpired,
		s.Store.RefreshTokens.DeleteExpired,
		s.Store.EmailChanges.DeleteExpired,
	} {
		n, err := del(ctx, now)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *AuthService) issueTokens(ctx context.Context, st Stores, userID string, meta RequestMeta) (domain.TokensPair, error) {
	access, err := s.Tokens.IssueAccess(userID)
	if err != nil {
		return domain.TokensPair{}, err
	}
	refresh, err := s.Tokens.IssueRefresh(userID)
	if err != nil {
		return domain.TokensPair{}, err
	}

	now := s.now()
	err = st.RefreshTokens.CreateToken(ctx, domain.RefreshToken{
		UserID:    userID,
		TokenHash: auth.HashToken(s.Peppers.Refresh, refresh),
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
		RequestIP: meta.IP,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return domain.TokensPair{}, err
	}
	return domain.TokensPair{Access: access, Refresh: refresh}, nil
}

func requiredActions(user domain.User, providerEmail string) ([]string, string) {
	if user.Email == "" {
		return []string{domain.ActionAddEmail}, providerEmail
	}
	if user.EmailVerifiedAt == nil {
		return []string{domain.ActionVerifyEmail}, ""
	}
	return nil, ""
}

func splitFullName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
