package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"Ziyarawebserver/internal/auth"
	"Ziyarawebserver/internal/domain"
)

type EmailChangeMailer interface {
	SendEmailChange(toEmail, rawToken string) error
}

// UserService covers the signed-in user's own data: profile, favorites and
// comparison list, email change, account deletion.
type UserService struct {
	Store Stores
	Tx    TxRunner
	Tours ToursStore

	Peppers auth.Peppers
	Mailer  EmailChangeMailer

	EmailChangeTTL         time.Duration
	EmailChangeRatePerHour int

	Now func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *UserService) GetMe(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users.GetUserByID(ctx, userID)
}

const maxProfileFieldLen = 200

func (s *UserService) UpdateMe(ctx context.Context, userID string, upd domain.UserUpdate) (domain.User, error) {
	fields := map[string]string{}
	for name, v := range map[string]*string{
		"name":    upd.Name,
		"surname": upd.Surname,
		"phone":   upd.Phone,
		"city":    upd.City,
	} {
		if v == nil {
			continue
		}
		*v = strings.TrimSpace(*v)
		if len(*v) > maxProfileFieldLen {
			fields[name] = fmt.Sprintf("must be at most %d characters", maxProfileFieldLen)
		}
	}
	if upd.BirthDate != nil && upd.BirthDate.After(s.now()) {
		fields["birth_date"] = "must not be in the future"
	}
	if len(fields) > 0 {
		return domain.User{}, domain.NewValidationError(fields)
	}
	return s.Store.Users.UpdateProfile(ctx, userID, upd)
}

func (s *UserService) DeleteMe(ctx context.Context, userID string) error {
	return s.Tx.InTx(ctx, func(st Stores) error {
		if err := st.RefreshTokens.RevokeAllForUser(ctx, userID, s.now()); err != nil {
			return err
		}
		return st.Users.DeleteUser(ctx, userID)
	})
}

// Favorites resolves the user's favorite list into tour views, in insertion
// order. Entries whose flight disappeared are dropped.
func (s *UserService) Favorites(ctx context.Context, userID string) ([]domain.TourView, error) {
	user, err := s.Store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Tours.GetToursByIDs(ctx, user.FavoriteTourIDs)
}

func (s *UserService) AddFavorite(ctx context.Context, userID, tourID string) error {
	if err := validateTourID(tourID); err != nil {
		return err
	}
	return s.Store.Users.AddFavorite(ctx, userID, tourID)
}

func (s *UserService) RemoveFavorite(ctx context.Context, userID, tourID string) error {
	if err := validateTourID(tourID); err != nil {
		return err
	}
	return s.Store.Users.RemoveFavorite(ctx, userID, tourID)
}

// MergeFavorites bulk-adds locally collected ids after login. Unknown ids
// are skipped, duplicates are no-ops, an empty list is fine.
func (s *UserService) MergeFavorites(ctx context.Context, userID string, tourIDs []string) error {
	ids, err := validTourIDs(tourIDs)
	if err != nil {
		return err
	}
	return s.Store.Users.MergeFavorites(ctx, userID, ids)
}

func (s *UserService) Comparisons(ctx context.Context, userID string) ([]domain.TourView, error) {
	user, err := s.Store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Tours.GetToursByIDs(ctx, user.ComparisonTourIDs)
}

func (s *UserService) AddComparison(ctx context.Context, userID, tourID string) error {
	if err := validateTourID(tourID); err != nil {
		return err
	}
	return s.Store.Users.AddComparison(ctx, userID, tourID)
}

func (s *UserService) RemoveComparison(ctx context.Context, userID, tourID string) error {
	if err := validateTourID(tourID); err != nil {
		return err
	}
	return s.Store.Users.RemoveComparison(ctx, userID, tourID)
}

func (s *UserService) MergeComparisons(ctx context.Context, userID string, tourIDs []string) error {
	ids, err := validTourIDs(tourIDs)
	if err != nil {
		return err
	}
	return s.Store.Users.MergeComparisons(ctx, userID, ids)
}

// EmailChangeStart mails a confirmation link to the requested address. The
// address is not taken over until the link is confirmed. Over-limit requests
// are dropped silently, like magic links.
func (s *UserService) EmailChangeStart(ctx context.Context, userID, newEmail string, meta RequestMeta) error {
	newEmail = strings.TrimSpace(strings.ToLower(newEmail))

	user, err := s.Store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if newEmail == user.Email {
		return domain.NewValidationError(map[string]string{"email": "is already your address"})
	}
	if _, err := s.Store.Users.GetUserByEmail(ctx, newEmail); err == nil {
		return domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	now := s.now()
	n, err := s.Store.EmailChanges.CountCreatedSince(ctx, userID, now.Add(-time.Hour))
	if err != nil {
		return err
	}
	if n >= s.EmailChangeRatePerHour {
		return nil
	}

	raw, err := auth.NewRawToken()
	if err != nil {
		return err
	}
	err = s.Store.EmailChanges.CreateToken(ctx, domain.EmailChangeToken{
		UserID:    userID,
		NewEmail:  newEmail,
		TokenHash: auth.HashToken(s.Peppers.EmailChange, raw),
		ExpiresAt: now.Add(s.EmailChangeTTL),
		CreatedAt: now,
		RequestIP: meta.IP,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return err
	}

	if err := s.Mailer.SendEmailChange(newEmail, raw); err != nil {
		return fmt.Errorf("send email change: %w", err)
	}
	return nil
}

// EmailChangeConfirm consumes the emailed token and moves the account to the
// new address. The address may have been taken since the link was sent; that
// surfaces as ErrEmailTaken.
func (s *UserService) EmailChangeConfirm(ctx context.Context, rawToken string) (domain.User, error) {
	hash := auth.HashToken(s.Peppers.EmailChange, rawToken)
	now := s.now()

	var user domain.User
	err := s.Tx.InTx(ctx, func(st Stores) error {
		t, err := st.EmailChanges.ConsumeToken(ctx, hash, now)
		if err != nil {
			return err
		}
		if err := st.Users.SetEmail(ctx, t.UserID, t.NewEmail, &now); err != nil {
			return err
		}
		user, err = st.Users.GetUserByID(ctx, t.UserID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func validateTourID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewValidationError(map[string]string{"tour_id": "must be a valid id"})
	}
	return nil
}

func validTourIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, domain.NewValidationError(map[string]string{"tour_ids": "must contain only valid ids"})
		}
		out = append(out, id)
	}
	return out, nil
}
