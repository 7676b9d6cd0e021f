package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"Ziyarawebserver/internal/auth"
	"Ziyarawebserver/internal/domain"
)

const testFlightID = "0b4f8f0e-8a5d-4a7e-9b56-0c2f8f7f1a10"

type userFixture struct {
	users   *stubUsersStore
	refresh *stubRefreshTokenStore
	changes *stubEmailChangeStore
	tours   *stubToursStore
	mailer  *stubMailer
	svc     *UserService
}

func newUserFixture(t *testing.T, now time.Time) *userFixture {
	peppers, err := auth.DerivePeppers("test-master")
	if err != nil {
		t.Fatalf("DerivePeppers: %v", err)
	}

	f := &userFixture{
		users:   &stubUsersStore{t: t},
		refresh: &stubRefreshTokenStore{t: t},
		changes: &stubEmailChangeStore{t: t},
		tours:   &stubToursStore{t: t},
		mailer:  &stubMailer{},
	}
	stores := Stores{
		Users:         f.users,
		Identities:    &stubIdentitiesStore{t: t},
		MagicLinks:    &stubMagicLinkStore{t: t},
		RefreshTokens: f.refresh,
		EmailChanges:  f.changes,
	}
	f.svc = &UserService{
		Store:                  stores,
		Tx:                     &stubTx{stores: stores},
		Tours:                  f.tours,
		Peppers:                peppers,
		Mailer:                 f.mailer,
		EmailChangeTTL:         30 * time.Minute,
		EmailChangeRatePerHour: 2,
		Now:                    func() time.Time { return now },
	}
	return f
}

func strPtr(v string) *string { return &v }

func TestUpdateMeTrimsAndPassesThrough(t *testing.T) {
	f := newUserFixture(t, time.Now())

	f.users.updateProfileFunc = func(_ context.Context, userID string, upd domain.UserUpdate) (domain.User, error) {
		if *upd.Name != "Amina" {
			t.Fatalf("name not trimmed: %q", *upd.Name)
		}
		if upd.Phone != nil {
			t.Fatal("absent fields must stay nil")
		}
		return domain.User{ID: userID, Name: *upd.Name}, nil
	}

	u, err := f.svc.UpdateMe(context.Background(), "user-1", domain.UserUpdate{Name: strPtr("  Amina ")})
	if err != nil {
		t.Fatalf("UpdateMe: %v", err)
	}
	if u.Name != "Amina" {
		t.Fatalf("Name = %q", u.Name)
	}
}

func TestUpdateMeRejectsBadInput(t *testing.T) {
	now := time.Now()
	f := newUserFixture(t, now)

	long := strings.Repeat("x", 201)
	_, err := f.svc.UpdateMe(context.Background(), "user-1", domain.UserUpdate{City: &long})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	future := now.Add(48 * time.Hour)
	_, err = f.svc.UpdateMe(context.Background(), "user-1", domain.UserUpdate{BirthDate: &future})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestDeleteMeRevokesSessionsFirst(t *testing.T) {
	f := newUserFixture(t, time.Now())

	order := []string{}
	f.refresh.revokeAllForUserFunc = func(_ context.Context, userID string, _ time.Time) error {
		order = append(order, "revoke:"+userID)
		return nil
	}
	f.users.deleteUserFunc = func(_ context.Context, userID string) error {
		order = append(order, "delete:"+userID)
		return nil
	}

	if err := f.svc.DeleteMe(context.Background(), "user-1"); err != nil {
		t.Fatalf("DeleteMe: %v", err)
	}
	if len(order) != 2 || order[0] != "revoke:user-1" || order[1] != "delete:user-1" {
		t.Fatalf("order = %v", order)
	}
}

func TestFavoritesResolvesViews(t *testing.T) {
	f := newUserFixture(t, time.Now())

	f.users.getUserByIDFunc = func(context.Context, string) (domain.User, error) {
		return domain.User{ID: "user-1", FavoriteTourIDs: []string{testFlightID}}, nil
	}
	f.tours.getToursByIDsFunc = func(_ context.Context, ids []string) ([]domain.TourView, error) {
		if len(ids) != 1 || ids[0] != testFlightID {
			t.Fatalf("ids = %v", ids)
		}
		return []domain.TourView{{ID: testFlightID}}, nil
	}

	views, err := f.svc.Favorites(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Favorites: %v", err)
	}
	if len(views) != 1 || views[0].ID != testFlightID {
		t.Fatalf("views = %+v", views)
	}
}

func TestFavoriteMutationsValidateID(t *testing.T) {
	f := newUserFixture(t, time.Now())

	if err := f.svc.AddFavorite(context.Background(), "user-1", "not-a-uuid"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("AddFavorite err = %v, want validation error", err)
	}
	if err := f.svc.MergeComparisons(context.Background(), "user-1", []string{testFlightID, "junk"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("MergeComparisons err = %v, want validation error", err)
	}
}

func TestMergeFavoritesEmptyListIsOK(t *testing.T) {
	f := newUserFixture(t, time.Now())

	called := false
	f.users.mergeFavoritesFunc = func(_ context.Context, _ string, ids []string) error {
		called = true
		if len(ids) != 0 {
			t.Fatalf("ids = %v", ids)
		}
		return nil
	}

	if err := f.svc.MergeFavorites(context.Background(), "user-1", nil); err != nil {
		t.Fatalf("MergeFavorites: %v", err)
	}
	if !called {
		t.Fatal("store not called")
	}
}

func TestEmailChangeStartRejectsSameAndTaken(t *testing.T) {
	f := newUserFixture(t, time.Now())

	f.users.getUserByIDFunc = func(context.Context, string) (domain.User, error) {
		return domain.User{ID: "user-1", Email: "me@example.com"}, nil
	}

	err := f.svc.EmailChangeStart(context.Background(), "user-1", "Me@Example.com", RequestMeta{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("same email: err = %v, want validation error", err)
	}

	f.users.getUserByEmailFunc = func(context.Context, string) (domain.User, error) {
		return domain.User{ID: "user-2"}, nil
	}
	err = f.svc.EmailChangeStart(context.Background(), "user-1", "other@example.com", RequestMeta{})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("taken email: err = %v, want ErrEmailTaken", err)
	}
}

func TestEmailChangeStartStoresHashAndSends(t *testing.T) {
	now := time.Now()
	f := newUserFixture(t, now)

	f.users.getUserByIDFunc = func(context.Context, string) (domain.User, error) {
		return domain.User{ID: "user-1", Email: "me@example.com"}, nil
	}
	f.users.getUserByEmailFunc = func(context.Context, string) (domain.User, error) {
		return domain.User{}, domain.ErrNotFound
	}
	f.changes.countCreatedSinceFunc = func(context.Context, string, time.Time) (int, error) {
		return 0, nil
	}
	var created domain.EmailChangeToken
	f.changes.createTokenFunc = func(_ context.Context, tok domain.EmailChangeToken) error {
		created = tok
		return nil
	}

	if err := f.svc.EmailChangeStart(context.Background(), "user-1", " New@Example.com ", RequestMeta{}); err != nil {
		t.Fatalf("EmailChangeStart: %v", err)
	}
	if created.NewEmail != "new@example.com" || created.UserID != "user-1" {
		t.Fatalf("token = %+v", created)
	}
	if len(created.TokenHash) != 64 {
		t.Fatalf("token hash looks wrong: %q", created.TokenHash)
	}
	if len(f.mailer.emailChanges) != 1 || f.mailer.emailChanges[0] != "new@example.com" {
		t.Fatalf("mail must go to the new address: %v", f.mailer.emailChanges)
	}
}

func TestEmailChangeStartOverLimitIsSilent(t *testing.T) {
	f := newUserFixture(t, time.Now())

	f.users.getUserByIDFunc = func(context.Context, string) (domain.User, error) {
		return domain.User{ID: "user-1", Email: "me@example.com"}, nil
	}
	f.users.getUserByEmailFunc = func(context.Context, string) (domain.User, error) {
		return domain.User{}, domain.ErrNotFound
	}
	f.changes.countCreatedSinceFunc = func(context.Context, string, time.Time) (int, error) {
		return 2, nil
	}

	if err := f.svc.EmailChangeStart(context.Background(), "user-1", "new@example.com", RequestMeta{}); err != nil {
		t.Fatalf("over-limit request must not error: %v", err)
	}
	if len(f.mailer.emailChanges) != 0 {
		t.Fatal("no mail may be sent over the limit")
	}
}

func TestEmailChangeConfirm(t *testing.T) {
	now := time.Now()
	f := newUserFixture(t, now)

	f.changes.consumeTokenFunc = func(_ context.Context, hash string, _ time.Time) (domain.EmailChangeToken, error) {
		if hash == "raw" {
			t.Fatal("store must be queried by hash")
		}
		return domain.EmailChangeToken{UserID: "user-1", NewEmail: "new@example.com"}, nil
	}
	f.users.setEmailFunc = func(_ context.Context, userID, email string, verifiedAt *time.Time) error {
		if userID != "user-1" || email != "new@example.com" || verifiedAt == nil {
			t.Fatalf("SetEmail(%s, %s, %v)", userID, email, verifiedAt)
		}
		return nil
	}
	f.users.getUserByIDFunc = func(context.Context, string) (domain.User, error) {
		return domain.User{ID: "user-1", Email: "new@example.com", EmailVerifiedAt: &now}, nil
	}

	u, err := f.svc.EmailChangeConfirm(context.Background(), "raw")
	if err != nil {
		t.Fatalf("EmailChangeConfirm: %v", err)
	}
	if u.Email != "new@example.com" {
		t.Fatalf("Email = %q", u.Email)
	}
}

func TestEmailChangeConfirmTakenMeanwhile(t *testing.T) {
	f := newUserFixture(t, time.Now())

	f.changes.consumeTokenFunc = func(context.Context, string, time.Time) (domain.EmailChangeToken, error) {
		return domain.EmailChangeToken{UserID: "user-1", NewEmail: "new@example.com"}, nil
	}
	f.users.setEmailFunc = func(context.Context, string, string, *time.Time) error {
		return domain.ErrEmailTaken
	}

	_, err := f.svc.EmailChangeConfirm(context.Background(), "raw")
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}
