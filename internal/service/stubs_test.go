package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"Ziyarawebserver/internal/domain"
)

type stubUsersStore struct {
	t *testing.T

	createUserFunc        func(context.Context, string, *time.Time, string, string) (domain.User, error)
	getUserByIDFunc       func(context.Context, string) (domain.User, error)
	getUserByEmailFunc    func(context.Context, string) (domain.User, error)
	updateProfileFunc     func(context.Context, string, domain.UserUpdate) (domain.User, error)
	setEmailFunc          func(context.Context, string, string, *time.Time) error
	markEmailVerifiedFunc func(context.Context, string, time.Time) error
	deleteUserFunc        func(context.Context, string) error
	addFavoriteFunc       func(context.Context, string, string) error
	removeFavoriteFunc    func(context.Context, string, string) error
	mergeFavoritesFunc    func(context.Context, string, []string) error
	addComparisonFunc     func(context.Context, string, string) error
	removeComparisonFunc  func(context.Context, string, string) error
	mergeComparisonsFunc  func(context.Context, string, []string) error
}

func (s *stubUsersStore) CreateUser(ctx context.Context, email string, verifiedAt *time.Time, name, surname string) (domain.User, error) {
	if s.createUserFunc != nil {
		return s.createUserFunc(ctx, email, verifiedAt, name, surname)
	}
	s.t.Fatalf("CreateUser called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if s.getUserByIDFunc != nil {
		return s.getUserByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetUserByID called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	if s.getUserByEmailFunc != nil {
		return s.getUserByEmailFunc(ctx, email)
	}
	s.t.Fatalf("GetUserByEmail called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) UpdateProfile(ctx context.Context, userID string, upd domain.UserUpdate) (domain.User, error) {
	if s.updateProfileFunc != nil {
		return s.updateProfileFunc(ctx, userID, upd)
	}
	s.t.Fatalf("UpdateProfile called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) SetEmail(ctx context.Context, userID, email string, verifiedAt *time.Time) error {
	if s.setEmailFunc != nil {
		return s.setEmailFunc(ctx, userID, email, verifiedAt)
	}
	s.t.Fatalf("SetEmail called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) MarkEmailVerified(ctx context.Context, userID string, when time.Time) error {
	if s.markEmailVerifiedFunc != nil {
		return s.markEmailVerifiedFunc(ctx, userID, when)
	}
	s.t.Fatalf("MarkEmailVerified called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) DeleteUser(ctx context.Context, userID string) error {
	if s.deleteUserFunc != nil {
		return s.deleteUserFunc(ctx, userID)
	}
	s.t.Fatalf("DeleteUser called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) AddFavorite(ctx context.Context, userID, flightID string) error {
	if s.addFavoriteFunc != nil {
		return s.addFavoriteFunc(ctx, userID, flightID)
	}
	s.t.Fatalf("AddFavorite called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) RemoveFavorite(ctx context.Context, userID, flightID string) error {
	if s.removeFavoriteFunc != nil {
		return s.removeFavoriteFunc(ctx, userID, flightID)
	}
	s.t.Fatalf("RemoveFavorite called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) MergeFavorites(ctx context.Context, userID string, flightIDs []string) error {
	if s.mergeFavoritesFunc != nil {
		return s.mergeFavoritesFunc(ctx, userID, flightIDs)
	}
	s.t.Fatalf("MergeFavorites called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) AddComparison(ctx context.Context, userID, flightID string) error {
	if s.addComparisonFunc != nil {
		return s.addComparisonFunc(ctx, userID, flightID)
	}
	s.t.Fatalf("AddComparison called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) RemoveComparison(ctx context.Context, userID, flightID string) error {
	if s.removeComparisonFunc != nil {
		return s.removeComparisonFunc(ctx, userID, flightID)
	}
	s.t.Fatalf("RemoveComparison called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) MergeComparisons(ctx context.Context, userID string, flightIDs []string) error {
	if s.mergeComparisonsFunc != nil {
		return s.mergeComparisonsFunc(ctx, userID, flightIDs)
	}
	s.t.Fatalf("MergeComparisons called unexpectedly")
	return errors.New("unexpected call")
}

type stubIdentitiesStore struct {
	t *testing.T

	createIdentityFunc       func(context.Context, domain.AuthIdentity) (domain.AuthIdentity, error)
	getByProviderAccountFunc func(context.Context, string, string) (domain.AuthIdentity, error)
	listByUserFunc           func(context.Context, string) ([]domain.AuthIdentity, error)
}

func (s *stubIdentitiesStore) CreateIdentity(ctx context.Context, ident domain.AuthIdentity) (domain.AuthIdentity, error) {
	if s.createIdentityFunc != nil {
		return s.createIdentityFunc(ctx, ident)
	}
	s.t.Fatalf("CreateIdentity called unexpectedly")
	return domain.AuthIdentity{}, errors.New("unexpected call")
}

func (s *stubIdentitiesStore) GetByProviderAccount(ctx context.Context, provider, accountID string) (domain.AuthIdentity, error) {
	if s.getByProviderAccountFunc != nil {
		return s.getByProviderAccountFunc(ctx, provider, accountID)
	}
	s.t.Fatalf("GetByProviderAccount called unexpectedly")
	return domain.AuthIdentity{}, errors.New("unexpected call")
}

func (s *stubIdentitiesStore) ListByUser(ctx context.Context, userID string) ([]domain.AuthIdentity, error) {
	if s.listByUserFunc != nil {
		return s.listByUserFunc(ctx, userID)
	}
	s.t.Fatalf("ListByUser called unexpectedly")
	return nil, errors.New("unexpected call")
}

type stubMagicLinkStore struct {
	t *testing.T

	createTokenFunc       func(context.Context, domain.MagicLinkToken) error
	consumeTokenFunc      func(context.Context, string, string, time.Time) (domain.MagicLinkToken, error)
	countCreatedSinceFunc func(context.Context, string, time.Time) (int, error)
	deleteExpiredFunc     func(context.Context, time.Time) (int64, error)
}

func (s *stubMagicLinkStore) CreateToken(ctx context.Context, t domain.MagicLinkToken) error {
	if s.createTokenFunc != nil {
		return s.createTokenFunc(ctx, t)
	}
	s.t.Fatalf("MagicLinks.CreateToken called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubMagicLinkStore) ConsumeToken(ctx context.Context, email, hash string, now time.Time) (domain.MagicLinkToken, error) {
	if s.consumeTokenFunc != nil {
		return s.consumeTokenFunc(ctx, email, hash, now)
	}
	s.t.Fatalf("MagicLinks.ConsumeToken called unexpectedly")
	return domain.MagicLinkToken{}, errors.New("unexpected call")
}

func (s *stubMagicLinkStore) CountCreatedSince(ctx context.Context, email string, since time.Time) (int, error) {
	if s.countCreatedSinceFunc != nil {
		return s.countCreatedSinceFunc(ctx, email, since)
	}
	s.t.Fatalf("MagicLinks.CountCreatedSince called unexpectedly")
	return 0, errors.New("unexpected call")
}

func (s *stubMagicLinkStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if s.deleteExpiredFunc != nil {
		return s.deleteExpiredFunc(ctx, before)
	}
	s.t.Fatalf("MagicLinks.DeleteExpired called unexpectedly")
	return 0, errors.New("unexpected call")
}

type stubRefreshTokenStore struct {
	t *testing.T

	createTokenFunc      func(context.Context, domain.RefreshToken) error
	consumeTokenFunc     func(context.Context, string, time.Time) (domain.RefreshToken, error)
	revokeByHashFunc     func(context.Context, string, time.Time) (bool, error)
	revokeAllForUserFunc func(context.Context, string, time.Time) error
	deleteExpiredFunc    func(context.Context, time.Time) (int64, error)
}

func (s *stubRefreshTokenStore) CreateToken(ctx context.Context, t domain.RefreshToken) error {
	if s.createTokenFunc != nil {
		return s.createTokenFunc(ctx, t)
	}
	s.t.Fatalf("RefreshTokens.CreateToken called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubRefreshTokenStore) ConsumeToken(ctx context.Context, hash string, now time.Time) (domain.RefreshToken, error) {
	if s.consumeTokenFunc != nil {
		return s.consumeTokenFunc(ctx, hash, now)
	}
	s.t.Fatalf("RefreshTokens.ConsumeToken called unexpectedly")
	return domain.RefreshToken{}, errors.New("unexpected call")
}

func (s *stubRefreshTokenStore) RevokeByHash(ctx context.Context, hash string, when time.Time) (bool, error) {
	if s.revokeByHashFunc != nil {
		return s.revokeByHashFunc(ctx, hash, when)
	}
	s.t.Fatalf("RefreshTokens.RevokeByHash called unexpectedly")
	return false, errors.New("unexpected call")
}

func (s *stubRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string, when time.Time) error {
	if s.revokeAllForUserFunc != nil {
		return s.revokeAllForUserFunc(ctx, userID, when)
	}
	s.t.Fatalf("RefreshTokens.RevokeAllForUser called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubRefreshTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if s.deleteExpiredFunc != nil {
		return s.deleteExpiredFunc(ctx, before)
	}
	s.t.Fatalf("RefreshTokens.DeleteExpired called unexpectedly")
	return 0, errors.New("unexpected call")
}

type stubEmailChangeStore struct {
	t *testing.T

	createTokenFunc       func(context.Context, domain.EmailChangeToken) error
	consumeTokenFunc      func(context.Context, string, time.Time) (domain.EmailChangeToken, error)
	countCreatedSinceFunc func(context.Context, string, time.Time) (int, error)
	deleteExpiredFunc     func(context.Context, time.Time) (int64, error)
}

func (s *stubEmailChangeStore) CreateToken(ctx context.Context, t domain.EmailChangeToken) error {
	if s.createTokenFunc != nil {
		return s.createTokenFunc(ctx, t)
	}
	s.t.Fatalf("EmailChanges.CreateToken called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubEmailChangeStore) ConsumeToken(ctx context.Context, hash string, now time.Time) (domain.EmailChangeToken, error) {
	if s.consumeTokenFunc != nil {
		return s.consumeTokenFunc(ctx, hash, now)
	}
	s.t.Fatalf("EmailChanges.ConsumeToken called unexpectedly")
	return domain.EmailChangeToken{}, errors.New("unexpected call")
}

func (s *stubEmailChangeStore) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	if s.countCreatedSinceFunc != nil {
		return s.countCreatedSinceFunc(ctx, userID, since)
	}
	s.t.Fatalf("EmailChanges.CountCreatedSince called unexpectedly")
	return 0, errors.New("unexpected call")
}

func (s *stubEmailChangeStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if s.deleteExpiredFunc != nil {
		return s.deleteExpiredFunc(ctx, before)
	}
	s.t.Fatalf("EmailChanges.DeleteExpired called unexpectedly")
	return 0, errors.New("unexpected call")
}

type stubToursStore struct {
	t *testing.T

	searchToursFunc     func(context.Context, domain.TourSearchParams) ([]domain.TourView, error)
	getToursByIDsFunc   func(context.Context, []string) ([]domain.TourView, error)
	aggregatesFunc      func(context.Context, domain.TourSearchParams) ([]domain.TourAggregate, error)
	tourTypesFunc       func(context.Context) ([]domain.LookupValue, error)
	tariffsFunc         func(context.Context) ([]domain.LookupValue, error)
	departureCitiesFunc func(context.Context) ([]string, error)
}

func (s *stubToursStore) SearchTours(ctx context.Context, p domain.TourSearchParams) ([]domain.TourView, error) {
	if s.searchToursFunc != nil {
		return s.searchToursFunc(ctx, p)
	}
	s.t.Fatalf("SearchTours called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubToursStore) GetToursByIDs(ctx context.Context, ids []string) ([]domain.TourView, error) {
	if s.getToursByIDsFunc != nil {
		return s.getToursByIDsFunc(ctx, ids)
	}
	s.t.Fatalf("GetToursByIDs called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubToursStore) Aggregates(ctx context.Context, p domain.TourSearchParams) ([]domain.TourAggregate, error) {
	if s.aggregatesFunc != nil {
		return s.aggregatesFunc(ctx, p)
	}
	s.t.Fatalf("Aggregates called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubToursStore) TourTypes(ctx context.Context) ([]domain.LookupValue, error) {
	if s.tourTypesFunc != nil {
		return s.tourTypesFunc(ctx)
	}
	s.t.Fatalf("TourTypes called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubToursStore) Tariffs(ctx context.Context) ([]domain.LookupValue, error) {
	if s.tariffsFunc != nil {
		return s.tariffsFunc(ctx)
	}
	s.t.Fatalf("Tariffs called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubToursStore) DepartureCities(ctx context.Context) ([]string, error) {
	if s.departureCitiesFunc != nil {
		return s.departureCitiesFunc(ctx)
	}
	s.t.Fatalf("DepartureCities called unexpectedly")
	return nil, errors.New("unexpected call")
}

type stubOperatorsStore struct {
	t *testing.T

	listOperatorsFunc   func(context.Context) ([]domain.Operator, error)
	getOperatorByIDFunc func(context.Context, int) (domain.Operator, error)
}

func (s *stubOperatorsStore) ListOperators(ctx context.Context) ([]domain.Operator, error) {
	if s.listOperatorsFunc != nil {
		return s.listOperatorsFunc(ctx)
	}
	s.t.Fatalf("ListOperators called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubOperatorsStore) GetOperatorByID(ctx context.Context, id int) (domain.Operator, error) {
	if s.getOperatorByIDFunc != nil {
		return s.getOperatorByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetOperatorByID called unexpectedly")
	return domain.Operator{}, errors.New("unexpected call")
}

// stubTx runs the closure against the given stores without any transaction.
type stubTx struct {
	stores Stores
}

func (s *stubTx) InTx(ctx context.Context, fn func(Stores) error) error {
	return fn(s.stores)
}

type stubValidator struct {
	validateFunc func(context.Context, string, string, string) (domain.ProviderProfile, error)
}

func (s *stubValidator) Validate(ctx context.Context, provider, accessToken, idToken string) (domain.ProviderProfile, error) {
	return s.validateFunc(ctx, provider, accessToken, idToken)
}

type stubTokenIssuer struct {
	issueAccessFunc   func(string) (string, error)
	issueRefreshFunc  func(string) (string, error)
	verifyRefreshFunc func(string) (string, error)
}

func (s *stubTokenIssuer) IssueAccess(userID string) (string, error) {
	if s.issueAccessFunc != nil {
		return s.issueAccessFunc(userID)
	}
	return "access-" + userID, nil
}

func (s *stubTokenIssuer) IssueRefresh(userID string) (string, error) {
	if s.issueRefreshFunc != nil {
		return s.issueRefreshFunc(userID)
	}
	return "refresh-" + userID, nil
}

func (s *stubTokenIssuer) VerifyRefresh(raw string) (string, error) {
	if s.verifyRefreshFunc != nil {
		return s.verifyRefreshFunc(raw)
	}
	return "", errors.New("unexpected call")
}

type stubMailer struct {
	magicLinks   []string
	emailChanges []string
	sendErr      error
}

func (m *stubMailer) SendMagicLink(toEmail, rawToken string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.magicLinks = append(m.magicLinks, toEmail)
	return nil
}

func (m *stubMailer) SendEmailChange(toEmail, rawToken string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.emailChanges = append(m.emailChanges, toEmail)
	return nil
}
