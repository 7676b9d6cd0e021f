package httpapi

import (
	"context"
	"net/http"
	"time"

	"Ziyarawebserver/internal/domain"
)

type userResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	EmailVerified     bool      `json:"email_verified"`
	Name              string    `json:"name"`
	Surname           string    `json:"surname"`
	Phone             string    `json:"phone"`
	City              string    `json:"city"`
	BirthDate         *string   `json:"birth_date"`
	EmailNotification bool      `json:"email_notification"`
	SMSNotification   bool      `json:"sms_notification"`
	Favorites         []string  `json:"favorites"`
	Comparisons       []string  `json:"comparisons"`
	CreatedAt         time.Time `json:"created_at"`
}

const birthDateLayout = "2006-01-02"

func toUserResponse(u domain.User) userResponse {
	resp := userResponse{
		ID:                u.ID,
		Email:             u.Email,
		EmailVerified:     u.EmailVerifiedAt != nil,
		Name:              u.Name,
		Surname:           u.Surname,
		Phone:             u.Phone,
		City:              u.City,
		EmailNotification: u.EmailNotification,
		SMSNotification:   u.SMSNotification,
		Favorites:         u.FavoriteTourIDs,
		Comparisons:       u.ComparisonTourIDs,
		CreatedAt:         u.CreatedAt,
	}
	if resp.Favorites == nil {
		resp.Favorites = []string{}
	}
	if resp.Comparisons == nil {
		resp.Comparisons = []string{}
	}
	if u.BirthDate != nil {
		s := u.BirthDate.Format(birthDateLayout)
		resp.BirthDate = &s
	}
	return resp
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (a *api) handleMeUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req struct {
		Name              *string `json:"name"`
		Surname           *string `json:"surname"`
		Phone             *string `json:"phone"`
		City              *string `json:"city"`
		BirthDate         *string `json:"birth_date"`
		EmailNotification *bool   `json:"email_notification"`
		SMSNotification   *bool   `json:"sms_notification"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	upd := domain.UserUpdate{
		Name:              req.Name,
		Surname:           req.Surname,
		Phone:             req.Phone,
		City:              req.City,
		EmailNotification: req.EmailNotification,
		SMSNotification:   req.SMSNotification,
	}
	if req.BirthDate != nil {
		d, err := time.Parse(birthDateLayout, *req.BirthDate)
		if err != nil {
			WriteDomainError(w, domain.NewValidationError(map[string]string{"birth_date": "must be YYYY-MM-DD"}))
			return
		}
		upd.BirthDate = &d
	}

	updated, err := a.userSvc.UpdateMe(r.Context(), u.ID, upd)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

func (a *api) handleMeDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	if err := a.userSvc.DeleteMe(r.Context(), u.ID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listEnvelope[T any] struct {
	Items []T `json:"items"`
}

func (a *api) handleFavoritesList(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	views, err := a.userSvc.Favorites(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listEnvelope[domain.TourView]{Items: views})
}

func (a *api) handleFavoriteAdd(w http.ResponseWriter, r *http.Request) {
	a.handleListMutation(w, r, a.userSvc.AddFavorite)
}

func (a *api) handleFavoriteRemove(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	if err := a.userSvc.RemoveFavorite(r.Context(), u.ID, r.PathValue("id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleFavoritesMerge(w http.ResponseWriter, r *http.Request) {
	a.handleListMerge(w, r, a.userSvc.MergeFavorites)
}

func (a *api) handleComparisonsList(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	views, err := a.userSvc.Comparisons(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, listEnvelope[domain.TourView]{Items: views})
}

func (a *api) handleComparisonAdd(w http.ResponseWriter, r *http.Request) {
	a.handleListMutation(w, r, a.userSvc.AddComparison)
}

func (a *api) handleComparisonRemove(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	if err := a.userSvc.RemoveComparison(r.Context(), u.ID, r.PathValue("id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleComparisonsMerge(w http.ResponseWriter, r *http.Request) {
	a.handleListMerge(w, r, a.userSvc.MergeComparisons)
}

func (a *api) handleListMutation(w http.ResponseWriter, r *http.Request, mutate func(ctx context.Context, userID, tourID string) error) {
	u, _ := CurrentUser(r.Context())

	var req struct {
		TourID string `json:"tour_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if err := mutate(r.Context(), u.ID, req.TourID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleListMerge(w http.ResponseWriter, r *http.Request, merge func(ctx context.Context, userID string, tourIDs []string) error) {
	u, _ := CurrentUser(r.Context())

	var req struct {
		TourIDs []string `json:"tour_ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if err := merge(r.Context(), u.ID, req.TourIDs); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleEmailChangeStart(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "must be a valid address"}))
		return
	}

	if err := a.userSvc.EmailChangeStart(r.Context(), u.ID, email, requestMeta(r)); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

// handleEmailChangeConfirm is unauthenticated: the emailed token alone
// identifies the account, since the user may open the link on another device.
func (a *api) handleEmailChangeConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.Token == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"token": "required"}))
		return
	}

	u, err := a.userSvc.EmailChangeConfirm(r.Context(), req.Token)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toUserResponse(u))
}
