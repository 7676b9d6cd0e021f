package httpapi

import (
	"net/http"
	"time"

	"Ziyarawebserver/internal/domain"
)

type tokensResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type authResponse struct {
	User            userResponse   `json:"user"`
	Tokens          tokensResponse `json:"tokens"`
	Provider        string         `json:"provider,omitempty"`
	RequiredActions []string       `json:"required_actions,omitempty"`
	SuggestedEmail  string         `json:"suggested_email,omitempty"`
}

func toAuthResponse(res domain.AuthResult) authResponse {
	return authResponse{
		User: toUserResponse(res.User),
		Tokens: tokensResponse{
			AccessToken:  res.Tokens.Access,
			RefreshToken: res.Tokens.Refresh,
			TokenType:    "bearer",
		},
		Provider:        res.Provider,
		RequiredActions: res.RequiredActions,
		SuggestedEmail:  res.SuggestedEmail,
	}
}

func (a *api) countLogin(flow string, err error) {
	if a.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	a.metrics.CountLogin(flow, outcome)
}

func (a *api) allowAuthStart(w http.ResponseWriter, r *http.Request) bool {
	if !a.startLimiter.Allow(clientIP(r), time.Now()) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return false
	}
	return true
}

func (a *api) handleOAuthExchange(w http.ResponseWriter, r *http.Request) {
	if !a.allowAuthStart(w, r) {
		return
	}

	var req struct {
		Provider    string `json:"provider"`
		AccessToken string `json:"access_token"`
		IDToken     string `json:"id_token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.Provider == "" || (req.AccessToken == "" && req.IDToken == "") {
		WriteDomainError(w, domain.NewValidationError(map[string]string{
			"provider":     "required",
			"access_token": "access_token or id_token required",
		}))
		return
	}

	res, err := a.authSvc.OAuthExchange(r.Context(), req.Provider, req.AccessToken, req.IDToken, requestMeta(r))
	a.countLogin("oauth", err)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAuthResponse(res))
}

func (a *api) handleMagicStart(w http.ResponseWriter, r *http.Request) {
	if !a.allowAuthStart(w, r) {
		return
	}

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

	if err := a.authSvc.MagicLinkStart(r.Context(), email, requestMeta(r)); err != nil {
		a.logger.Error("magic link start", "error", err)
		WriteDomainError(w, err)
		return
	}
	// the response never discloses whether the address exists or was limited
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (a *api) handleMagicVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.Email == "" || req.Token == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{
			"email": "required",
			"token": "required",
		}))
		return
	}

	res, err := a.authSvc.MagicLinkVerify(r.Context(), req.Email, req.Token, requestMeta(r))
	a.countLogin("magic_link", err)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAuthResponse(res))
}

func (a *api) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"refresh_token": "required"}))
		return
	}

	res, err := a.authSvc.Refresh(r.Context(), req.RefreshToken, requestMeta(r))
	a.countLogin("refresh", err)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAuthResponse(res))
}

// handleLogout revokes the presented refresh token. Possession of the token
// is the authorization; no access token is required.
func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"refresh_token": "required"}))
		return
	}

	revoked, err := a.authSvc.Logout(r.Context(), req.RefreshToken)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"revoked": revoked})
}

func (a *api) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	if err := a.authSvc.LogoutAll(r.Context(), u.ID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	empty, err := decodeJSONAllowEmpty(w, r, &req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	email := normalizeEmail(req.Email)
	if empty || email == "" {
		email = a.devLoginEmail
	}
	if !validEmail(email) {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "must be a valid address"}))
		return
	}

	res, err := a.authSvc.DevLogin(r.Context(), email, requestMeta(r))
	a.countLogin("dev", err)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAuthResponse(res))
}
