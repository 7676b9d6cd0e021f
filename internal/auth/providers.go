package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/idtoken"

	"Ziyarawebserver/internal/domain"
)

const (
	ProviderGoogle = "google"
	ProviderYandex = "yandex"
	ProviderVK     = "vk"

	// ProviderEmail and ProviderDev mark identities created through the magic
	// link and dev login flows; neither is accepted by the validator.
	ProviderEmail = "email"
	ProviderDev   = "dev"
)

const (
	googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	yandexInfoURL     = "https://login.yandex.ru/info?format=json"
	vkUsersGetURL     = "https://api.vk.com/method/users.get"
	vkAPIVersion      = "5.199"
)

// OAuthValidator checks a provider-issued token with the provider itself and
// returns the attested profile. Any provider-side rejection is reported as
// domain.ErrTokenInvalid.
type OAuthValidator struct {
	GoogleClientID string
	HTTPClient     *http.Client
}

func (v *OAuthValidator) client() *http.Client {
	if v.HTTPClient != nil {
		return v.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (v *OAuthValidator) Validate(ctx context.Context, provider, accessToken, idToken string) (domain.ProviderProfile, error) {
	switch provider {
	case ProviderGoogle:
		return v.validateGoogle(ctx, accessToken, idToken)
	case ProviderYandex:
		return v.validateYandex(ctx, accessToken)
	case ProviderVK:
		return v.validateVK(ctx, accessToken)
	default:
		return domain.ProviderProfile{}, domain.NewValidationError(map[string]string{
			"provider": "must be one of google, yandex, vk",
		})
	}
}

// validateGoogle prefers the ID token (verified locally against Google's
// keys) and falls back to resolving the access token through userinfo.
func (v *OAuthValidator) validateGoogle(ctx context.Context, accessToken, idToken string) (domain.ProviderProfile, error) {
	if idToken != "" {
		payload, err := idtoken.Validate(ctx, idToken, v.GoogleClientID)
		if err != nil {
			return domain.ProviderProfile{}, domain.ErrTokenInvalid
		}
		p := domain.ProviderProfile{
			Provider:  ProviderGoogle,
			AccountID: payload.Subject,
		}
		if email, ok := payload.Claims["email"].(string); ok {
			p.Email = strings.ToLower(email)
		}
		if verified, ok := payload.Claims["email_verified"].(bool); ok {
			p.EmailVerified = &verified
		}
		if name, ok := payload.Claims["name"].(string); ok {
			p.FullName = name
		}
		if p.AccountID == "" {
			return domain.ProviderProfile{}, domain.ErrTokenInvalid
		}
		return p, nil
	}

	var body struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserinfoURL, nil)
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("build google userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if err := v.doJSON(req, &body); err != nil {
		return domain.ProviderProfile{}, err
	}
	if body.Sub == "" {
		return domain.ProviderProfile{}, domain.ErrTokenInvalid
	}
	verified := body.EmailVerified
	return domain.ProviderProfile{
		Provider:      ProviderGoogle,
		AccountID:     body.Sub,
		Email:         strings.ToLower(body.Email),
		EmailVerified: &verified,
		FullName:      body.Name,
	}, nil
}

func (v *OAuthValidator) validateYandex(ctx context.Context, token string) (domain.ProviderProfile, error) {
	var body struct {
		ID           string `json:"id"`
		DefaultEmail string `json:"default_email"`
		RealName     string `json:"real_name"`
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, yandexInfoURL, nil)
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("build yandex info request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+token)
	if err := v.doJSON(req, &body); err != nil {
		return domain.ProviderProfile{}, err
	}
	if body.ID == "" {
		return domain.ProviderProfile{}, domain.ErrTokenInvalid
	}
	p := domain.ProviderProfile{
		Provider:  ProviderYandex,
		AccountID: body.ID,
		Email:     strings.ToLower(body.DefaultEmail),
		FullName:  body.RealName,
	}
	if p.Email != "" {
		// Yandex only reports addresses it has confirmed.
		verified := true
		p.EmailVerified = &verified
	}
	return p, nil
}

// validateVK resolves the account through users.get. VK never exposes an email
// this way, so every first VK login leaves the user without one.
func (v *OAuthValidator) validateVK(ctx context.Context, token string) (domain.ProviderProfile, error) {
	q := url.Values{
		"access_token": {token},
		"v":            {vkAPIVersion},
	}
	var body struct {
		Response []struct {
			ID        int64  `json:"id"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"response"`
		Error *struct {
			Code int    `json:"error_code"`
			Msg  string `json:"error_msg"`
		} `json:"error"`
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, vkUsersGetURL+"?"+q.Encode(), nil)
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("build vk users.get request: %w", err)
	}
	if err := v.doJSON(req, &body); err != nil {
		return domain.ProviderProfile{}, err
	}
	if body.Error != nil || len(body.Response) == 0 {
		return domain.ProviderProfile{}, domain.ErrTokenInvalid
	}
	u := body.Response[0]
	return domain.ProviderProfile{
		Provider:  ProviderVK,
		AccountID: strconv.FormatInt(u.ID, 10),
		FullName:  strings.TrimSpace(u.FirstName + " " + u.LastName),
	}, nil
}

func (v *OAuthValidator) doJSON(req *http.Request, dst any) error {
	resp, err := v.client().Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrTokenInvalid
	default:
		return fmt.Errorf("%s responded %d", req.URL.Host, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Host, err)
	}
	return nil
}
