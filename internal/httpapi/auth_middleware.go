package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"Ziyarawebserver/internal/domain"
	"Ziyarawebserver/internal/service"
)

type authCtxKey int

const authUserKey authCtxKey = iota

// AccessVerifier checks a bearer token and returns its subject user id.
type AccessVerifier interface {
	VerifyAccess(raw string) (string, error)
}

func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		userID, err := a.verifier.VerifyAccess(raw)
		if err != nil {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		// a valid token for a deleted user is still unauthorized
		u, err := a.userSvc.GetMe(r.Context(), userID)
		if err != nil {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authUserKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func CurrentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(authUserKey).(domain.User)
	return u, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}
