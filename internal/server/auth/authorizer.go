package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/logging"
)

// Verifier is the part of TokenCodec the authorizer needs.
type Verifier interface {
	Verify(token string) (Claims, bool)
}

// Authorizer decides per request whether the caller may proceed. It keeps
// no state between calls.
type Authorizer struct {
	verifier Verifier
	logger   logging.Logger
}

func NewAuthorizer(v Verifier, l logging.Logger) *Authorizer {
	return &Authorizer{verifier: v, logger: l.With("module", "authorizer")}
}

// Authorize applies the route classification to token. Public routes
// return ok == false without looking at the token. Otherwise the verified
// principal is returned, or ErrUnauthenticated / ErrForbidden. On
// ErrForbidden p still names the caller.
func (a *Authorizer) Authorize(method string, segments []string, token string) (p Principal, ok bool, err error) {
	class := Classify(method, segments)
	if class == Public {
		return Principal{}, false, nil
	}

	p, err = a.Identify(token)
	if err != nil {
		return Principal{}, false, err
	}

	if class == AuthenticatedSameUser {
		target, _ := TargetUser(segments)
		if target != p.Email {
			return p, false, common.ErrForbidden
		}
	}

	return p, true, nil
}

// Identify verifies token without any route check.
func (a *Authorizer) Identify(token string) (Principal, error) {
	if token == "" {
		return Principal{}, common.ErrUnauthenticated
	}
	claims, ok := a.verifier.Verify(token)
	if !ok {
		return Principal{}, common.ErrUnauthenticated
	}
	return Principal{Email: claims.Subject}, nil
}

// Middleware guards every route below prefix. On success the principal is
// attached to the request context.
func (a *Authorizer) Middleware(prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			segments := Segments(strings.TrimPrefix(r.URL.Path, prefix))

			p, ok, err := a.Authorize(r.Method, segments, TokenFromRequest(r))
			switch {
			case errors.Is(err, common.ErrForbidden):
				a.logger.Warn(r.Context(), "subject does not match path", "method", r.Method, "path", r.URL.Path, "subject", p.Email)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			case err != nil:
				a.logger.Debug(r.Context(), "rejected unauthenticated request", "method", r.Method, "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			if ok {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenFromRequest reads the token cookie, falling back to a bearer
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(common.TokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// TokenCookie builds the cookie that carries a freshly issued token.
func TokenCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
