// Package auth issues and verifies bearer tokens and decides, per request,
// whether a caller may reach a route.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
)

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// TokenCodec signs and verifies HS256 tokens with one shared secret. It is
// stateless and safe for concurrent use.
type TokenCodec struct {
	key    []byte
	now    func() time.Time
	parser *jwt.Parser
}

type CodecOption func(*TokenCodec)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(key []byte, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		key: append([]byte(nil), key...),
		now: time.Now,
		// Expiry and issuer are checked by Verify against the codec clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue mints a token for user that expires validity from now. Zero or
// negative validity yields a token that is already expired.
func (c *TokenCodec) Issue(user models.User, validity time.Duration) (string, error) {
	if user.Email == "" {
		return "", errors.New("issue token: empty subject")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.Email,
		Issuer:    common.TokenIssuer,
		ExpiresAt: jwt.NewNumericDate(c.now().Add(validity)),
	})
	return token.SignedString(c.key)
}

// Verify returns the claims of a well-formed, correctly signed, unexpired
// token from our issuer. Every other input yields ok == false.
func (c *TokenCodec) Verify(token string) (Claims, bool) {
	claims, err := c.verify(token)
	if err != nil {
		return Claims{}, false
	}
	return claims, true
}

func (c *TokenCodec) verify(token string) (Claims, error) {
	if token == "" {
		return Claims{}, common.ErrMalformed
	}

	rc := &jwt.RegisteredClaims{}
	parsed, err := c.parser.ParseWithClaims(token, rc, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, common.ErrMalformed
		}
		return Claims{}, common.ErrInvalidToken
	}
	if !parsed.Valid || rc.Subject == "" || rc.Issuer != common.TokenIssuer || rc.ExpiresAt == nil {
		return Claims{}, common.ErrInvalidToken
	}
	if !c.now().Before(rc.ExpiresAt.Time) {
		return Claims{}, common.ErrInvalidToken
	}

	return Claims{Subject: rc.Subject, Issuer: rc.Issuer, ExpiresAt: rc.ExpiresAt.Time}, nil
}

// MatchesUser reports whether token verifies and names user as subject.
func (c *TokenCodec) MatchesUser(token string, user models.User) bool {
	claims, ok := c.Verify(token)
	return ok && claims.Subject == user.Email
}
