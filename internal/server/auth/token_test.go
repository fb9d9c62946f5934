package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
)

var alice = models.User{Email: "alice@example.com"}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec([]byte("super-secret"))

	tok, err := codec.Issue(alice, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, ok := codec.Verify(tok)
	if !ok {
		t.Fatalf("expected token to verify")
	}
	if claims.Subject != alice.Email {
		t.Fatalf("subject mismatch: got %q want %q", claims.Subject, alice.Email)
	}
	if claims.Issuer != common.TokenIssuer {
		t.Fatalf("issuer mismatch: got %q", claims.Issuer)
	}
}

func TestVerify_NonPositiveValidityIsExpired(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec([]byte("secret"))
	for _, d := range []time.Duration{0, -time.Second, -24 * time.Hour} {
		tok, err := codec.Issue(alice, d)
		if err != nil {
			t.Fatalf("Issue(%v) error: %v", d, err)
		}
		if _, ok := codec.Verify(tok); ok {
			t.Fatalf("token issued with validity %v must not verify", d)
		}
	}
}

func TestVerify_ExpiresAtBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	codec := NewTokenCodec([]byte("secret"), WithClock(func() time.Time { return clock }))

	tok, err := codec.Issue(alice, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	clock = now.Add(59 * time.Second)
	if _, ok := codec.Verify(tok); !ok {
		t.Fatalf("token must verify before expiry")
	}

	clock = now.Add(time.Minute)
	if _, ok := codec.Verify(tok); ok {
		t.Fatalf("token must not verify at expiry")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenCodec([]byte("right-secret")).Issue(alice, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, ok := NewTokenCodec([]byte("wrong-secret")).Verify(tok); ok {
		t.Fatalf("token signed with another secret must not verify")
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec([]byte("secret"))
	tok, err := codec.Issue(alice, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	sigStart := strings.LastIndex(tok, ".") + 1
	for i := sigStart; i < len(tok); i++ {
		b := []byte(tok)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		if _, ok := codec.Verify(string(b)); ok {
			t.Fatalf("tampered token (byte %d) must not verify", i)
		}
	}
}

func TestVerify_TrailingSignatureBits(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec([]byte("secret"))
	tok, err := codec.Issue(alice, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// The last character of an HS256 signature carries two unused bits.
	// Every other value for it must be rejected.
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := tok[len(tok)-1]
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == last {
			continue
		}
		tampered := tok[:len(tok)-1] + string(alphabet[i])
		if _, ok := codec.Verify(tampered); ok {
			t.Fatalf("token with last character %q must not verify", alphabet[i])
		}
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   alice.Email,
		Issuer:    "https://evil.example",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	if _, ok := NewTokenCodec(secret).Verify(tok); ok {
		t.Fatalf("token from a foreign issuer must not verify")
	}
}

func TestVerify_MissingExpiry(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: alice.Email,
		Issuer:  common.TokenIssuer,
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	if _, ok := NewTokenCodec(secret).Verify(tok); ok {
		t.Fatalf("token without exp must not verify")
	}
}

func TestVerify_OtherAlgorithmRejected(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   alice.Email,
		Issuer:    common.TokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	if _, ok := NewTokenCodec(secret).Verify(tok); ok {
		t.Fatalf("HS512 token must not verify")
	}
}

func TestVerify_MalformedInputNeverPanics(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec([]byte("secret"))
	inputs := []string{"", ".", "..", "a.b.c", "not-a-token", "eyJhbGciOiJub25lIn0.e30.", strings.Repeat("x", 4096)}
	for _, in := range inputs {
		if _, ok := codec.Verify(in); ok {
			t.Fatalf("malformed input %q must not verify", in)
		}
	}
}

func TestVerifyErrors_DistinguishMalformed(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec([]byte("secret"))
	if _, err := codec.verify("garbage"); err != common.ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}

	expired, err := codec.Issue(alice, -time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := codec.verify(expired); err != common.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMatchesUser(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec([]byte("secret"))
	bob := models.User{Email: "bob@example.com"}

	tok, err := codec.Issue(alice, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if !codec.MatchesUser(tok, alice) {
		t.Fatalf("token must match its subject")
	}
	if codec.MatchesUser(tok, bob) {
		t.Fatalf("token must not match another user")
	}
	if codec.MatchesUser("garbage", alice) {
		t.Fatalf("garbage must not match")
	}
}

func TestIssue_EmptySubject(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenCodec([]byte("secret")).Issue(models.User{}, time.Hour); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
