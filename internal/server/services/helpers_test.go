package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/secure-doc/imagey-cloud/internal/logging"
	"github.com/secure-doc/imagey-cloud/internal/server/auth"
	"github.com/secure-doc/imagey-cloud/internal/server/config"
	"github.com/secure-doc/imagey-cloud/internal/server/mail"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
	"github.com/secure-doc/imagey-cloud/internal/server/repositories/blobs"
	"github.com/secure-doc/imagey-cloud/internal/server/repositories/keys"
	"github.com/stretchr/testify/require"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

type sentMail struct {
	recipient string
	tpl       mail.Template
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, recipient string, t mail.Template, values ...any) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{recipient: recipient, tpl: mail.Render(t, values...)})
	return nil
}

func (f *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail sent")
	return f.sent[len(f.sent)-1]
}

// failingStore wraps a real store and fails the selected operations.
type failingStore struct {
	keys.Store
	namespaceErr error
	storeOnceErr error
	listErr      error
}

func (f *failingStore) NamespaceExists(ctx context.Context, user string) (bool, error) {
	if f.namespaceErr != nil {
		return false, f.namespaceErr
	}
	return f.Store.NamespaceExists(ctx, user)
}

func (f *failingStore) StoreOnce(ctx context.Context, scope models.Scope, kid string, payload []byte) error {
	if f.storeOnceErr != nil {
		return f.storeOnceErr
	}
	return f.Store.StoreOnce(ctx, scope, kid, payload)
}

func (f *failingStore) List(ctx context.Context, scope models.Scope) ([]keys.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.List(ctx, scope)
}

var errBoom = errors.New("boom")

func newKeyStore(t *testing.T) *keys.FilesystemStore {
	t.Helper()
	s, err := keys.NewFilesystemStore(filepath.Join(t.TempDir(), "keys"))
	require.NoError(t, err)
	return s
}

func newBlobStore(t *testing.T) *blobs.FilesystemStore {
	t.Helper()
	s, err := blobs.NewFilesystemStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)
	return s
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PublicBaseURL = "https://imagey.test/"
	cfg.LinkTokenValidityDuration = time.Hour
	cfg.SessionTokenValidityDuration = 2 * time.Hour
	return cfg
}

func newCodec(now time.Time) *auth.TokenCodec {
	return auth.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), auth.WithClock(func() time.Time { return now }))
}

func newAuthService(t *testing.T, store keys.Store, mailer mail.Sender, codec *auth.TokenCodec) *AuthenticationService {
	t.Helper()
	return NewAuthenticationService(store, codec, mailer, testConfig(), logging.Discard())
}

func registration(email string) models.Registration {
	return models.Registration{
		Email:               email,
		DeviceID:            "device-1",
		MainPublicKey:       `{"kty":"EC","crv":"P-256"}`,
		DevicePublicKey:     `{"kty":"EC","crv":"P-256","d":"dev"}`,
		EncryptedPrivateKey: "ciphertext",
	}
}
