package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/server/mail"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenFromLink(t *testing.T, body, prefix string) string {
	t.Helper()
	i := strings.Index(body, prefix)
	require.GreaterOrEqual(t, i, 0, "link %q not in %q", prefix, body)
	rest := body[i+len(prefix):]
	end := strings.IndexByte(rest, '"')
	require.Greater(t, end, 0)
	return rest[:end]
}

func TestStartAuthentication_NewUserGetsRegistrationMail(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	codec := newCodec(now)
	mailer := &fakeMailer{}
	store := newKeyStore(t)
	svc := newAuthService(t, store, mailer, codec)

	status, err := svc.StartAuthentication(ctx, models.User{Email: alice})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStarted, status)

	sent := mailer.last(t)
	assert.Equal(t, alice, sent.recipient)
	assert.Equal(t, mail.RegistrationMail.Sender, sent.tpl.Sender)
	assert.Equal(t, mail.RegistrationMail.Subject, sent.tpl.Subject)

	token := tokenFromLink(t, sent.tpl.Body, "https://imagey.test/registrations/")
	claims, ok := codec.Verify(token)
	require.True(t, ok)
	assert.Equal(t, alice, claims.Subject)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	exists, err := store.NamespaceExists(ctx, alice)
	require.NoError(t, err)
	assert.False(t, exists, "starting authentication must not persist anything")
}

func TestStartAuthentication_ExistingUserGetsLoginMail(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	store := newKeyStore(t)
	require.NoError(t, store.CreateNamespace(ctx, alice))
	svc := newAuthService(t, store, mailer, newCodec(time.Now()))

	status, err := svc.StartAuthentication(ctx, models.User{Email: alice})
	require.NoError(t, err)
	assert.Equal(t, models.AuthenticationStarted, status)

	sent := mailer.last(t)
	assert.Equal(t, mail.LoginMail.Sender, sent.tpl.Sender)
	tokenFromLink(t, sent.tpl.Body, "https://imagey.test/authentications/")
}

func TestStartAuthentication_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("mail unavailable", func(t *testing.T) {
		svc := newAuthService(t, newKeyStore(t), &fakeMailer{err: errBoom}, newCodec(time.Now()))
		_, err := svc.StartAuthentication(ctx, models.User{Email: alice})
		assert.ErrorIs(t, err, common.ErrMailUnavailable)
	})

	t.Run("storage failure", func(t *testing.T) {
		store := &failingStore{Store: newKeyStore(t), namespaceErr: errBoom}
		mailer := &fakeMailer{}
		svc := newAuthService(t, store, mailer, newCodec(time.Now()))
		_, err := svc.StartAuthentication(ctx, models.User{Email: alice})
		assert.ErrorIs(t, err, errBoom)
		assert.Empty(t, mailer.sent)
	})

	t.Run("invalid email", func(t *testing.T) {
		svc := newAuthService(t, newKeyStore(t), &fakeMailer{}, newCodec(time.Now()))
		_, err := svc.StartAuthentication(ctx, models.User{Email: "not-an-email"})
		assert.ErrorIs(t, err, common.ErrorValidation)
	})
}

func TestCompleteRegistration(t *testing.T) {
	ctx := context.Background()
	store := newKeyStore(t)
	svc := newAuthService(t, store, &fakeMailer{}, newCodec(time.Now()))
	reg := registration(alice)

	require.NoError(t, svc.CompleteRegistration(ctx, reg))

	exists, err := store.NamespaceExists(ctx, alice)
	require.NoError(t, err)
	assert.True(t, exists)

	cases := []struct {
		scope models.Scope
		want  string
	}{
		{models.UserPublicKeys(alice), reg.MainPublicKey},
		{models.DevicePrivateKeys(alice, reg.DeviceID), reg.EncryptedPrivateKey},
		{models.DevicePublicKeys(alice, reg.DeviceID), reg.DevicePublicKey},
	}
	for _, c := range cases {
		got, found, err := store.Load(ctx, c.scope, common.InitialKid)
		require.NoError(t, err)
		require.True(t, found, c.scope.Kind)
		assert.Equal(t, c.want, string(got))
	}

	err = svc.CompleteRegistration(ctx, reg)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestCompleteRegistration_WithoutDevicePublicKey(t *testing.T) {
	ctx := context.Background()
	store := newKeyStore(t)
	svc := newAuthService(t, store, &fakeMailer{}, newCodec(time.Now()))
	reg := registration(alice)
	reg.DevicePublicKey = ""

	require.NoError(t, svc.CompleteRegistration(ctx, reg))

	_, found, err := store.Load(ctx, models.DevicePublicKeys(alice, reg.DeviceID), common.InitialKid)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCompleteRegistration_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		svc := newAuthService(t, newKeyStore(t), &fakeMailer{}, newCodec(time.Now()))
		reg := registration(alice)
		reg.DeviceID = ""
		assert.ErrorIs(t, svc.CompleteRegistration(ctx, reg), common.ErrorValidation)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &failingStore{Store: newKeyStore(t), storeOnceErr: errBoom}
		svc := newAuthService(t, store, &fakeMailer{}, newCodec(time.Now()))
		assert.ErrorIs(t, svc.CompleteRegistration(ctx, registration(alice)), errBoom)
	})
}

func TestCompleteRegistration_ConcurrentOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, newKeyStore(t), &fakeMailer{}, newCodec(time.Now()))

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.CompleteRegistration(ctx, registration(alice))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, common.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)
}

func TestConsumeLinkToken(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	codec := newCodec(now)
	store := newKeyStore(t)
	svc := newAuthService(t, store, &fakeMailer{}, codec)

	link, err := codec.Issue(models.User{Email: alice}, time.Hour)
	require.NoError(t, err)

	t.Run("registration link", func(t *testing.T) {
		user, session, err := svc.ConsumeLinkToken(ctx, link, false)
		require.NoError(t, err)
		assert.Equal(t, alice, user.Email)

		claims, ok := codec.Verify(session)
		require.True(t, ok)
		assert.Equal(t, alice, claims.Subject)
		assert.Equal(t, now.Add(2*time.Hour).Unix(), claims.ExpiresAt.Unix())
	})

	t.Run("login link without namespace", func(t *testing.T) {
		_, _, err := svc.ConsumeLinkToken(ctx, link, true)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("login link with namespace", func(t *testing.T) {
		require.NoError(t, store.CreateNamespace(ctx, alice))
		user, _, err := svc.ConsumeLinkToken(ctx, link, true)
		require.NoError(t, err)
		assert.Equal(t, alice, user.Email)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, _, err := svc.ConsumeLinkToken(ctx, "garbage", false)
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := codec.Issue(models.User{Email: alice}, -time.Minute)
		require.NoError(t, err)
		_, _, err = svc.ConsumeLinkToken(ctx, expired, false)
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
	})
}
