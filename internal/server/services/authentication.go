// Package services contains server-side business logic. This file implements
// AuthenticationService, which runs the password-less flow: mailing sign-in
// and registration links, creating user namespaces, and exchanging link
// tokens for session tokens.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/logging"
	"github.com/secure-doc/imagey-cloud/internal/server/auth"
	"github.com/secure-doc/imagey-cloud/internal/server/config"
	"github.com/secure-doc/imagey-cloud/internal/server/mail"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
	"github.com/secure-doc/imagey-cloud/internal/server/repositories/keys"
)

// Tokens is the part of auth.TokenCodec the flow depends on.
type Tokens interface {
	Issue(user models.User, validity time.Duration) (string, error)
	Verify(token string) (auth.Claims, bool)
}

// AuthenticationService decides between login and registration, sends the
// matching mail, and persists the key material of new users.
type AuthenticationService struct {
	store           keys.Store
	tokens          Tokens
	mailer          mail.Sender
	baseURL         string
	linkValidity    time.Duration
	sessionValidity time.Duration
	logger          logging.Logger
}

// NewAuthenticationService constructs an AuthenticationService from its
// collaborators and the immutable server config.
func NewAuthenticationService(store keys.Store, tokens Tokens, mailer mail.Sender, cfg *config.Config, l logging.Logger) *AuthenticationService {
	return &AuthenticationService{
		store:           store,
		tokens:          tokens,
		mailer:          mailer,
		baseURL:         strings.TrimRight(cfg.PublicBaseURL, "/"),
		linkValidity:    cfg.LinkTokenValidityDuration,
		sessionValidity: cfg.SessionTokenValidityDuration,
		logger:          l.With("module", "authentication"),
	}
}

// StartAuthentication mails a sign-in link to users that already have a
// namespace and a registration link to everyone else. Nothing is persisted.
func (s *AuthenticationService) StartAuthentication(ctx context.Context, user models.User) (models.AuthenticationStatus, error) {
	if err := models.ValidateEmail(user.Email); err != nil {
		return 0, err
	}

	exists, err := s.store.NamespaceExists(ctx, user.Email)
	if err != nil {
		return 0, fmt.Errorf("lookup namespace: %w", err)
	}

	token, err := s.tokens.Issue(user, s.linkValidity)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	status, tpl, path := models.RegistrationStarted, mail.RegistrationMail, "/registrations/"
	if exists {
		status, tpl, path = models.AuthenticationStarted, mail.LoginMail, "/authentications/"
	}

	if err := s.mailer.Send(ctx, user.Email, tpl, s.baseURL+path+token); err != nil {
		s.logger.Warn(ctx, "sending link failed", "status", status.String(), "error", err)
		if errors.Is(err, common.ErrMailUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", common.ErrMailUnavailable, err)
	}

	s.logger.Info(ctx, "link sent", "status", status.String())
	return status, nil
}

// CompleteRegistration creates the namespace of a new user and stores the
// initial key material under kid "0". The caller is responsible for checking
// that the request was made by the user being registered.
func (s *AuthenticationService) CompleteRegistration(ctx context.Context, r models.Registration) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if err := s.store.CreateNamespace(ctx, r.Email); err != nil {
		return err
	}

	if err := s.store.StoreOnce(ctx, models.UserPublicKeys(r.Email), common.InitialKid, []byte(r.MainPublicKey)); err != nil {
		return fmt.Errorf("store main public key: %w", err)
	}
	if err := s.store.StoreOnce(ctx, models.DevicePrivateKeys(r.Email, r.DeviceID), common.InitialKid, []byte(r.EncryptedPrivateKey)); err != nil {
		return fmt.Errorf("store device private key: %w", err)
	}
	if r.DevicePublicKey != "" {
		if err := s.store.StoreOnce(ctx, models.DevicePublicKeys(r.Email, r.DeviceID), common.InitialKid, []byte(r.DevicePublicKey)); err != nil {
			return fmt.Errorf("store device public key: %w", err)
		}
	}

	s.logger.Info(ctx, "user registered", "device", r.DeviceID)
	return nil
}

// ConsumeLinkToken verifies a token taken from a mailed link and issues a
// session token for its subject. Login links additionally require the
// namespace to exist.
func (s *AuthenticationService) ConsumeLinkToken(ctx context.Context, token string, requireNamespace bool) (models.User, string, error) {
	claims, ok := s.tokens.Verify(token)
	if !ok {
		return models.User{}, "", common.ErrUnauthenticated
	}
	user := models.User{Email: claims.Subject}

	if requireNamespace {
		exists, err := s.store.NamespaceExists(ctx, user.Email)
		if err != nil {
			return models.User{}, "", fmt.Errorf("lookup namespace: %w", err)
		}
		if !exists {
			return models.User{}, "", common.ErrorNotFound
		}
	}

	session, err := s.tokens.Issue(user, s.sessionValidity)
	if err != nil {
		return models.User{}, "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return user, session, nil
}
