package services

import (
	"context"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/logging"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
	"github.com/secure-doc/imagey-cloud/internal/server/repositories/keys"
)

// KeyService exposes the key record spaces of a user. Payloads are opaque
// and returned exactly as stored.
type KeyService struct {
	store  keys.Store
	logger logging.Logger
}

func NewKeyService(store keys.Store, l logging.Logger) *KeyService {
	return &KeyService{store: store, logger: l.With("module", "keys")}
}

func (s *KeyService) PublicKey(ctx context.Context, user, kid string) ([]byte, error) {
	return load(ctx, s.store, models.UserPublicKeys(user), kid)
}

func (s *KeyService) StorePublicKey(ctx context.Context, user, kid string, payload []byte) error {
	return s.store.StoreOnce(ctx, models.UserPublicKeys(user), kid, payload)
}

func (s *KeyService) SymmetricKey(ctx context.Context, user, kid string) ([]byte, error) {
	return load(ctx, s.store, models.UserSymmetricKeys(user), kid)
}

func (s *KeyService) StoreSymmetricKey(ctx context.Context, user, kid string, payload []byte) error {
	return s.store.StoreOnce(ctx, models.UserSymmetricKeys(user), kid, payload)
}

func (s *KeyService) DevicePublicKey(ctx context.Context, user, device, kid string) ([]byte, error) {
	return load(ctx, s.store, models.DevicePublicKeys(user, device), kid)
}

// StoreDevicePublicKey stores the single public key a device may register.
// It always lands under the initial kid.
func (s *KeyService) StoreDevicePublicKey(ctx context.Context, user, device string, payload []byte) error {
	return s.store.StoreOnce(ctx, models.DevicePublicKeys(user, device), common.InitialKid, payload)
}

func (s *KeyService) DevicePrivateKey(ctx context.Context, user, device, kid string) ([]byte, error) {
	return load(ctx, s.store, models.DevicePrivateKeys(user, device), kid)
}

func (s *KeyService) StoreDevicePrivateKey(ctx context.Context, user, device, kid string, payload []byte) error {
	return s.store.StoreOnce(ctx, models.DevicePrivateKeys(user, device), kid, payload)
}

func (s *KeyService) DeviceKey(ctx context.Context, user, device, kid string) ([]byte, error) {
	return load(ctx, s.store, models.DeviceKeys(user, device), kid)
}

// StoreDeviceKey overwrites any previous payload under kid.
func (s *KeyService) StoreDeviceKey(ctx context.Context, user, device, kid string, payload []byte) error {
	if err := s.store.StoreReplacing(ctx, models.DeviceKeys(user, device), kid, payload); err != nil {
		return err
	}
	s.logger.Debug(ctx, "device key replaced", "device", device, "kid", kid)
	return nil
}

// Ping reports whether the underlying store is reachable.
func (s *KeyService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// load turns absence into common.ErrorNotFound.
func load(ctx context.Context, store keys.Store, scope models.Scope, kid string) ([]byte, error) {
	payload, found, err := store.Load(ctx, scope, kid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, common.ErrorNotFound
	}
	return payload, nil
}
