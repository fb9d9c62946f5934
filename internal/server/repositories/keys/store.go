// Package keys is the custody store for key material: write-once records
// per user, device, document and recipient, with a single last-write-wins
// exception for device keys addressed by an arbitrary kid.
package keys

import (
	"context"
	"fmt"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/filex"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
)

// Record is one stored payload and its kid.
type Record struct {
	Kid     string
	Payload []byte
}

// Store is implemented by every storage backend.
//
// Absence is reported as found == false, never as an error. Write-once
// collisions return common.ErrConflict and leave the existing record
// untouched.
type Store interface {
	CreateNamespace(ctx context.Context, user string) error
	NamespaceExists(ctx context.Context, user string) (bool, error)
	StoreOnce(ctx context.Context, scope models.Scope, kid string, payload []byte) error
	StoreReplacing(ctx context.Context, scope models.Scope, kid string, payload []byte) error
	Load(ctx context.Context, scope models.Scope, kid string) (payload []byte, found bool, err error)
	List(ctx context.Context, scope models.Scope) ([]Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// validateScope checks that every component the kind needs is present and
// safe to use as a path segment or key part.
func validateScope(scope models.Scope) error {
	parts := []string{scope.User}
	switch scope.Kind {
	case models.ScopeUserPublic, models.ScopeUserSymmetric, models.ScopeDocumentMetadata:
	case models.ScopeDevicePublic, models.ScopeDevicePrivate, models.ScopeDeviceArbitrary:
		parts = append(parts, scope.Device)
	case models.ScopeSharedDocumentKey:
		parts = append(parts, scope.Document, scope.Recipient)
	default:
		return fmt.Errorf("%w: unknown scope kind %q", common.ErrorValidation, scope.Kind)
	}
	for _, p := range parts {
		if err := filex.CheckSegment(p); err != nil {
			return fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
	}
	return nil
}

func validate(scope models.Scope, kid string) error {
	if err := validateScope(scope); err != nil {
		return err
	}
	if err := filex.CheckSegment(kid); err != nil {
		return fmt.Errorf("%w: kid: %v", common.ErrorValidation, err)
	}
	return nil
}

func validateReplacing(scope models.Scope, kid string) error {
	if !scope.Kind.Replaceable() {
		return fmt.Errorf("%w: %s records are write-once", common.ErrorValidation, scope.Kind)
	}
	return validate(scope, kid)
}

func validateUser(user string) error {
	if err := filex.CheckSegment(user); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}
