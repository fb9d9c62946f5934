package keys

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/filex"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
)

// FilesystemStore keeps one directory per user below root. A user's
// namespace exists once <user>/.namespace has been created; key and blob
// writes create the directory but never the marker.
//
//	<user>/public-keys/<kid>.json
//	<user>/symmetric-keys/<kid>.key
//	<user>/devices/<device>/public-keys/<kid>.json
//	<user>/devices/<device>/private-keys/<kid>.enc
//	<user>/devices/<device>/keys/<kid>
//	<user>/documents/<document>/meta-data
//	<user>/documents/<document>/shared-keys/<recipient>/<kid>.key
const namespaceMarker = ".namespace"

type FilesystemStore struct {
	root string
}

func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if err := filex.EnsureDir(root); err != nil {
		return nil, err
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) CreateNamespace(_ context.Context, user string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	err := filex.WriteExclusive(s.namespaceMarker(user), nil)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("namespace %s: %w", user, common.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create namespace %s: %w", user, err)
	}
	return nil
}

func (s *FilesystemStore) NamespaceExists(_ context.Context, user string) (bool, error) {
	if err := validateUser(user); err != nil {
		return false, err
	}
	return filex.Exists(s.namespaceMarker(user))
}

func (s *FilesystemStore) namespaceMarker(user string) string {
	return filepath.Join(s.root, user, namespaceMarker)
}

func (s *FilesystemStore) StoreOnce(_ context.Context, scope models.Scope, kid string, payload []byte) error {
	if err := validate(scope, kid); err != nil {
		return err
	}
	err := filex.WriteExclusive(s.file(scope, kid), payload)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s/%s: %w", scope.Kind, kid, common.ErrConflict)
	}
	return err
}

func (s *FilesystemStore) StoreReplacing(_ context.Context, scope models.Scope, kid string, payload []byte) error {
	if err := validateReplacing(scope, kid); err != nil {
		return err
	}
	return filex.WriteReplacing(s.file(scope, kid), payload)
}

func (s *FilesystemStore) Load(_ context.Context, scope models.Scope, kid string) ([]byte, bool, error) {
	if err := validate(scope, kid); err != nil {
		return nil, false, err
	}
	return filex.ReadIfExists(s.file(scope, kid))
}

func (s *FilesystemStore) List(ctx context.Context, scope models.Scope) ([]Record, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	dir, suffix := s.dir(scope)
	if scope.Kind == models.ScopeDocumentMetadata {
		return s.listMetadata(ctx, scope, dir)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		records = append(records, Record{Kid: strings.TrimSuffix(name, suffix), Payload: data})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Kid < records[j].Kid })
	return records, nil
}

func (s *FilesystemStore) listMetadata(ctx context.Context, scope models.Scope, dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, ok, err := s.Load(ctx, scope, e.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, Record{Kid: e.Name(), Payload: data})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Kid < records[j].Kid })
	return records, nil
}

func (s *FilesystemStore) Ping(context.Context) error {
	fi, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("root %s is not a directory", s.root)
	}
	return nil
}

func (s *FilesystemStore) Close() error { return nil }

// dir returns the directory holding the records of scope and the file name
// suffix appended to each kid.
func (s *FilesystemStore) dir(scope models.Scope) (string, string) {
	home := filepath.Join(s.root, scope.User)
	switch scope.Kind {
	case models.ScopeUserPublic:
		return filepath.Join(home, "public-keys"), ".json"
	case models.ScopeUserSymmetric:
		return filepath.Join(home, "symmetric-keys"), ".key"
	case models.ScopeDevicePublic:
		return filepath.Join(home, "devices", scope.Device, "public-keys"), ".json"
	case models.ScopeDevicePrivate:
		return filepath.Join(home, "devices", scope.Device, "private-keys"), ".enc"
	case models.ScopeDeviceArbitrary:
		return filepath.Join(home, "devices", scope.Device, "keys"), ""
	case models.ScopeSharedDocumentKey:
		return filepath.Join(home, "documents", scope.Document, "shared-keys", scope.Recipient), ".key"
	default: // models.ScopeDocumentMetadata
		return filepath.Join(home, "documents"), ""
	}
}

func (s *FilesystemStore) file(scope models.Scope, kid string) string {
	dir, suffix := s.dir(scope)
	if scope.Kind == models.ScopeDocumentMetadata {
		return filepath.Join(dir, kid, "meta-data")
	}
	return filepath.Join(dir, kid+suffix)
}
