package blobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/secure-doc/imagey-cloud/internal/filex"
)

// FilesystemStore writes <root>/<user>/documents/<document>/contents/<content>,
// next to the key store's document metadata.
type FilesystemStore struct {
	root string
}

func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if err := filex.EnsureDir(root); err != nil {
		return nil, err
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) Put(_ context.Context, user, document, content string, data []byte) error {
	if err := validate(user, document, content); err != nil {
		return err
	}
	return filex.WriteReplacing(s.path(user, document, content), data)
}

func (s *FilesystemStore) Get(_ context.Context, user, document, content string) ([]byte, bool, error) {
	if err := validate(user, document, content); err != nil {
		return nil, false, err
	}
	return filex.ReadIfExists(s.path(user, document, content))
}

func (s *FilesystemStore) Ping(context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	return nil
}

func (s *FilesystemStore) path(user, document, content string) string {
	return filepath.Join(s.root, user, "documents", document, "contents", content)
}
