package keys

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/secure-doc/imagey-cloud/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStore_Layout(t *testing.T) {
	root := t.TempDir()
	s, err := NewFilesystemStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.CreateNamespace(ctx, alice))
	require.NoError(t, s.StoreOnce(ctx, models.UserPublicKeys(alice), "0", []byte("pub")))
	require.NoError(t, s.StoreOnce(ctx, models.UserSymmetricKeys(alice), "0", []byte("sym")))
	require.NoError(t, s.StoreOnce(ctx, models.DevicePublicKeys(alice, "d1"), "0", []byte("dpub")))
	require.NoError(t, s.StoreOnce(ctx, models.DevicePrivateKeys(alice, "d1"), "0", []byte("dpriv")))
	require.NoError(t, s.StoreReplacing(ctx, models.DeviceKeys(alice, "d1"), "k", []byte("dkey")))
	require.NoError(t, s.StoreOnce(ctx, models.DocumentMetadataScope(alice), "doc-1", []byte("{}")))
	require.NoError(t, s.StoreOnce(ctx, models.SharedDocumentKeys(alice, "doc-1", "bob@example.com"), models.SharedKeyKid, []byte("shared")))

	files := map[string]string{
		"public-keys/0.json":                                               "pub",
		"symmetric-keys/0.key":                                             "sym",
		"devices/d1/public-keys/0.json":                                    "dpub",
		"devices/d1/private-keys/0.enc":                                    "dpriv",
		"devices/d1/keys/k":                                                "dkey",
		"documents/doc-1/meta-data":                                        "{}",
		"documents/doc-1/shared-keys/bob@example.com/encrypted-shared.key": "shared",
	}
	for rel, want := range files {
		got, err := os.ReadFile(filepath.Join(root, alice, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.Equal(t, want, string(got), rel)
	}
}

func TestFilesystemStore_PingMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	s, err := NewFilesystemStore(root)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(root))
	assert.Error(t, s.Ping(context.Background()))
}

func TestNewFilesystemStore_RootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o600))

	_, err := NewFilesystemStore(root)
	assert.Error(t, err)
}
