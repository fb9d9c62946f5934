package services

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/logging"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func newDocumentService(t *testing.T) *DocumentService {
	t.Helper()
	return NewDocumentService(newKeyStore(t), newBlobStore(t), logging.Discard())
}

func TestDocumentService_Metadata(t *testing.T) {
	ctx := context.Background()
	svc := newDocumentService(t)

	meta := models.DocumentMetadata{
		Name:         "holiday.jpg",
		Type:         "image/jpeg",
		Size:         2048,
		DocumentID:   "doc-b",
		SmallImageID: ptr("small-1"),
	}

	_, err := svc.Metadata(ctx, alice, "doc-b")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, svc.StoreMetadata(ctx, alice, "doc-b", meta))
	assert.ErrorIs(t, svc.StoreMetadata(ctx, alice, "doc-b", meta), common.ErrConflict)

	got, err := svc.Metadata(ctx, alice, "doc-b")
	require.NoError(t, err)
	if diff := cmp.Diff(meta, got); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentService_StoreMetadataIDMismatch(t *testing.T) {
	svc := newDocumentService(t)
	err := svc.StoreMetadata(context.Background(), alice, "doc-a", models.DocumentMetadata{DocumentID: "doc-b"})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()
	svc := newDocumentService(t)

	empty, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, id := range []string{"doc-c", "doc-a", "doc-b"} {
		require.NoError(t, svc.StoreMetadata(ctx, alice, id, models.DocumentMetadata{Name: id, DocumentID: id}))
	}
	require.NoError(t, svc.StoreMetadata(ctx, bob, "doc-z", models.DocumentMetadata{DocumentID: "doc-z"}))

	got, err := svc.List(ctx, alice)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, m := range got {
		ids = append(ids, m.DocumentID)
	}
	assert.Equal(t, []string{"doc-a", "doc-b", "doc-c"}, ids)
}

func TestDocumentService_ListStoreError(t *testing.T) {
	store := &failingStore{Store: newKeyStore(t), listErr: errBoom}
	svc := NewDocumentService(store, newBlobStore(t), logging.Discard())
	_, err := svc.List(context.Background(), alice)
	assert.ErrorIs(t, err, errBoom)
}

func TestDocumentService_Content(t *testing.T) {
	ctx := context.Background()
	svc := newDocumentService(t)

	_, err := svc.Content(ctx, alice, "doc-a", "c1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, svc.StoreContent(ctx, alice, "doc-a", "c1", []byte{0x01, 0x02}))
	require.NoError(t, svc.StoreContent(ctx, alice, "doc-a", "c1", []byte{0x03}))

	got, err := svc.Content(ctx, alice, "doc-a", "c1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03}, got)
}

func TestDocumentService_SharedKeys(t *testing.T) {
	ctx := context.Background()
	svc := newDocumentService(t)

	require.NoError(t, svc.StoreSharedKey(ctx, alice, "doc-a", bob, []byte("for-bob")))
	assert.ErrorIs(t, svc.StoreSharedKey(ctx, alice, "doc-a", bob, []byte("again")), common.ErrConflict)
	assert.ErrorIs(t, svc.StoreSharedKey(ctx, alice, "doc-a", "nobody", []byte("x")), common.ErrorValidation)

	got, err := svc.SharedKey(ctx, alice, "doc-a", bob)
	require.NoError(t, err)
	assert.Equal(t, "for-bob", string(got))

	_, err = svc.SharedKey(ctx, alice, "doc-b", bob)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
