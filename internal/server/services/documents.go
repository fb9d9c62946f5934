package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/logging"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
	"github.com/secure-doc/imagey-cloud/internal/server/repositories/blobs"
	"github.com/secure-doc/imagey-cloud/internal/server/repositories/keys"
)

// DocumentService manages document metadata, encrypted content and the
// document keys shared with other users.
type DocumentService struct {
	store  keys.Store
	blobs  blobs.Store
	logger logging.Logger
}

func NewDocumentService(store keys.Store, b blobs.Store, l logging.Logger) *DocumentService {
	return &DocumentService{store: store, blobs: b, logger: l.With("module", "documents")}
}

// List returns the metadata of every document of user, ordered by id.
func (s *DocumentService) List(ctx context.Context, user string) ([]models.DocumentMetadata, error) {
	records, err := s.store.List(ctx, models.DocumentMetadataScope(user))
	if err != nil {
		return nil, err
	}

	result := make([]models.DocumentMetadata, 0, len(records))
	for _, r := range records {
		var m models.DocumentMetadata
		if err := json.Unmarshal(r.Payload, &m); err != nil {
			return nil, fmt.Errorf("%w: metadata of %s: %v", common.ErrorInternal, r.Kid, err)
		}
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DocumentID < result[j].DocumentID })
	return result, nil
}

func (s *DocumentService) Metadata(ctx context.Context, user, document string) (models.DocumentMetadata, error) {
	payload, err := load(ctx, s.store, models.DocumentMetadataScope(user), document)
	if err != nil {
		return models.DocumentMetadata{}, err
	}
	var m models.DocumentMetadata
	if err := json.Unmarshal(payload, &m); err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("%w: metadata of %s: %v", common.ErrorInternal, document, err)
	}
	return m, nil
}

// StoreMetadata records the metadata of a new document. The id in the body
// must match the addressed document.
func (s *DocumentService) StoreMetadata(ctx context.Context, user, document string, m models.DocumentMetadata) error {
	if m.DocumentID != document {
		return fmt.Errorf("%w: document id %q does not match %q", common.ErrForbidden, m.DocumentID, document)
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if err := s.store.StoreOnce(ctx, models.DocumentMetadataScope(user), document, payload); err != nil {
		return err
	}
	s.logger.Info(ctx, "document created", "document", document)
	return nil
}

func (s *DocumentService) Content(ctx context.Context, user, document, content string) ([]byte, error) {
	data, found, err := s.blobs.Get(ctx, user, document, content)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, common.ErrorNotFound
	}
	return data, nil
}

func (s *DocumentService) StoreContent(ctx context.Context, user, document, content string, data []byte) error {
	return s.blobs.Put(ctx, user, document, content, data)
}

func (s *DocumentService) SharedKey(ctx context.Context, user, document, recipient string) ([]byte, error) {
	return load(ctx, s.store, models.SharedDocumentKeys(user, document, recipient), models.SharedKeyKid)
}

// StoreSharedKey stores the document key encrypted for recipient. Each
// recipient receives at most one key per document.
func (s *DocumentService) StoreSharedKey(ctx context.Context, user, document, recipient string, payload []byte) error {
	if err := models.ValidateEmail(recipient); err != nil {
		return err
	}
	return s.store.StoreOnce(ctx, models.SharedDocumentKeys(user, document, recipient), models.SharedKeyKid, payload)
}
