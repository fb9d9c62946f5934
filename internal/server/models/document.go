package models

// DocumentMetadata describes an uploaded document. The content itself and
// its thumbnails are stored as encrypted blobs under the given ids.
type DocumentMetadata struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Size           int64   `json:"size"`
	DocumentID     string  `json:"documentId"`
	SmallImageID   *string `json:"smallImageId,omitempty"`
	PreviewImageID *string `json:"previewImageId,omitempty"`
}
