// Package blobs stores encrypted document content. Content is opaque and
// may be overwritten; the server never inspects it.
package blobs

import (
	"context"
	"fmt"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/filex"
)

// Store is implemented by the filesystem and S3 backends.
type Store interface {
	Put(ctx context.Context, user, document, content string, data []byte) error
	Get(ctx context.Context, user, document, content string) (data []byte, found bool, err error)
	Ping(ctx context.Context) error
}

func validate(user, document, content string) error {
	for _, s := range []string{user, document, content} {
		if err := filex.CheckSegment(s); err != nil {
			return fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
	}
	return nil
}
