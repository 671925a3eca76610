package service

import (
	"context"
	"io"
)

// SourceOpener opens an upstream list for streaming
type SourceOpener interface {
	// Open returns the list body. The caller must close it.
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}
