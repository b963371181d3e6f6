package storage

import (
	"context"
	"io"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

type Deleter interface {
	Delete(ctx context.Context, objectName string) error
}

// ObjectStore holds audio only while a backend job needs it.
type ObjectStore interface {
	Uploader
	Deleter
	Close() error
}
