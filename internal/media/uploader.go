// Package media stores user images on the media host. Callers hand over a
// path to a file staged on local disk; the uploader pushes it to the host,
// removes the local copy, and returns the public URI to persist.
package media

import (
	"context"
	"errors"
)

// ErrNoFile is returned when Upload is called without a local path.
var ErrNoFile = errors.New("no file to upload")

// Asset is an uploaded object.
type Asset struct {
	URL string
	Key string
}

// Uploader pushes a local file to the media host. The local file is
// removed whether or not the upload succeeds.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*Asset, error)
}
