// Package storage keeps contact attachments on local disk or in an
// S3-compatible bucket.  A stored attachment is identified by the
// reference string Save returns, which is what contacts.file_name holds.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store persists attachments.
type Store interface {
	// Save stores r under a fresh name keeping ext and returns its reference.
	Save(ctx context.Context, ext string, r io.Reader, size int64, contentType string) (string, error)
	// Open streams the attachment behind ref.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Remove deletes the attachment behind ref.  A missing object is not an error.
	Remove(ctx context.Context, ref string) error
}

// ErrUnknownRef is returned for a reference the store did not issue.
var ErrUnknownRef = errors.New("unknown attachment reference")

// objectName returns a collision-free file name with the lower-cased ext.
func objectName(ext string) string {
	return uuid.NewString() + strings.ToLower(ext)
}

// Ext returns the lower-cased extension of a client supplied file name.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
