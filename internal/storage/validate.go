package storage

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"strings"
)

// Attachment intake errors.  Handlers answer both with 400.
var (
	ErrFileTooLarge = errors.New("file too large")
	ErrFileType     = errors.New("only image (jpeg, jpg, png) and PDF files are allowed")
)

var allowedExt = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".pdf": true}

var allowedMIME = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
}

// ValidateAttachment checks an uploaded file against maxBytes and the
// allowed types.  Both the extension and the declared MIME type must be
// acceptable.
func ValidateAttachment(fh *multipart.FileHeader, maxBytes int64) error {
	if maxBytes > 0 && fh.Size > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, fh.Size, maxBytes)
	}
	if !allowedExt[Ext(fh.Filename)] {
		return ErrFileType
	}
	mt, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil || !allowedMIME[strings.ToLower(mt)] {
		return ErrFileType
	}
	return nil
}
