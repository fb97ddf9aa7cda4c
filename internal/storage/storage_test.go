package storage

import (
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(name, contentType string, size int64) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	return &multipart.FileHeader{Filename: name, Header: h, Size: size}
}

func TestValidateAttachment(t *testing.T) {
	const limit = 5 * 1024 * 1024
	cases := []struct {
		name string
		fh   *multipart.FileHeader
		want error
	}{
		{"png ok", header("car.PNG", "image/png", 100), nil},
		{"jpg ok", header("a.jpg", "image/jpeg", 100), nil},
		{"pdf ok", header("quote.pdf", "application/pdf", limit), nil},
		{"too large", header("big.pdf", "application/pdf", limit+1), ErrFileTooLarge},
		{"bad ext", header("x.exe", "application/pdf", 10), ErrFileType},
		{"bad mime", header("x.pdf", "application/zip", 10), ErrFileType},
		{"renamed", header("x.png", "text/plain; charset=utf-8", 10), ErrFileType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAttachment(tc.fh, limit)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLocalSaveOpenRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	st, err := NewLocal(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := st.Save(ctx, ".PDF", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, URLPrefix))
	assert.True(t, strings.HasSuffix(ref, ".pdf"))

	rc, err := st.Open(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, st.Remove(ctx, ref))
	_, err = os.Stat(filepath.Join(dir, strings.TrimPrefix(ref, URLPrefix)))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, st.Remove(ctx, ref), "removing twice is fine")
}

func TestLocalRejectsForeignRefs(t *testing.T) {
	st, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	for _, ref := range []string{"", "/etc/passwd", "/uploads/../secret", "/uploads/", "contacts/a.pdf"} {
		assert.ErrorIs(t, st.Remove(context.Background(), ref), ErrUnknownRef, ref)
	}
}

func TestS3KeyValidation(t *testing.T) {
	s := &S3{bucket: "b"}
	_, err := s.key("/uploads/a.pdf")
	assert.ErrorIs(t, err, ErrUnknownRef)
	k, err := s.key("contacts/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "contacts/a.pdf", k)
}
