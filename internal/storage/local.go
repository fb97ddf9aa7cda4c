package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// URLPrefix is the public path local attachments are served under.
const URLPrefix = "/uploads/"

// Local writes attachments into Dir and references them as
// "/uploads/<name>".
type Local struct {
	Dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: dir}, nil
}

func (l *Local) Save(_ context.Context, ext string, r io.Reader, _ int64, _ string) (string, error) {
	name := objectName(ext)
	f, err := os.OpenFile(filepath.Join(l.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return URLPrefix + name, nil
}

// path maps ref back to a file inside Dir, refusing anything that would
// escape it.
func (l *Local) path(ref string) (string, error) {
	name := strings.TrimPrefix(ref, URLPrefix)
	if name == "" || name == ref || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrUnknownRef
	}
	return filepath.Join(l.Dir, name), nil
}

func (l *Local) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	p, err := l.path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (l *Local) Remove(_ context.Context, ref string) error {
	p, err := l.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
