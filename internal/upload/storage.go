package upload

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// File is an uploaded document waiting for analysis.
type File struct {
	Name string
	Path string
}

// Storage keeps uploaded documents on local disk until the worker is done with them.
type Storage struct {
	dir     string
	allowed map[string]struct{}
}

// NewStorage stores files under dir, or under a fresh temporary directory when dir is empty.
func NewStorage(dir string, allowedExtensions []string) (*Storage, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "cv-uploads-")
		if err != nil {
			return nil, errors.Wrap(err, "creating upload folder")
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "creating upload folder %s", dir)
	}

	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}

	return &Storage{dir: dir, allowed: allowed}, nil
}

func (s *Storage) Dir() string {
	return s.dir
}

// Allowed reports whether the file extension is accepted.
func (s *Storage) Allowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	_, ok := s.allowed[ext]
	return ok
}

// Save copies r into the upload folder. The returned name is the sanitized filename, the path
// is unique so two uploads with the same name never collide.
func (s *Storage) Save(filename string, r io.Reader) (File, error) {
	name := SecureFilename(filename)
	if name == "" {
		return File{}, errors.Errorf("invalid filename %q", filename)
	}

	path := filepath.Join(s.dir, uuid.NewString()+"_"+name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return File{}, errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return File{}, errors.Wrapf(err, "writing %s", path)
	}

	return File{Name: name, Path: path}, nil
}

// Remove deletes a stored upload. Failures are logged and otherwise ignored.
func (s *Storage) Remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.S().Named("upload").Warnw("failed to remove upload", "path", path, "error", err)
	}
}

// SecureFilename flattens a client supplied filename into a safe basename.
func SecureFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	parts := strings.Fields(strings.ReplaceAll(filename, "/", " "))
	name := unsafeChars.ReplaceAllString(strings.Join(parts, "_"), "")
	return strings.Trim(name, "._")
}
