// Package blob stores uploaded documents below a single root directory.
// Every path it reads, writes or removes is checked to stay inside that root.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrOutsideRoot is returned for any reference that resolves outside the root.
var ErrOutsideRoot = errors.New("blob: path escapes storage root")

var (
	unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	extRe        = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

const maxStemLen = 48

// Store is a directory-backed blob store.
type Store struct {
	root string
}

// New creates the root directory if needed.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %q: %w", abs, err)
	}
	return &Store{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Resolve maps a stored reference to an absolute path inside the root.
func (s *Store) Resolve(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", ErrOutsideRoot
	}
	abs := filepath.Join(s.root, filepath.FromSlash(ref))
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", ErrOutsideRoot
	}
	return abs, nil
}

// Save writes r to dir under a name built from stem plus a random suffix,
// keeping the extension of originalName. It returns the root-relative
// reference (slash separated) and the number of bytes written.
func (s *Store) Save(dir, stem, originalName string, r io.Reader) (string, int64, error) {
	ref := path.Join(dir, GenerateName(stem, originalName))
	abs, err := s.Resolve(ref)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory for %q: %w", ref, err)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %q: %w", ref, err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(abs)
		return "", 0, fmt.Errorf("failed to write %q: %w", ref, errors.Join(copyErr, closeErr))
	}
	return ref, n, nil
}

// Remove deletes a stored reference. A file that is already gone is not an error.
func (s *Store) Remove(ref string) error {
	abs, err := s.Resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %q: %w", ref, err)
	}
	return nil
}

// GenerateName builds "<sanitised stem>_<uuid><ext>".
func GenerateName(stem, originalName string) string {
	clean := strings.Trim(unsafeNameRe.ReplaceAllString(stem, "_"), "_")
	if len(clean) > maxStemLen {
		clean = clean[:maxStemLen]
	}
	if clean == "" {
		clean = "file"
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !extRe.MatchString(ext) {
		ext = ""
	}
	return clean + "_" + uuid.NewString() + ext
}
