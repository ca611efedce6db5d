package blob

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	s, err := New(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return s
}

func TestStore_SaveResolveRemove(t *testing.T) {
	s := newTestStore(t)

	ref, n, err := s.Save("checksheets", "CNC 1/Lathe", "sheet.PDF", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.True(t, strings.HasPrefix(ref, "checksheets/CNC_1_Lathe_"), ref)
	assert.True(t, strings.HasSuffix(ref, ".pdf"), ref)

	abs, err := s.Resolve(ref)
	require.NoError(t, err)
	body, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	require.NoError(t, s.Remove(ref))
	_, err = os.Stat(abs)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Removing again degrades gracefully.
	assert.NoError(t, s.Remove(ref))
}

func TestStore_SaveGeneratesDistinctNames(t *testing.T) {
	s := newTestStore(t)

	a, _, err := s.Save("completion", "M-1", "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	b, _, err := s.Save("completion", "M-1", "a.jpg", strings.NewReader("y"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStore_RejectsPathsOutsideRoot(t *testing.T) {
	s := newTestStore(t)

	outside := filepath.Join(filepath.Dir(s.Root()), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	for _, ref := range []string{"../secret.txt", "checksheets/../../secret.txt", "", "."} {
		t.Run(ref, func(t *testing.T) {
			_, err := s.Resolve(ref)
			assert.ErrorIs(t, err, ErrOutsideRoot)
			assert.ErrorIs(t, s.Remove(ref), ErrOutsideRoot)
		})
	}

	_, err := os.Stat(outside)
	assert.NoError(t, err, "file outside the root must survive")

	_, _, err = s.Save("../escape", "m", "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestStore_RemoveSurfacesRealFailures(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	s := newTestStore(t)

	ref, _, err := s.Save("checksheets", "m", "a.txt", strings.NewReader("x"))
	require.NoError(t, err)

	dir := filepath.Join(s.Root(), "checksheets")
	require.NoError(t, os.Chmod(dir, 0o555))
	defer os.Chmod(dir, 0o755)

	err = s.Remove(ref)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrOutsideRoot)
}

func TestGenerateName(t *testing.T) {
	name := GenerateName("", "report.tar.gz")
	assert.True(t, strings.HasPrefix(name, "file_"))
	assert.True(t, strings.HasSuffix(name, ".gz"))

	name = GenerateName("ok", "weird.ext with space")
	assert.False(t, strings.Contains(name, " "))

	long := strings.Repeat("x", 100)
	assert.LessOrEqual(t, len(GenerateName(long, "")), maxStemLen+1+36)
}
