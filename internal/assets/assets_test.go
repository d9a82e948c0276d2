package assets

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betty-gen/betty/internal/bettyerr"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOpen_OverlayPriority(t *testing.T) {
	high := t.TempDir()
	low := t.TempDir()
	writeFile(t, low, "a.txt", "low")
	writeFile(t, high, "a.txt", "high")

	repo := New(Root{Dir: high}, Root{Dir: low})
	f, err := repo.Open("a.txt")
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "high", string(body), "the first matching root must win")
}

func TestOpen_MissingReportsTriedPaths(t *testing.T) {
	root := t.TempDir()
	repo := New(Root{Dir: root})
	_, err := repo.Open("missing.txt")
	require.Error(t, err)
	var fsErr *bettyerr.FilesystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Len(t, fsErr.TriedPaths, 1)
}

func TestCopyTree_FirstRootWinsAndIsIdempotent(t *testing.T) {
	high := t.TempDir()
	low := t.TempDir()
	writeFile(t, low, "static/a.txt", "low")
	writeFile(t, low, "static/b.txt", "only-low")
	writeFile(t, high, "static/a.txt", "high")

	repo := New(Root{Dir: high}, Root{Dir: low})
	dest := t.TempDir()

	var copied []string
	err := repo.CopyTree("static", dest, func(p string) error {
		copied = append(copied, p)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, copied, 2)

	a, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "high", string(a))

	b, err := os.ReadFile(filepath.Join(dest, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "only-low", string(b))

	require.NoError(t, repo.CopyTree("static", dest, nil))
	a2, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "high", string(a2))
}

func TestWalk_DeduplicatesAcrossRoots(t *testing.T) {
	high := t.TempDir()
	low := t.TempDir()
	writeFile(t, high, "static/a.txt", "high")
	writeFile(t, low, "static/a.txt", "low")
	writeFile(t, low, "static/b.txt", "low")

	repo := New(Root{Dir: high}, Root{Dir: low})
	rels, err := repo.Walk("static")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, rels)
}

func TestOpen_TranscodesDeclaredEncodingToUTF8(t *testing.T) {
	dir := t.TempDir()
	// "café" in ISO-8859-1: the trailing 0xE9 is "é" in that encoding, but
	// would be invalid UTF-8 on its own.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("caf\xe9"), 0o644))

	repo := New(Root{Dir: dir, Encoding: "iso-8859-1"})
	f, err := repo.Open("a.txt")
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "café", string(body))
}

func TestOpen_UnknownEncodingIsReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "plain")

	repo := New(Root{Dir: dir, Encoding: "not-a-real-encoding"})
	_, err := repo.Open("a.txt")
	require.Error(t, err)
}

func TestOpen_BinaryFileWithNoDeclaredEncodingIsPassedThroughRaw(t *testing.T) {
	dir := t.TempDir()
	raw := []byte{0x00, 0x01, 0xff, 0xfe, 0x00, 0x00, 0x00, 0x00}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), raw, 0o644))

	// No Root.Encoding: the repository must sniff the content type rather
	// than assume text, and leave a binary file untouched.
	repo := New(Root{Dir: dir})
	f, err := repo.Open("a.bin")
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, raw, body, "binary content must never be run through a text decoder")
}

func TestCopyTree_TranscodesDeclaredEncodingToUTF8(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "static"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "static", "a.txt"), []byte("caf\xe9"), 0o644))

	repo := New(Root{Dir: src, Encoding: "iso-8859-1"})
	dest := t.TempDir()
	require.NoError(t, repo.CopyTree("static", dest, nil))

	body, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "café", string(body))
}

func TestPrepend_RaisesPriority(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, a, "x.txt", "a")
	writeFile(t, b, "x.txt", "b")

	repo := New(Root{Dir: a})
	repo.Prepend(Root{Dir: b})
	f, err := repo.Open("x.txt")
	require.NoError(t, err)
	defer f.Close()
	body, _ := io.ReadAll(f)
	assert.Equal(t, "b", string(body))
}
