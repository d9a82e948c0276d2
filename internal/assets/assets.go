// Package assets implements the Asset Repository: an ordered overlay of
// asset directories with lookup, enumeration, and copy operations
// (spec.md §4.2).
package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/betty-gen/betty/internal/bettyerr"
)

// Root is one asset path: an absolute directory plus an optional text
// encoding override. When Encoding is empty, the repository sniffs the
// file's content type with mimetype to decide whether to treat it as text.
type Root struct {
	Dir      string
	Encoding string
}

// Repository is an ordered sequence of Roots; earlier roots override later
// ones for any given relative path.
type Repository struct {
	roots []Root
}

// New builds a Repository from roots, highest priority first.
func New(roots ...Root) *Repository {
	return &Repository{roots: append([]Root{}, roots...)}
}

// Prepend raises a root's priority above all existing roots.
func (r *Repository) Prepend(root Root) {
	r.roots = append([]Root{root}, r.roots...)
}

// Clear removes every root.
func (r *Repository) Clear() {
	r.roots = nil
}

// Roots returns the current root order.
func (r *Repository) Roots() []Root {
	out := make([]Root, len(r.roots))
	copy(out, r.roots)
	return out
}

func (r *Repository) resolve(relParts ...string) (string, Root, []string) {
	rel := filepath.Join(relParts...)
	tried := make([]string, 0, len(r.roots))
	for _, root := range r.roots {
		candidate := filepath.Join(root.Dir, rel)
		tried = append(tried, candidate)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, root, tried
		}
	}
	return "", Root{}, tried
}

// decoderFor resolves a Root.Encoding label (a WHATWG encoding name such as
// "iso-8859-1" or "windows-1252") to a transform.Transformer that decodes
// the root's declared encoding to UTF-8 — the Go analogue of the original
// betty/assets.py's `aiofiles.open(path, encoding=fs_encoding)`, where
// Python normalizes any on-disk encoding to its internal unicode str on
// read. An empty label, or one that already names UTF-8, needs no
// transform.
func decoderFor(label string) (transform.Transformer, error) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" || lower == "utf-8" || lower == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(lower)
	if err != nil {
		return nil, fmt.Errorf("unknown text encoding %q: %w", label, err)
	}
	return enc.NewDecoder(), nil
}

// decodingReadCloser wraps a transform.Reader with the underlying file's
// Close, so callers can treat it like any other asset ReadCloser.
type decodingReadCloser struct {
	io.Reader
	closer io.Closer
}

func (d *decodingReadCloser) Close() error { return d.closer.Close() }

// Open returns a ReadCloser for the first root containing relParts,
// searched in priority order. A text file is transcoded to UTF-8 per its
// root's declared Encoding (or passed through unchanged when the root
// already stores UTF-8); a binary file is always passed through raw.
func (r *Repository) Open(relParts ...string) (io.ReadCloser, error) {
	path, root, tried := r.resolve(relParts...)
	if path == "" {
		return nil, bettyerr.NewFilesystemError("open asset", tried, os.ErrNotExist)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, bettyerr.NewFilesystemError("open asset", tried, err)
	}
	if !IsText(path, root.Encoding) {
		return f, nil
	}
	dec, err := decoderFor(root.Encoding)
	if err != nil {
		f.Close()
		return nil, bettyerr.NewFilesystemError("open asset", tried, err)
	}
	if dec == nil {
		return f, nil
	}
	return &decodingReadCloser{Reader: transform.NewReader(f, dec), closer: f}, nil
}

// Copy2 copies the first matching source file to dest, preserving its mode
// bits, per spec.md's `copy2` contract. Text sources are transcoded to
// UTF-8 per the matched root's Encoding, same as Open.
func (r *Repository) Copy2(dest string, srcRelParts ...string) error {
	srcPath, root, tried := r.resolve(srcRelParts...)
	if srcPath == "" {
		return bettyerr.NewFilesystemError("copy2", tried, os.ErrNotExist)
	}
	return copyFile(srcPath, dest, root.Encoding)
}

// CopyTree copies every file reachable under srcRel across all roots
// (first match wins per destination-relative path) into destDir, calling
// onCopied for every file actually written. The operation is idempotent:
// re-running it with unchanged sources produces the same output.
func (r *Repository) CopyTree(srcRel string, destDir string, onCopied func(destPath string) error) error {
	seen := map[string]bool{}
	for _, root := range r.roots {
		base := filepath.Join(root.Dir, srcRel)
		info, err := os.Stat(base)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			continue
		}
		err = filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			if seen[rel] {
				return nil
			}
			seen[rel] = true
			dest := filepath.Join(destDir, rel)
			if err := copyFile(path, dest, root.Encoding); err != nil {
				return err
			}
			if onCopied != nil {
				return onCopied(dest)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Walk enumerates every deduplicated destination-relative path reachable
// under srcRel across all roots.
func (r *Repository) Walk(srcRel string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, root := range r.roots {
		base := filepath.Join(root.Dir, srcRel)
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}
		err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// IsText reports whether path should be treated as text, honoring an
// explicit root encoding override when known, falling back to mimetype
// sniffing otherwise.
func IsText(path, encodingOverride string) bool {
	if encodingOverride != "" {
		return true
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt.String(), "text/") || mt.Is("application/json") || mt.Is("application/xml")
}

// copyFile copies src to dest, preserving mode and mtime. A text source is
// transcoded from encoding to UTF-8 as it is copied (see decoderFor); a
// binary source, or one already in UTF-8, is copied byte for byte.
func copyFile(src, dest, encoding string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	var reader io.Reader = in
	if IsText(src, encoding) {
		dec, err := decoderFor(encoding)
		if err != nil {
			return err
		}
		if dec != nil {
			reader = transform.NewReader(in, dec)
		}
	}
	if _, err := io.Copy(out, reader); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}
