package chunk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FallbackSuffix is appended to the first chunk name when no grammar strips
// it cleanly.
const FallbackSuffix = ".combined"

// Resolve discovers the chunk set that the file at path belongs to.
func Resolve(path string) (*Set, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", abs, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w: %w", abs, ErrIO, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", abs, ErrNotFound)
	}
	dir, name := filepath.Split(abs)
	dir = filepath.Clean(dir)
	return ResolveFS(os.DirFS(dir), dir, name)
}

// ResolveFS resolves the chunk set of the file name inside fsys. dir is the
// absolute directory fsys is rooted at; it is only used to build paths.
func ResolveFS(fsys fs.FS, dir, name string) (*Set, error) {
	base, suffix, ok := splitSuffix(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w (expected .001, .aa, .part1 or .chunk1)", name, ErrUnrecognizedNaming)
	}
	if _, _, ok := MatchSuffix(suffix); !ok {
		return nil, fmt.Errorf("%s: %w (expected .001, .aa, .part1 or .chunk1)", name, ErrUnrecognizedNaming)
	}

	candidates, err := doublestar.Glob(fsys, escapeMeta(base)+".*", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w: %w", dir, ErrIO, err)
	}

	chunks := make([]Ref, 0, len(candidates))
	for _, c := range candidates {
		rest, ok := strings.CutPrefix(c, base+".")
		if !ok {
			continue
		}
		g, key, ok := MatchSuffix(rest)
		if !ok {
			continue
		}
		info, err := fs.Stat(fsys, c)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w: %w", c, ErrIO, err)
		}
		chunks = append(chunks, Ref{
			Path:    filepath.Join(dir, filepath.FromSlash(c)),
			Name:    c,
			Size:    info.Size(),
			Key:     key,
			Grammar: g,
		})
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("base name %q in %s: %w", base, dir, ErrNoChunksFound)
	}

	slices.SortFunc(chunks, func(a, b Ref) int {
		if c := a.Key.Compare(b.Key); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Key == chunks[i-1].Key {
			return nil, fmt.Errorf("%s and %s share key %s: %w",
				chunks[i-1].Name, chunks[i].Name, chunks[i].Key, ErrAmbiguousOrdering)
		}
	}

	return &Set{
		Base:   base,
		Dir:    dir,
		Chunks: chunks,
		Output: filepath.Join(dir, OutputName(chunks[0].Name)),
	}, nil
}

// OutputName strips the chunk suffix from name, trying each grammar in
// priority order, and falls back to name+FallbackSuffix.
func OutputName(name string) string {
	for _, g := range grammars {
		if stripped, ok := g.Strip(name); ok {
			return stripped
		}
	}
	return name + FallbackSuffix
}

// escapeMeta quotes glob metacharacters so base matches literally.
func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
