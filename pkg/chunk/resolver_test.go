package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644))
	}
}

func TestResolveNumericOrderIgnoresListingOrder(t *testing.T) {
	dir := t.TempDir()
	// Created out of order; lexical order would put .10 before .2.
	touch(t, dir, "data.bin.10", "data.bin.2", "data.bin.1", "data.bin.100", "data.bin.3")

	set, err := Resolve(filepath.Join(dir, "data.bin.3"))
	require.NoError(t, err)

	want := []string{"data.bin.1", "data.bin.2", "data.bin.3", "data.bin.10", "data.bin.100"}
	if diff := cmp.Diff(want, set.Names()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "data.bin", set.Base)
	require.Equal(t, filepath.Join(dir, "data.bin"), set.Output)
	for _, c := range set.Chunks {
		require.True(t, filepath.IsAbs(c.Path))
		require.Equal(t, dir, filepath.Dir(c.Path))
		require.EqualValues(t, len(c.Name), c.Size)
	}
}

func TestResolveAlphabeticOrder(t *testing.T) {
	dir := t.TempDir()
	var want []string
	for _, a := range "abc" {
		for _, b := range "abcdefghijklmnopqrstuvwxyz" {
			want = append(want, fmt.Sprintf("x.tar.gz.%c%c", a, b))
		}
	}
	// Write in reverse.
	for i := len(want) - 1; i >= 0; i-- {
		touch(t, dir, want[i])
	}

	set, err := Resolve(filepath.Join(dir, "x.tar.gz.bq"))
	require.NoError(t, err)
	if diff := cmp.Diff(want, set.Names()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, filepath.Join(dir, "x.tar.gz"), set.Output)
}

func TestResolvePartAndChunkGrammars(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.iso.part2", "a.iso.part10", "a.iso.part1", "b.iso.chunk2", "b.iso.chunk1")

	set, err := Resolve(filepath.Join(dir, "a.iso.part10"))
	require.NoError(t, err)
	require.Equal(t, []string{"a.iso.part1", "a.iso.part2", "a.iso.part10"}, set.Names())
	require.Same(t, GrammarPart, set.Chunks[0].Grammar)

	set, err = Resolve(filepath.Join(dir, "b.iso.chunk1"))
	require.NoError(t, err)
	require.Equal(t, []string{"b.iso.chunk1", "b.iso.chunk2"}, set.Names())
	require.Equal(t, filepath.Join(dir, "b.iso"), set.Output)
}

func TestResolveNumericBeforeAlpha(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "f.ab", "f.aa", "f.002", "f.001")

	set, err := Resolve(filepath.Join(dir, "f.aa"))
	require.NoError(t, err)
	require.Equal(t, []string{"f.001", "f.002", "f.aa", "f.ab"}, set.Names())
	// The output name derives from the first chunk, whatever the seed was.
	require.Equal(t, filepath.Join(dir, "f"), set.Output)
}

func TestResolveIgnoresNonChunkSiblings(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "s.001", "s.002", "s.001.bak", "s.TMP", "s", "other.003", "s.xyz123")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "s.003"), 0o755))

	set, err := Resolve(filepath.Join(dir, "s.001"))
	require.NoError(t, err)
	require.Equal(t, []string{"s.001", "s.002"}, set.Names())
}

func TestResolveUnrecognizedNaming(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "archive.xyz123", "archive.tar.GZ", "noextension")

	for _, name := range []string{"archive.xyz123", "archive.tar.GZ", "noextension"} {
		_, err := Resolve(filepath.Join(dir, name))
		require.ErrorIs(t, err, ErrUnrecognizedNaming, name)
		require.Equal(t, CodeNaming, Classify(err))
	}
}

func TestResolveAmbiguousOrdering(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "base.001", "base.1", "base.002")

	_, err := Resolve(filepath.Join(dir, "base.002"))
	require.ErrorIs(t, err, ErrAmbiguousOrdering)
	require.Contains(t, err.Error(), "base.001")
	require.Contains(t, err.Error(), "base.1")
}

func TestResolveAmbiguousAcrossGrammars(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "v.part1", "v.1")

	_, err := Resolve(filepath.Join(dir, "v.part1"))
	require.ErrorIs(t, err, ErrAmbiguousOrdering)
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve(filepath.Join(dir, "missing.001"))
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, CodeNotFound, Classify(err))

	require.NoError(t, os.Mkdir(filepath.Join(dir, "adir.001"), 0o755))
	_, err = Resolve(filepath.Join(dir, "adir.001"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRelativePath(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "rel.001", "rel.002")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	set, err := Resolve("rel.002")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(set.Dir))
	require.Equal(t, []string{"rel.001", "rel.002"}, set.Names())
}

func TestResolveFSEscapesGlobMeta(t *testing.T) {
	fsys := fstest.MapFS{
		"we[ir]d*.001": {Data: []byte("one")},
		"we[ir]d*.002": {Data: []byte("two!")},
		"weid*.001":    {Data: []byte("not me")},
		"weird.001":    {Data: []byte("nor me")},
	}
	set, err := ResolveFS(fsys, "/data", "we[ir]d*.002")
	require.NoError(t, err)
	require.Equal(t, []string{"we[ir]d*.001", "we[ir]d*.002"}, set.Names())
	require.EqualValues(t, 7, set.TotalSize())
	require.Equal(t, filepath.Join("/data", "we[ir]d*"), set.Output)
}

func TestResolveFSNoChunks(t *testing.T) {
	// The seed vanished between stat and listing.
	_, err := ResolveFS(fstest.MapFS{"unrelated.txt": {}}, "/data", "gone.001")
	require.ErrorIs(t, err, ErrNoChunksFound)
}
