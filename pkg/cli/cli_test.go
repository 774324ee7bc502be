package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"chunk-combiner/pkg/chunk"
)

func parse(t *testing.T, args ...string) *Config {
	t.Helper()
	var c Config
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.Bind(fs)
	require.NoError(t, fs.Parse(args))
	if fs.NArg() > 0 {
		c.Input = fs.Arg(0)
	}
	return &c
}

func TestConfigDefaults(t *testing.T) {
	c := parse(t, "backup.tar.gz.001")
	require.NoError(t, c.Validate())
	require.Equal(t, "backup.tar.gz.001", c.Input)
	require.Equal(t, 8, c.BufferMiB)
	require.True(t, c.Atomic)

	opts := c.Options()
	require.Equal(t, chunk.DefaultBufferSize, opts.BufferSize)
	require.Equal(t, []string{"md5", "sha256"}, opts.Digests)
	require.False(t, opts.Force)
	require.True(t, opts.Atomic)
}

func TestConfigFlags(t *testing.T) {
	c := parse(t, "-o", "out.bin", "-b", "2", "--read-ahead", "3", "--fast-digest", "xxh3",
		"--strong-digest", "blake3", "--atomic=false", "-y", "--manifest", "m.json", "x.001")
	require.NoError(t, c.Validate())
	require.Equal(t, "out.bin", c.OutputPath)
	require.Equal(t, "m.json", c.ManifestPath)

	opts := c.Options()
	require.Equal(t, 2*1024*1024, opts.BufferSize)
	require.Equal(t, 3, opts.ReadAhead)
	require.Equal(t, []string{"xxh3", "blake3"}, opts.Digests)
	require.False(t, opts.Atomic)
	require.True(t, opts.Force)
}

func TestConfigValidate(t *testing.T) {
	tests := map[string][]string{
		"missing input":  {},
		"zero buffer":     {"-b", "0", "x.001"},
		"huge buffer":     {"-b", "1025", "x.001"},
		"buffer wraps 0":  {"-b", "17592186044416", "x.001"},
		"buffer wraps <0": {"-b", "8796093022208", "x.001"},
		"negative ahead":  {"--read-ahead", "-1", "x.001"},
		"same digests":    {"--fast-digest", "sha256", "x.001"},
		"unknown digest":  {"--strong-digest", "crc32", "x.001"},
		"bad level":       {"--log-level", "chatty", "x.001"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			err := parse(t, args...).Validate()
			require.ErrorIs(t, err, chunk.ErrInvalidOptions)
			require.Equal(t, 2, ExitCode(err))
		})
	}
}

func TestConfigLargestBuffer(t *testing.T) {
	c := parse(t, "-b", "1024", "x.001")
	require.NoError(t, c.Validate())
	opts := c.Options()
	require.Equal(t, chunk.MaxBufferSize, opts.BufferSize)
	_, err := chunk.NewCombiner(opts)
	require.NoError(t, err)
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 0, ExitCode(fmt.Errorf("x: %w", chunk.ErrAborted)))
	require.Equal(t, 1, ExitCode(chunk.ErrAmbiguousOrdering))
	require.Equal(t, 1, ExitCode(errors.New("other")))
}

func TestConfirmOverwrite(t *testing.T) {
	tests := map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" y \n":   true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"y":       true,
		"maybe\n": false,
	}
	for in, want := range tests {
		var out bytes.Buffer
		ok, err := ConfirmOverwrite(strings.NewReader(in), &out)("/tmp/out.bin")
		require.NoError(t, err, "%q", in)
		require.Equal(t, want, ok, "%q", in)
		require.Contains(t, out.String(), "'/tmp/out.bin' already exists")
	}
}

func testSet() *chunk.Set {
	return &chunk.Set{
		Base: "b",
		Dir:  "/d",
		Chunks: []chunk.Ref{
			{Path: "/d/b.001", Name: "b.001", Size: 4},
			{Path: "/d/b.002", Name: "b.002", Size: 0},
			{Path: "/d/b.003", Name: "b.003", Size: 2},
		},
	}
}

func drive(r *Reporter, set *chunk.Set) {
	var written int64
	for i, ref := range set.Chunks {
		r.OnChunk(i, len(set.Chunks), ref)
		if ref.Size == 0 {
			continue
		}
		written += ref.Size
		r.OnProgress(chunk.Progress{
			Index: i, Count: len(set.Chunks), Name: ref.Name,
			ChunkSize: ref.Size, ChunkWritten: ref.Size, Block: int(ref.Size),
			Written: written, Total: set.TotalSize(),
			Percent: float64(written) / float64(set.TotalSize()) * 100,
		})
	}
}

func TestReporterPlain(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)
	set := testSet()
	r.Found(set)
	r.Start(set, "/d/b")
	drive(r, set)
	r.Finish(&chunk.Result{Output: "/d/b", Size: 6, Digests: []chunk.DigestValue{{Name: "md5", Hex: "abc"}}})

	out := buf.String()
	require.Contains(t, out, "b.001 (4 B)")
	require.Contains(t, out, "[1/3] b.001")
	require.Contains(t, out, "[2/3] b.002")
	require.Contains(t, out, "Progress:  66.67%")
	require.Contains(t, out, "Progress: 100.00%")
	require.Contains(t, out, "md5:     abc")
	require.Contains(t, out, "6 bytes")
}

func TestReporterPlainShrunkChunk(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)
	set := testSet()

	// b.001 was resolved at 4 bytes but only 2 were read, in two blocks.
	r.OnChunk(0, 3, set.Chunks[0])
	for i, pct := range []float64{25, 50} {
		r.OnProgress(chunk.Progress{Index: 0, Count: 3, Name: "b.001", ChunkSize: 4,
			ChunkWritten: int64(i + 1), Block: 1, Written: int64(i + 1), Total: 4, Percent: pct})
	}
	r.OnChunk(2, 3, set.Chunks[2])
	r.OnProgress(chunk.Progress{Index: 2, Count: 3, Name: "b.003", ChunkSize: 2,
		ChunkWritten: 1, Block: 1, Written: 3, Total: 4, Percent: 75})
	r.Fail(fmt.Errorf("short read: %w", chunk.ErrIO))

	out := buf.String()
	require.Equal(t, 2, strings.Count(out, "Progress:"))
	require.NotContains(t, out, "25.00%")
	first := strings.Index(out, "Progress:  50.00%")
	require.Greater(t, first, strings.Index(out, "[1/3] b.001"))
	require.Less(t, first, strings.Index(out, "[3/3] b.003"))
	require.Greater(t, strings.Index(out, "Progress:  75.00%"), strings.Index(out, "[3/3] b.003"))
}

func TestReporterLive(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)
	set := testSet()
	drive(r, set)
	r.Finish(&chunk.Result{Output: "/d/b", Size: 6, Digests: []chunk.DigestValue{{Name: "sha256", Hex: "def"}}})
	require.Contains(t, buf.String(), "sha256:  def")

	buf.Reset()
	r = NewReporter(&buf, true)
	r.OnChunk(0, 1, set.Chunks[0])
	r.Fail(fmt.Errorf("boom: %w", chunk.ErrIO))
	require.Contains(t, buf.String(), "io: boom")
}

func TestBytes(t *testing.T) {
	require.Equal(t, "8.0 MiB", Bytes(8*1024*1024))
	require.Equal(t, "-1.0 KiB", Bytes(-1024))
	require.Equal(t, "1,234,567", Comma64(1234567))
	require.Equal(t, "12", Comma(12))
}
