package chunk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"chunk-combiner/internal/logging"
)

const (
	// DefaultBufferSize is the block size used when Options.BufferSize is zero.
	DefaultBufferSize = 8 * 1024 * 1024
	// MaxBufferSize bounds Options.BufferSize; every in-flight block holds one.
	MaxBufferSize = 1 << 30
)

// Options configures a Combiner.
type Options struct {
	// BufferSize is the maximum number of bytes read per block.
	BufferSize int
	// Digests names exactly two distinct registered digests. Defaults to
	// DefaultFastDigest and DefaultStrongDigest.
	Digests []string
	// ReadAhead is the number of blocks the reader may run ahead of the
	// writer. Zero copies strictly sequentially.
	ReadAhead int
	// Atomic writes into a temporary file next to the output and renames
	// it into place on success. The temporary file is removed on failure.
	Atomic bool
	// Force overwrites an existing output without consulting Overwrite.
	Force bool
	// Overwrite is asked whether an existing output may be replaced. With
	// neither Force nor Overwrite set, an existing output is an error.
	Overwrite func(path string) (bool, error)
	// OnChunk is called before each chunk is copied.
	OnChunk func(index, count int, ref Ref)
	// OnProgress is called after every block.
	OnProgress func(Progress)
	Logger     *slog.Logger
}

// Combiner concatenates chunk sets into single files. It keeps no state
// between calls.
type Combiner struct {
	opts   Options
	logger *slog.Logger
}

// NewCombiner validates opts and fills in defaults.
func NewCombiner(opts Options) (*Combiner, error) {
	if opts.BufferSize == 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.BufferSize < 0 || opts.BufferSize > MaxBufferSize {
		return nil, fmt.Errorf("buffer size %d outside 1..%d: %w", opts.BufferSize, MaxBufferSize, ErrInvalidOptions)
	}
	if opts.ReadAhead < 0 {
		return nil, fmt.Errorf("read-ahead %d: %w", opts.ReadAhead, ErrInvalidOptions)
	}
	if len(opts.Digests) == 0 {
		opts.Digests = []string{DefaultFastDigest, DefaultStrongDigest}
	}
	if len(opts.Digests) != 2 || opts.Digests[0] == opts.Digests[1] {
		return nil, fmt.Errorf("need two distinct digests, got %v: %w", opts.Digests, ErrInvalidOptions)
	}
	for _, name := range opts.Digests {
		if _, err := NewAccumulator(name); err != nil {
			return nil, err
		}
	}
	return &Combiner{
		opts:   opts,
		logger: logging.Default(opts.Logger).With("component", "combiner"),
	}, nil
}

// Combine writes the chunks of set, in order, to output (set.Output when
// empty) and returns the verification result. Without Atomic, a failure
// leaves the partially written output in place.
func (c *Combiner) Combine(ctx context.Context, set *Set, output string) (*Result, error) {
	if set == nil || len(set.Chunks) == 0 {
		return nil, fmt.Errorf("combine: %w", ErrNoChunksFound)
	}
	if output == "" {
		output = set.Output
	}
	output, err := filepath.Abs(output)
	if err != nil {
		return nil, chunkErr("resolve output", -1, "", ErrIO, err)
	}
	if err := checkNotChunk(set, output); err != nil {
		return nil, err
	}
	if err := c.checkOutput(output); err != nil {
		return nil, err
	}

	accs := make([]Accumulator, len(c.opts.Digests))
	for i, name := range c.opts.Digests {
		if accs[i], err = NewAccumulator(name); err != nil {
			return nil, err
		}
	}

	target := output
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if c.opts.Atomic {
		target = filepath.Join(filepath.Dir(output), "."+filepath.Base(output)+"."+uuid.NewString()+".partial")
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		return nil, chunkErr("create output", -1, "", ErrIO, err)
	}

	start := time.Now()
	total := set.TotalSize()
	c.logger.Info("combine started", "output", output, "chunks", len(set.Chunks), "total", total, "atomic", c.opts.Atomic)

	fail := func(err error) (*Result, error) {
		_ = f.Close()
		if c.opts.Atomic {
			_ = os.Remove(target)
		}
		c.logger.Error("combine failed", "output", output, "code", Classify(err), "error", err)
		return nil, err
	}

	s := &sink{
		out:        f,
		accs:       accs,
		total:      total,
		count:      len(set.Chunks),
		onChunk:    c.opts.OnChunk,
		onProgress: c.opts.OnProgress,
	}
	if c.opts.ReadAhead > 0 {
		err = c.copyPipelined(ctx, set, s)
	} else {
		err = c.copySequential(ctx, set, s)
	}
	if err != nil {
		return fail(err)
	}

	digests := make([]DigestValue, len(accs))
	for i, a := range accs {
		hex, err := a.Finalize()
		if err != nil {
			return fail(chunkErr("finalize", -1, "", ErrDigest, err))
		}
		digests[i] = DigestValue{Name: a.Name(), Hex: hex}
	}

	if err := f.Sync(); err != nil {
		return fail(chunkErr("sync output", -1, "", ErrIO, err))
	}
	if err := f.Close(); err != nil {
		if c.opts.Atomic {
			_ = os.Remove(target)
		}
		return nil, chunkErr("close output", -1, "", ErrIO, err)
	}
	if c.opts.Atomic {
		if err := os.Rename(target, output); err != nil {
			_ = os.Remove(target)
			return nil, chunkErr("rename output", -1, "", ErrIO, err)
		}
		_ = syncDir(filepath.Dir(output))
	}

	info, err := os.Stat(output)
	if err != nil {
		return nil, chunkErr("stat output", -1, "", ErrIO, err)
	}
	if info.Size() != s.written {
		return nil, chunkErr("verify output", -1, "", ErrIO,
			fmt.Errorf("wrote %d bytes but %s holds %d", s.written, output, info.Size()))
	}

	c.logger.Info("combine finished", "output", output, "bytes", info.Size(), "dur_ms", time.Since(start).Milliseconds())
	return &Result{
		Output:  output,
		Size:    info.Size(),
		Written: s.written,
		Digests: digests,
	}, nil
}

// checkNotChunk rejects an output that is one of the chunks, by path or by
// file identity when the output already exists.
func checkNotChunk(set *Set, output string) error {
	for _, ref := range set.Chunks {
		if filepath.Clean(ref.Path) == output {
			return fmt.Errorf("%s: %w", output, ErrOutputIsChunk)
		}
	}
	oi, err := os.Stat(output)
	if err != nil {
		return nil
	}
	for _, ref := range set.Chunks {
		ci, err := os.Stat(ref.Path)
		if err == nil && os.SameFile(oi, ci) {
			return fmt.Errorf("%s is %s: %w", output, ref.Name, ErrOutputIsChunk)
		}
	}
	return nil
}

func (c *Combiner) checkOutput(output string) error {
	info, err := os.Stat(output)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return chunkErr("stat output", -1, "", ErrIO, err)
	}
	if info.IsDir() {
		return chunkErr("check output", -1, "", ErrIO, fmt.Errorf("%s is a directory", output))
	}
	if c.opts.Force {
		return nil
	}
	if c.opts.Overwrite == nil {
		return fmt.Errorf("%s: %w", output, ErrOutputExists)
	}
	ok, err := c.opts.Overwrite(output)
	if err != nil {
		return fmt.Errorf("overwrite %s: %w", output, err)
	}
	if !ok {
		return fmt.Errorf("overwrite %s declined: %w", output, ErrAborted)
	}
	return nil
}

func (c *Combiner) copySequential(ctx context.Context, set *Set, s *sink) error {
	buf := make([]byte, c.opts.BufferSize)
	for i, ref := range set.Chunks {
		s.startChunk(i, ref)
		err := readChunk(ctx, i, ref, buf, func(p []byte) error {
			return s.block(i, ref, p)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// readChunk opens ref and hands each block to fn. The chunk is closed
// before returning.
func readChunk(ctx context.Context, index int, ref Ref, buf []byte, fn func([]byte) error) error {
	in, err := os.Open(ref.Path)
	if err != nil {
		return chunkErr("open", index, ref.Name, ErrIO, err)
	}
	defer in.Close()

	for {
		if err := ctx.Err(); err != nil {
			return chunkErr("read", index, ref.Name, ErrIO, err)
		}
		n, err := io.ReadFull(in, buf)
		if n > 0 {
			if ferr := fn(buf[:n]); ferr != nil {
				return ferr
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			return chunkErr("read", index, ref.Name, ErrIO, err)
		}
	}
}

// sink writes blocks to the output and digests in arrival order.
type sink struct {
	out          io.Writer
	accs         []Accumulator
	total        int64
	count        int
	written      int64
	chunkWritten int64
	onChunk      func(int, int, Ref)
	onProgress   func(Progress)
}

func (s *sink) startChunk(index int, ref Ref) {
	s.chunkWritten = 0
	if s.onChunk != nil {
		s.onChunk(index, s.count, ref)
	}
}

func (s *sink) block(index int, ref Ref, p []byte) error {
	if _, err := s.out.Write(p); err != nil {
		return chunkErr("write", index, ref.Name, ErrIO, err)
	}
	for _, a := range s.accs {
		if err := a.Update(p); err != nil {
			return chunkErr("digest", index, ref.Name, ErrDigest, err)
		}
	}
	s.written += int64(len(p))
	s.chunkWritten += int64(len(p))
	if s.onProgress != nil {
		s.onProgress(Progress{
			Index:        index,
			Count:        s.count,
			Name:         ref.Name,
			ChunkSize:    ref.Size,
			ChunkWritten: s.chunkWritten,
			Block:        len(p),
			Written:      s.written,
			Total:        s.total,
			Percent:      percent(s.written, s.total),
		})
	}
	return nil
}
