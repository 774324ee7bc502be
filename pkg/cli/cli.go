package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"chunk-combiner/internal/logging"
	"chunk-combiner/pkg/chunk"
)

const (
	mebibyte     = 1024 * 1024
	maxBufferMiB = chunk.MaxBufferSize / mebibyte
)

type Config struct {
	Input        string
	OutputPath   string
	BufferMiB    int
	ReadAhead    int
	FastDigest   string
	StrongDigest string
	Atomic       bool
	Force        bool
	Yes          bool
	ManifestPath string
	NoProgress   bool
	LogLevel     string
	LogFormat    string
}

// Bind registers the combine flags on fs.
func (c *Config) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&c.OutputPath, "output", "o", "", "Output file path (default: chunk name without its suffix)")
	fs.IntVarP(&c.BufferMiB, "buffer-size", "b", 8, "Read buffer size in MiB")
	fs.IntVar(&c.ReadAhead, "read-ahead", 0, "Blocks to read ahead of the writer (0 reads sequentially)")
	fs.StringVar(&c.FastDigest, "fast-digest", chunk.DefaultFastDigest, "Fast digest ("+strings.Join(chunk.DigestNames(), ", ")+")")
	fs.StringVar(&c.StrongDigest, "strong-digest", chunk.DefaultStrongDigest, "Strong digest")
	fs.BoolVar(&c.Atomic, "atomic", true, "Write to a temporary file and rename on success")
	fs.BoolVarP(&c.Force, "force", "f", false, "Overwrite an existing output without asking")
	fs.BoolVarP(&c.Yes, "yes", "y", false, "Answer yes to the overwrite prompt")
	fs.StringVar(&c.ManifestPath, "manifest", "", "Write a JSON report of chunks and digests to this path")
	fs.BoolVar(&c.NoProgress, "no-progress", false, "Disable live progress bars")
	fs.StringVar(&c.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", "text", "Log format: text or json")
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Input) == "" {
		errs = append(errs, errors.New("input chunk path is required"))
	}
	if c.BufferMiB <= 0 || c.BufferMiB > maxBufferMiB {
		errs = append(errs, fmt.Errorf("buffer size must be between 1 and %d MiB, got %d", maxBufferMiB, c.BufferMiB))
	}
	if c.ReadAhead < 0 {
		errs = append(errs, fmt.Errorf("read-ahead must not be negative, got %d", c.ReadAhead))
	}
	if c.FastDigest == c.StrongDigest {
		errs = append(errs, fmt.Errorf("fast and strong digest are both %q", c.FastDigest))
	}
	for _, name := range []string{c.FastDigest, c.StrongDigest} {
		if _, err := chunk.NewAccumulator(name); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", chunk.ErrInvalidOptions, err)
	}
	return nil
}

// Options translates the config into combiner options. Callbacks and the
// logger are left to the caller.
func (c *Config) Options() chunk.Options {
	return chunk.Options{
		BufferSize: c.BufferMiB * mebibyte,
		Digests:    []string{c.FastDigest, c.StrongDigest},
		ReadAhead:  c.ReadAhead,
		Atomic:     c.Atomic,
		Force:      c.Force || c.Yes,
	}
}

// ExitCode maps a combine error to a process exit status. A declined
// overwrite is not a failure.
func ExitCode(err error) int {
	switch chunk.Classify(err) {
	case chunk.CodeAborted:
		return 0
	case chunk.CodeInvalid:
		return 2
	case chunk.CodeCancel:
		return 130
	}
	if err == nil {
		return 0
	}
	return 1
}

func Comma(n int) string {
	return humanize.Comma(int64(n))
}

func Bytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

func Comma64(n int64) string {
	return humanize.Comma(n)
}
