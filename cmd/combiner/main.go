// Command combiner reassembles split files (name.001, name.aa, name.part1,
// name.chunk1, ...) into one output and prints its size and digests.
//
// Logging:
//   - The base logger is created here from --log-level and --log-format
//   - It is passed down by injection; there is no slog.SetDefault
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"chunk-combiner/internal/logging"
	"chunk-combiner/pkg/chunk"
	"chunk-combiner/pkg/cli"
	"chunk-combiner/pkg/manifest"
)

var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stderr))
}

func execute(args []string, stdin io.Reader, stderr io.Writer) int {
	var config cli.Config
	var runErr error

	rootCmd := &cobra.Command{
		Use:           "combiner <chunk-file>",
		Short:         "Combine chunked files into a single file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Input = args[0]
			if err := config.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(stderr, config.LogLevel, config.LogFormat)
			if err != nil {
				return fmt.Errorf("%w: %w", chunk.ErrInvalidOptions, err)
			}
			logger = logger.With("run", uuid.Must(uuid.NewV7()).String())

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			runErr = run(ctx, &config, logger, cli.Stdout(config.NoProgress), stdin)
			return runErr
		},
	}
	config.Bind(rootCmd.Flags())

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
	rootCmd.AddCommand(versionCmd)
	if args == nil {
		// cobra falls back to os.Args on a nil slice.
		args = []string{}
	}
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		// run reports its own failures through the reporter.
		if runErr == nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			if chunk.Classify(err) == chunk.CodeUnknown {
				return 2
			}
		}
		return cli.ExitCode(err)
	}
	return 0
}

func run(ctx context.Context, config *cli.Config, logger *slog.Logger, rep *cli.Reporter, stdin io.Reader) error {
	set, err := chunk.Resolve(config.Input)
	if err != nil {
		logger.Error("resolve failed", "input", config.Input, "code", chunk.Classify(err), "error", err)
		rep.Fail(err)
		return err
	}
	logger.Info("chunks resolved", "base", set.Base, "dir", set.Dir, "chunks", len(set.Chunks), "total", set.TotalSize())
	rep.Found(set)

	output := set.Output
	if config.OutputPath != "" {
		output = config.OutputPath
	}

	opts := config.Options()
	opts.Logger = logger
	opts.Overwrite = cli.ConfirmOverwrite(stdin, os.Stdout)
	opts.OnChunk = rep.OnChunk
	opts.OnProgress = rep.OnProgress

	combiner, err := chunk.NewCombiner(opts)
	if err != nil {
		rep.Fail(err)
		return err
	}

	rep.Start(set, output)
	res, err := combiner.Combine(ctx, set, output)
	if err != nil {
		if chunk.Classify(err) == chunk.CodeAborted {
			rep.Aborted()
		} else {
			rep.Fail(err)
		}
		return err
	}
	rep.Finish(res)

	if config.ManifestPath != "" {
		m := manifest.Build(set, res)
		if err := manifest.Write(m, config.ManifestPath); err != nil {
			err = fmt.Errorf("write manifest: %w", err)
			rep.Fail(err)
			return err
		}
		logger.Info("manifest written", "path", config.ManifestPath, "summary", m.Summary())
		rep.Manifest(config.ManifestPath)
	}
	return nil
}
