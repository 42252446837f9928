package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/service/packager"
	"github.com/oshokin/release-packager/internal/version"
)

// flags holds the optional overrides of the default configuration.
type flags struct {
	program      string
	sourceDir    string
	workDir      string
	targets      []string
	keepGoing    bool
	skipManifest bool
	logLevel     string
}

// newRootCommand builds the release-packager command.
func newRootCommand() *cobra.Command {
	opts := new(flags)

	root := &cobra.Command{
		Use:   "release-packager",
		Short: "Cross-compile the program for every release target and archive the binaries.",
		Long: `Removes stale artifacts, stamps the short git revision and the UTC build time
into the binary, builds it for every target and archives each result:
windows executables are zipped, everything else is gzipped.

Run without arguments from the release folder to package cfddns-go from the
parent directory for linux/amd64, linux/arm, linux/arm64, linux/mips,
linux/mipsle and windows/amd64.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := opts.config()
			if err != nil {
				return err
			}

			return packager.Run(ctx, &packager.Options{Config: cfg})
		},
	}

	root.Flags().StringVarP(&opts.program, "program", "p", config.DefaultProgram, "artifact name prefix")
	root.Flags().StringVarP(&opts.sourceDir, "source", "s", config.DefaultSourceDir, "package to build")
	root.Flags().StringVarP(&opts.workDir, "dir", "d", config.DefaultWorkDir, "directory receiving the archives")
	root.Flags().StringSliceVarP(&opts.targets, "target", "t", nil, "os/arch to build (repeatable, defaults to the release matrix)")
	root.Flags().BoolVar(&opts.keepGoing, "keep-going", false, "build every target even after a failure")
	root.Flags().BoolVar(&opts.skipManifest, "no-manifest", false, "do not write the checksum manifest")
	root.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "info", "log level: debug, info, warn, error")

	root.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		level, ok := logger.ParseLogLevel(opts.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", opts.logLevel)
		}

		logger.SetLevel(level)

		return nil
	}

	version.AttachCobraVersionCommand(root)

	return root
}

// config turns the flags into a run configuration.
func (f *flags) config() (*config.Config, error) {
	cfg := config.Default()
	cfg.Program = f.program
	cfg.SourceDir = f.sourceDir
	cfg.WorkDir = f.workDir
	cfg.KeepGoing = f.keepGoing
	cfg.SkipManifest = f.skipManifest

	if len(f.targets) > 0 {
		cfg.Targets = make([]release.Target, 0, len(f.targets))

		for _, value := range f.targets {
			target, err := release.ParseTarget(value)
			if err != nil {
				return nil, err
			}

			cfg.Targets = append(cfg.Targets, target)
		}
	}

	return cfg, nil
}

// Execute runs the release-packager CLI and exits with non-zero status on error.
func Execute() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)

		os.Exit(1)
	}
}
