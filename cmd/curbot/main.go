package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/curbot/curbot/internal/config"
	"github.com/curbot/curbot/internal/log"
)

// Version is the current version of curbot
var Version = "1.0.0"

var (
	debugFlag bool
	quietFlag bool

	// cfg and logger are built once in the persistent pre-run and shared
	// across all commands.
	cfg    *config.Config
	logger log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "curbot",
	Short: "Keep the cursor-bin PKGBUILD in step with upstream releases",
	Long: `curbot watches the Cursor editor's release feed and keeps the
cursor-bin AUR recipe current.

It detects new releases (by commit hash, or by version as a fallback),
rewrites the PKGBUILD with the new version, commit, download source and
checksums, derives the matching Electron build tag from the bundled
VSCode version, and validates the result.

Examples:
  curbot check --pkgbuild ./PKGBUILD
  curbot update check_output.json
  curbot run --pkgbuild ./PKGBUILD`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if debugFlag {
			cfg.Debug = true
		}

		level := slog.LevelInfo
		if quietFlag {
			level = slog.LevelWarn
		}
		if cfg.Debug {
			level = slog.LevelDebug
		}
		logger = log.NewCLI(os.Stderr, level)
		log.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress informational output")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		exitWithCode(ExitGeneral)
	}
}

// fail wraps an error with command context for the top-level handler.
func fail(what string, err error) error {
	return fmt.Errorf("%s: %w", what, err)
}
