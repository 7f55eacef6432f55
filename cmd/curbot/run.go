package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/curbot/curbot/internal/upstream"
	"github.com/curbot/curbot/internal/validate"
)

var (
	runPkgbuildPath string
	runOutputPath   string
	runBackup       bool
	runProbe        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check, update and validate in one pass",
	Long: `Run the full pipeline: detect whether an update is needed, apply it
to the PKGBUILD, and validate the result.

Exits cleanly without touching the recipe when no update is needed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		decision, err := runCheck(ctx, runPkgbuildPath, runOutputPath)
		if err != nil {
			return err
		}
		if !decision.UpdateNeeded {
			printCheckSummary(decision)
			return nil
		}
		printCheckSummary(decision)

		result, err := runUpdate(ctx, runPkgbuildPath, decision, runBackup)
		if err != nil {
			return err
		}
		printUpdateSummary(decision, result)

		content, err := os.ReadFile(runPkgbuildPath)
		if err != nil {
			return fail("reading patched PKGBUILD", err)
		}
		report := validate.Run(string(content), validate.Expected{
			Version:  decision.NewVersion,
			Rel:      decision.NewRel,
			Commit:   decision.NewCommit,
			Electron: result.ElectronTag,
			Checksum: result.SHA512,
		})
		if runProbe {
			report.ProbeDownload(ctx, upstream.NewClient(cfg, logger), decision.DownloadURL)
		}

		if err := report.Write(os.Stdout); err != nil {
			return err
		}
		if !report.ValidationSuccessful {
			return errValidationFailed
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runPkgbuildPath, "pkgbuild", "PKGBUILD", "Path to the PKGBUILD to maintain")
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "check_output.json", "Where to write the decision file")
	runCmd.Flags().BoolVar(&runBackup, "backup", false, "Keep a backup of the previous PKGBUILD")
	runCmd.Flags().BoolVar(&runProbe, "probe", false, "Probe the download URL (advisory, never fails the run)")
}
