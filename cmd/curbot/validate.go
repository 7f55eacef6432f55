package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/curbot/curbot/internal/detect"
	"github.com/curbot/curbot/internal/upstream"
	"github.com/curbot/curbot/internal/validate"
)

var (
	validatePkgbuildPath string
	validateDecisionPath string
	validateChecksum     string
	validateElectron     string
	validateProbe        bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the patched PKGBUILD",
	Long: `Run the full validation suite against the PKGBUILD and print a
sentinel-framed JSON report on stdout.

Expected values come from the decision file when one is given; the
checksum and Electron tag are only known to the update step, so pass
them with --checksum and --electron when validating standalone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(validatePkgbuildPath)
		if err != nil {
			return fail("reading PKGBUILD", err)
		}

		expect := validate.Expected{Checksum: validateChecksum, Electron: validateElectron}
		var downloadURL string
		if validateDecisionPath != "" {
			decision, err := detect.ReadFile(validateDecisionPath)
			if err != nil {
				return fail("reading decision file", err)
			}
			expect.Version = decision.NewVersion
			expect.Rel = decision.NewRel
			expect.Commit = decision.NewCommit
			downloadURL = decision.DownloadURL
		}

		report := validate.Run(string(content), expect)
		if validateProbe && downloadURL != "" {
			client := upstream.NewClient(cfg, logger)
			report.ProbeDownload(cmd.Context(), client, downloadURL)
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
	validateCmd.Flags().StringVar(&validatePkgbuildPath, "pkgbuild", "PKGBUILD", "Path to the PKGBUILD to validate")
	validateCmd.Flags().StringVar(&validateDecisionPath, "decision", "", "Decision file holding the expected version, rel and commit")
	validateCmd.Flags().StringVar(&validateChecksum, "checksum", "", "Expected SHA512 of the release artifact")
	validateCmd.Flags().StringVar(&validateElectron, "electron", "", "Expected Electron tag, e.g. electron34")
	validateCmd.Flags().BoolVar(&validateProbe, "probe", false, "Probe the download URL (advisory, never fails the run)")
}
