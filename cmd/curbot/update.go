package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/curbot/curbot/internal/detect"
	"github.com/curbot/curbot/internal/electron"
	"github.com/curbot/curbot/internal/patcher"
	"github.com/curbot/curbot/internal/upstream"
)

var (
	updatePkgbuildPath string
	updateBackup       bool
)

var updateCmd = &cobra.Command{
	Use:   "update [decision-file]",
	Short: "Apply a detected update to the PKGBUILD",
	Long: `Read the decision file produced by check and rewrite the PKGBUILD
accordingly: new version, pkgrel, commit, download source, checksums and
Electron tag.

The release artifact is downloaded once, checksummed, and inspected for
its bundled VSCode version to derive the Electron build tag.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decisionPath := "check_output.json"
		if len(args) == 1 {
			decisionPath = args[0]
		}

		decision, err := detect.ReadFile(decisionPath)
		if err != nil {
			return fail("reading decision file", err)
		}
		if !decision.UpdateNeeded {
			printInfo("No update needed.")
			return nil
		}

		result, err := runUpdate(cmd.Context(), updatePkgbuildPath, decision, updateBackup)
		if err != nil {
			return err
		}
		printUpdateSummary(decision, result)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updatePkgbuildPath, "pkgbuild", "PKGBUILD", "Path to the PKGBUILD to rewrite")
	updateCmd.Flags().BoolVar(&updateBackup, "backup", false, "Keep a backup of the previous PKGBUILD")
}

// runUpdate wires the patcher and applies the decision. Shared by the
// update and run commands.
func runUpdate(ctx context.Context, pkgbuildPath string, decision detect.Decision, backup bool) (*patcher.Result, error) {
	client := upstream.NewClient(cfg, logger)
	resolver := electron.NewResolver(cfg, logger)
	return patcher.New(client, resolver, logger).Apply(ctx, pkgbuildPath, decision, backup)
}

func printUpdateSummary(d detect.Decision, r *patcher.Result) {
	printInfof("Updated to %s-%s (%s)\n", d.NewVersion, d.NewRel, shortCommit(d.NewCommit))
	printInfof("Electron tag: %s\n", r.ElectronTag)
	if r.VSCodeVersion != "" {
		printInfof("Bundled VSCode: %s\n", r.VSCodeVersion)
	}
	if r.BackupPath != "" {
		printInfof("Backup: %s\n", r.BackupPath)
	}
}
