package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/curbot/curbot/internal/detect"
	"github.com/curbot/curbot/internal/pkgbuild"
	"github.com/curbot/curbot/internal/upstream"
)

var (
	checkPkgbuildPath string
	checkOutputPath   string
	checkJSON         bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Detect whether the recipe needs an update",
	Long: `Compare the local PKGBUILD against the latest upstream release and
decide whether an update is needed.

The decision is written to an output file for the update step, and a
summary is printed. With --json the full decision is printed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		decision, err := runCheck(cmd.Context(), checkPkgbuildPath, checkOutputPath)
		if err != nil {
			return err
		}

		if checkJSON {
			printJSON(decision)
			return nil
		}
		printCheckSummary(decision)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkPkgbuildPath, "pkgbuild", "PKGBUILD", "Path to the PKGBUILD to inspect")
	checkCmd.Flags().StringVarP(&checkOutputPath, "output", "o", "check_output.json", "Where to write the decision file")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the full decision as JSON")
}

// runCheck parses the local recipe, fetches upstream state, runs detection
// and persists the decision. Shared by the check and run commands.
func runCheck(ctx context.Context, pkgbuildPath, outputPath string) (detect.Decision, error) {
	content, err := os.ReadFile(pkgbuildPath)
	if err != nil {
		return detect.Decision{}, fail("reading PKGBUILD", err)
	}
	local, err := pkgbuild.Parse(string(content))
	if err != nil {
		return detect.Decision{}, fail("parsing PKGBUILD", err)
	}
	logger.Info("local recipe state",
		"version", local.Version, "rel", local.Rel, "commit", local.Commit)

	client := upstream.NewClient(cfg, logger)
	latest, err := client.LatestRelease(ctx)
	if err != nil {
		return detect.Decision{}, err
	}
	aur := client.AURSnapshot(ctx)

	decision, err := detect.Detect(local, *latest, aur, cfg, logger)
	if err != nil {
		return decision, err
	}

	if err := detect.WriteFile(outputPath, decision); err != nil {
		return decision, fail("writing decision file", err)
	}
	logger.Debug("decision written", "path", outputPath)
	if cfg.Debug {
		if data, err := json.MarshalIndent(decision, "", "  "); err == nil {
			logger.Debug("decision record", "json", string(data))
		}
	}
	return decision, nil
}

func printCheckSummary(d detect.Decision) {
	if !d.UpdateNeeded {
		printInfo("No update needed.")
		printInfof("Current version: %s-%s (%s)\n", d.LocalVersion, d.LocalRel, shortCommit(d.LocalCommit))
		return
	}
	printInfof("Update needed: %s-%s -> %s-%s\n", d.LocalVersion, d.LocalRel, d.NewVersion, d.NewRel)
	if d.NewCommit != d.LocalCommit {
		printInfof("Commit: %s -> %s\n", shortCommit(d.LocalCommit), shortCommit(d.NewCommit))
	}
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
