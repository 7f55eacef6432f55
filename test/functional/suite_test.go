package functional

import (
	"context"
	"testing"

	"github.com/cucumber/godog"

	"github.com/curbot/curbot/internal/config"
	"github.com/curbot/curbot/internal/detect"
	"github.com/curbot/curbot/internal/pkgbuild"
	"github.com/curbot/curbot/internal/upstream"
	"github.com/curbot/curbot/internal/validate"
)

type stateKeyType struct{}

var stateKey = stateKeyType{}

// testState carries one scenario's inputs and outcome.
type testState struct {
	cfg    *config.Config
	local  pkgbuild.Info
	latest upstream.Release
	aur    *pkgbuild.Info

	decision detect.Decision
	err      error

	content string
	report  *validate.Report
}

func getState(ctx context.Context) *testState {
	if s, ok := ctx.Value(stateKey).(*testState); ok {
		return s
	}
	return nil
}

func setState(ctx context.Context, s *testState) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

func TestFeatures(t *testing.T) {
	opts := &godog.Options{
		Format:   "pretty",
		Paths:    []string{"features"},
		TestingT: t,
	}

	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options:             opts,
	}
	if suite.Run() != 0 {
		t.Fatal("functional tests failed")
	}
}

func initializeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return setState(ctx, &testState{cfg: config.Default()}), nil
	})

	// Detection inputs
	ctx.Step(`^a local recipe at version "([^"]*)" rel "([^"]*)" commit "([^"]*)"$`, aLocalRecipe)
	ctx.Step(`^the latest upstream release is version "([^"]*)" commit "([^"]*)"$`, theLatestRelease)
	ctx.Step(`^the AUR snapshot shows version "([^"]*)" rel "([^"]*)" commit "([^"]*)"$`, theAURSnapshot)
	ctx.Step(`^the AUR snapshot is unavailable$`, theAURSnapshotIsUnavailable)
	ctx.Step(`^commit-based updates are disabled$`, commitBasedUpdatesAreDisabled)
	ctx.Step(`^version protection is enabled$`, versionProtectionIsEnabled)

	// Detection outcomes
	ctx.Step(`^I run update detection$`, iRunUpdateDetection)
	ctx.Step(`^an update is needed$`, anUpdateIsNeeded)
	ctx.Step(`^no update is needed$`, noUpdateIsNeeded)
	ctx.Step(`^the new version is "([^"]*)" with rel "([^"]*)"$`, theNewVersionIs)
	ctx.Step(`^the new commit is "([^"]*)"$`, theNewCommitIs)
	ctx.Step(`^detection fails with a version conflict$`, detectionFailsWithAVersionConflict)

	// Validation
	ctx.Step(`^a patched recipe:$`, aPatchedRecipe)
	ctx.Step(`^I validate it expecting version "([^"]*)" rel "([^"]*)" commit "([^"]*)" electron "([^"]*)"$`, iValidateIt)
	ctx.Step(`^validation succeeds$`, validationSucceeds)
	ctx.Step(`^validation fails on the "([^"]*)" check$`, validationFailsOn)
}
