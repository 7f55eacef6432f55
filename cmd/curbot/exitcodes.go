package main

import (
	"errors"
	"os"
)

// Exit codes.
// The workflow treats any non-zero exit as fatal; 0 also covers the
// "no update needed" outcome.
const (
	// ExitSuccess indicates successful execution or no update needed
	ExitSuccess = 0

	// ExitGeneral indicates a fatal error
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or usage error
	ExitUsage = 2
)

// errValidationFailed marks a completed run whose validation checks failed.
var errValidationFailed = errors.New("PKGBUILD validation failed")

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}
