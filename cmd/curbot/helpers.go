package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// printInfo prints an informational message unless quiet mode is enabled
func printInfo(a ...interface{}) {
	if !quietFlag {
		fmt.Println(a...)
	}
}

// printInfof prints a formatted informational message unless quiet mode is enabled
func printInfof(format string, a ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, a...)
	}
}

// printJSON marshals the given value to JSON and prints it to stdout
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		exitWithCode(ExitGeneral)
	}
}

// suggester is implemented by errors that carry an actionable hint.
type suggester interface {
	Suggestion() string
}

// printError prints an error to stderr, with its suggestion when the error
// chain carries one.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var s suggester
	if errors.As(err, &s) {
		if hint := s.Suggestion(); hint != "" {
			fmt.Fprintf(os.Stderr, "\n%s\n", hint)
		}
	}
}
