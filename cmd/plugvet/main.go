package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Gate passed, nothing blocking
	ExitVetFailed  = 1 // The run or check completed and found blocking problems
	ExitUsageError = 2 // Configuration or runtime error
)

// GateBlockedError indicates the run itself completed, but its results
// block the pipeline gate.
type GateBlockedError struct {
	Message string
}

func (e *GateBlockedError) Error() string {
	return e.Message
}

// CheckFailedError indicates plugvet check completed and found schema or
// parse problems in the project.
type CheckFailedError struct {
	Problems int
}

func (e *CheckFailedError) Error() string {
	return fmt.Sprintf("check found %d problem(s)", e.Problems)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var gateErr *GateBlockedError
		var checkErr *CheckFailedError
		if errors.As(err, &gateErr) || errors.As(err, &checkErr) {
			os.Exit(ExitVetFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitUsageError)
	}
}
