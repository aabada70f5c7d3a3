package cli

import (
	"errors"
	"fmt"

	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// Process exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1 // Checks completed (or failed fast) with a failure.
	ExitTimeout = 2
	ExitError   = 3 // Usage, configuration or GitHub API error.
)

// ExitCodeError carries a specific exit code out of a command. Err may be nil
// when the report already told the user what happened.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, application.ErrTimeout) {
		return ExitTimeout
	}
	return ExitError
}

// resultError converts a finished wait into the error Execute returns.
func resultError(result *model.CheckResult) error {
	if result.Success {
		return nil
	}
	return &ExitCodeError{Code: ExitFailure}
}
