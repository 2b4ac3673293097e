package csvImport

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

type JobResult struct {
	Result Result
	Err    error
}

// StartParse runs Parse on its own goroutine. The returned channel receives
// exactly one JobResult and is then closed. There is no cancellation.
func StartParse(text string, schema Schema) <-chan JobResult {
	done := make(chan JobResult, 1)

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"Panic recovered in parse job",
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
				done <- JobResult{Err: fmt.Errorf("parse job panicked: %v", r)}
			}
		}()

		res, err := Parse(text, schema)
		done <- JobResult{Result: res, Err: err}
	}()

	return done
}
