// Package should runs cleanup steps whose failure is logged rather than
// returned, for use in defer statements.
package should

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/amp-labs/fsm/logger"
)

// Close closes closer and logs msg with the error if it fails. An optional
// context selects the logger.
//
//	defer should.Close(file, "closing definition file")
func Close(closer io.Closer, msg string, ctx ...context.Context) {
	if err := closer.Close(); err != nil {
		logger.Get(ctx...).Error(msg, "error", err)
	}
}

// Remove deletes path and logs msg if that fails. A path that is already
// gone is not a failure.
func Remove(path string, msg string, ctx ...context.Context) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Get(ctx...).Error(msg, "error", err, "path", path)
	}
}
