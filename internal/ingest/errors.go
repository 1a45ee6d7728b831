package ingest

import (
	"errors"
	"fmt"

	"github.com/LDVSOFT/TestCompat/internal/ir"
)

// IngestionWarning records one artifact of a version that could not be
// used: an unreadable archive, a corrupt class file. The artifact is skipped
// and the rest of the version proceeds.
type IngestionWarning struct {
	Version  ir.Version
	Artifact string
	Err      error
}

func (w *IngestionWarning) Error() string {
	return fmt.Sprintf("version %s: skipped %s: %v", w.Version, w.Artifact, w.Err)
}

func (w *IngestionWarning) Unwrap() error {
	return w.Err
}

// IsIngestionWarning reports whether err is or wraps an IngestionWarning.
func IsIngestionWarning(err error) bool {
	var w *IngestionWarning
	return errors.As(err, &w)
}
