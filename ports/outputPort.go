package ports

import (
	"context"

	"github.com/amine-amaach/uatypegen/internal/emitter"
)

// OutputPort persists rendered files.
type OutputPort interface {

	// Diff compares files with the content of dir. Written lists the files
	// that are missing or differ.
	Diff(dir string, files []emitter.File) (*Report, error)

	// Write stores files in dir, creating it when needed. Files whose
	// content did not change are left untouched.
	Write(ctx context.Context, dir string, files []emitter.File, prune bool) (*Report, error)
}
