package ports

import (
	"context"

	"github.com/amine-amaach/uatypegen/internal/emitter"
	"github.com/amine-amaach/uatypegen/internal/resolver"
)

// GeneratorPort describes a service that turns nodeset sources into Go
// type contracts.
type GeneratorPort interface {

	// Build loads, resolves and renders every file in memory. It returns
	// no files unless all of them could be rendered.
	Build(ctx context.Context) (*resolver.Hierarchy, []emitter.File, error)

	// Generate builds the files and writes them to the output directory.
	Generate(ctx context.Context) (*Report, error)

	// Check builds the files and compares them with the output directory
	// without writing anything.
	Check(ctx context.Context) (*Report, error)
}

// Report summarizes one run against an output directory.
type Report struct {
	RunID   string
	Dir     string
	Files   int
	Written []string
	// Unchanged files had the same content on disk.
	Unchanged []string
	// Stale files are listed in the previous manifest but no longer
	// produced.
	Stale []string
	// Pruned holds the stale files that were removed.
	Pruned []string
}

// Drifted reports whether the output directory differs from the build.
func (r *Report) Drifted() bool {
	return len(r.Written) > 0 || len(r.Stale) > len(r.Pruned)
}
