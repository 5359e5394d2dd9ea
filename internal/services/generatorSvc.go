package services

import (
	"context"
	"time"

	"github.com/amine-amaach/uatypegen/internal/component"
	"github.com/amine-amaach/uatypegen/internal/emitter"
	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/amine-amaach/uatypegen/internal/nodeset"
	"github.com/amine-amaach/uatypegen/internal/resolver"
	"github.com/amine-amaach/uatypegen/ports"
	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// GeneratorSvc runs the loader, the resolver and the emitter over the
// configured sources.
type GeneratorSvc struct {
	RunID  string
	Input  component.Input
	Output component.Output

	log     *logrus.Entry
	out     ports.OutputPort
	monitor *MonitoringSvc
}

var _ ports.GeneratorPort = (*GeneratorSvc)(nil)

func NewGeneratorSvc(
	input component.Input,
	output component.Output,
	log *logrus.Logger,
	monitor *MonitoringSvc,
) (*GeneratorSvc, error) {
	runID, err := nanoid.New()
	if err != nil {
		return nil, errors.Wrap(err, "generating run id")
	}
	return &GeneratorSvc{
		RunID:   runID,
		Input:   input,
		Output:  output,
		log:     log.WithField("Run Id", runID),
		out:     NewOutputSvc(log),
		monitor: monitor,
	}, nil
}

func (g *GeneratorSvc) Build(ctx context.Context) (*resolver.Hierarchy, []emitter.File, error) {
	if len(g.Input.Files) == 0 {
		return nil, nil, errors.New("no nodeset files configured")
	}

	start := time.Now()
	sources := make([]nodeset.Source, 0, len(g.Input.Files))
	for _, path := range g.Input.Files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		src, err := nodeset.ReadSource(path)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}

	loader, err := nodeset.NewLoader(g.log.Logger, g.Input.Intrinsics)
	if err != nil {
		return nil, nil, errors.Wrap(err, "preparing loader")
	}
	set, err := loader.Load(sources...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading nodesets")
	}
	g.monitor.Stage("load", start)
	g.monitor.Nodes(set)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	start = time.Now()
	h, err := resolver.Resolve(set)
	if err != nil {
		return nil, nil, errors.Wrap(err, "resolving type hierarchy")
	}
	g.monitor.Stage("resolve", start)
	g.log.WithFields(logrus.Fields{
		"Types": len(h.Order),
	}).Debugln("Type hierarchy resolved 🔔")
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	start = time.Now()
	files, err := emitter.New(h, emitter.Options{
		Package:  g.Output.Package,
		Manifest: g.Output.Manifest,
	}).Emit()
	if err != nil {
		return nil, nil, errors.Wrap(err, "emitting Go types")
	}
	g.monitor.Stage("emit", start)
	g.monitor.Files(len(files))
	return h, files, nil
}

func (g *GeneratorSvc) Generate(ctx context.Context) (*ports.Report, error) {
	report, err := g.run(ctx, func(files []emitter.File) (*ports.Report, error) {
		start := time.Now()
		defer g.monitor.Stage("write", start)
		return g.out.Write(ctx, g.Output.Dir, files, g.Output.Prune)
	})
	if err != nil {
		return nil, err
	}
	g.log.WithFields(logrus.Fields{
		"Dir":       report.Dir,
		"Written":   len(report.Written),
		"Unchanged": len(report.Unchanged),
		"Pruned":    len(report.Pruned),
	}).Infoln("Go types generated ✅")
	if len(report.Stale) > len(report.Pruned) {
		g.log.WithField("Files", report.Stale).Warnln("Stale files left in the output directory 🔔")
	}
	return report, nil
}

func (g *GeneratorSvc) Check(ctx context.Context) (*ports.Report, error) {
	report, err := g.run(ctx, func(files []emitter.File) (*ports.Report, error) {
		return g.out.Diff(g.Output.Dir, files)
	})
	if err != nil {
		return nil, err
	}
	entry := g.log.WithFields(logrus.Fields{
		"Dir":     report.Dir,
		"Changed": report.Written,
		"Stale":   report.Stale,
	})
	if report.Drifted() {
		entry.Warnln("Output directory is out of date ⛔")
	} else {
		entry.Infoln("Output directory is up to date ✅")
	}
	return report, nil
}

func (g *GeneratorSvc) run(ctx context.Context, store func([]emitter.File) (*ports.Report, error)) (*ports.Report, error) {
	defer func() {
		if err := g.monitor.Flush(); err != nil {
			g.log.WithField("Err", err).Warnln("Failed to write metrics 🔔")
		}
	}()

	_, files, err := g.Build(ctx)
	if err == nil {
		var report *ports.Report
		if report, err = store(files); err == nil {
			report.RunID = g.RunID
			g.monitor.Succeed()
			return report, nil
		}
	}

	g.monitor.Fail(err)
	g.log.WithFields(logrus.Fields{
		"Kind": ErrorKind(err),
		"Err":  err,
	}).Errorln("Run failed ⛔")
	if failure := nodeOf(err); failure != "" {
		g.log.WithField("Node Id", failure).Debugln("Failing node 🔔")
	}
	return nil, err
}

// nodeOf returns the NodeId carried by a domain error.
func nodeOf(err error) string {
	var (
		malformed *model.MalformedNodesetError
		duplicate *model.DuplicateNodeIDError
		conflict  *model.OverrideTypeConflictError
		emit      *model.UnemittableNodeError
	)
	switch {
	case errors.As(err, &malformed) && malformed.NodeID != nil:
		return model.FormatNodeID(malformed.NodeID)
	case errors.As(err, &duplicate):
		return model.FormatNodeID(duplicate.NodeID)
	case errors.As(err, &conflict):
		return model.FormatNodeID(conflict.NodeID)
	case errors.As(err, &emit):
		return model.FormatNodeID(emit.NodeID)
	}
	return ""
}
