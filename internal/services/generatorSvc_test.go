package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amine-amaach/uatypegen/internal/component"
	"github.com/amine-amaach/uatypegen/internal/emitter"
	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/amine-amaach/uatypegen/ports"
	"github.com/sirupsen/logrus"
)

var pumpNodeset = filepath.Join("..", "nodeset", "testdata", "pump.NodeSet2.xml")

const extraTable = `
namespaces: [urn:example:extra]
nodes:
  - {nodeId: ns=1;i=1, browseName: ExtraType, nodeClass: ObjectType, superType: i=58}
`

const cycleTable = `
namespaces: [urn:example:cycle]
nodes:
  - {nodeId: ns=1;i=1, browseName: A, nodeClass: ObjectType, superType: ns=1;i=2}
  - {nodeId: ns=1;i=2, browseName: B, nodeClass: ObjectType, superType: ns=1;i=1}
`

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

func writeTable(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newGenerator(t *testing.T, dir string, monitor *MonitoringSvc, files ...string) *GeneratorSvc {
	t.Helper()
	g, err := NewGeneratorSvc(
		component.Input{Files: files, Intrinsics: true},
		component.Output{Dir: dir, Package: "pumps", Manifest: true},
		quietLogger(),
		monitor,
	)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uatypes")
	g := newGenerator(t, dir, nil, pumpNodeset)
	ctx := context.Background()

	r, err := g.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.RunID == "" || r.RunID != g.RunID || r.Dir != dir {
		t.Fatalf("report %+v", r)
	}
	if len(r.Written) != r.Files || len(r.Unchanged) != 0 {
		t.Fatalf("first run wrote %d of %d files", len(r.Written), r.Files)
	}
	for _, name := range []string{"pump_type.go", "pump_reading.go", emitter.SupportFile, emitter.RegistryFile, emitter.ManifestName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}

	again, err := g.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Written) != 0 || len(again.Unchanged) != again.Files {
		t.Fatalf("second run rewrote %v", again.Written)
	}

	check, err := g.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if check.Drifted() {
		t.Fatalf("fresh output reported as drifted: %+v", check)
	}
}

func TestCheckReportsDrift(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uatypes")
	g := newGenerator(t, dir, nil, pumpNodeset)
	ctx := context.Background()
	if _, err := g.Generate(ctx); err != nil {
		t.Fatal(err)
	}

	edited := filepath.Join(dir, "pump_type.go")
	if err := os.WriteFile(edited, []byte("package pumps\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "pump_status.go")); err != nil {
		t.Fatal(err)
	}

	r, err := g.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Drifted() || strings.Join(r.Written, ",") != "pump_status.go,pump_type.go" {
		t.Fatalf("changed %v", r.Written)
	}
	if b, _ := os.ReadFile(edited); string(b) != "package pumps\n" {
		t.Fatal("Check must not write")
	}
}

func TestGenerateStaleFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uatypes")
	extra := writeTable(t, "extra.yaml", extraTable)
	ctx := context.Background()

	if _, err := newGenerator(t, dir, nil, pumpNodeset, extra).Generate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "extra_type.go")); err != nil {
		t.Fatal(err)
	}

	g := newGenerator(t, dir, nil, pumpNodeset)
	r, err := g.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(r.Stale, ",") != "extra_type.go" || len(r.Pruned) != 0 || !r.Drifted() {
		t.Fatalf("stale %v pruned %v", r.Stale, r.Pruned)
	}
	if _, err := os.Stat(filepath.Join(dir, "extra_type.go")); err != nil {
		t.Fatal("stale files are kept unless pruning")
	}

	// the manifest written above no longer lists extra_type.go
	if r, _ := g.Check(ctx); len(r.Stale) != 0 {
		t.Fatalf("stale after rewrite %v", r.Stale)
	}

	// list extra_type.go in the manifest again, then prune
	if _, err := newGenerator(t, dir, nil, pumpNodeset, extra).Generate(ctx); err != nil {
		t.Fatal(err)
	}
	g.Output.Prune = true
	r, err = g.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(r.Pruned, ",") != "extra_type.go" || !contains(r.Written, emitter.ManifestName) {
		t.Fatalf("pruned %v", r.Pruned)
	}
	if _, err := os.Stat(filepath.Join(dir, "extra_type.go")); !os.IsNotExist(err) {
		t.Fatal("pruned file still exists")
	}
}

func TestStaleFilesStayInsideDir(t *testing.T) {
	dir := t.TempDir()
	m, err := emitter.BuildManifest("pumps", nil, []emitter.File{
		{Name: "kept.go"}, {Name: "old.go"}, {Name: "gone.go"}, {Name: "../outside.go"}, {Name: "notes.txt"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string][]byte{
		emitter.ManifestName: m,
		"kept.go":            nil,
		"old.go":             nil,
		"notes.txt":          nil,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	stale, err := staleFiles(dir, []emitter.File{{Name: "kept.go"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(stale, ",") != "old.go" {
		t.Fatalf("stale %v", stale)
	}

	if err := os.WriteFile(filepath.Join(dir, emitter.ManifestName), []byte("generator: someone-else\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := staleFiles(dir, nil); err == nil {
		t.Fatal("a foreign manifest is an error")
	}
}

func TestGenerateFailureWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uatypes")
	g := newGenerator(t, dir, nil, pumpNodeset, writeTable(t, "cycle.yaml", cycleTable))

	r, err := g.Generate(context.Background())
	var cycle *model.CycleDetectedError
	if !errors.As(err, &cycle) || r != nil {
		t.Fatalf("want CycleDetectedError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "resolving type hierarchy: supertype cycle detected") {
		t.Fatalf("error %q", err)
	}
	if ErrorKind(err) != "cycle_detected" || nodeOf(err) != "" {
		t.Fatalf("kind %s node %q", ErrorKind(err), nodeOf(err))
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("the output directory was created on failure")
	}
}

func TestBuildErrors(t *testing.T) {
	ctx := context.Background()
	if _, _, err := newGenerator(t, t.TempDir(), nil).Build(ctx); err == nil {
		t.Fatal("no inputs is an error")
	}
	if _, _, err := newGenerator(t, t.TempDir(), nil, "missing.xml").Build(ctx); err == nil {
		t.Fatal("missing input is an error")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := newGenerator(t, t.TempDir(), nil, pumpNodeset).Build(canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}

	h, files, err := newGenerator(t, t.TempDir(), nil, pumpNodeset).Build(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Lookup(model.BaseObjectTypeID); !ok || len(files) == 0 {
		t.Fatal("Build returns the hierarchy and the rendered files")
	}
}

func TestErrorKind(t *testing.T) {
	tests := map[string]error{
		"malformed_nodeset":      &model.MalformedNodesetError{Rule: "x"},
		"duplicate_node_id":      &model.DuplicateNodeIDError{},
		"override_type_conflict": &model.OverrideTypeConflictError{},
		"unemittable_node":       &model.UnemittableNodeError{},
		"other":                  errors.New("disk full"),
	}
	for want, err := range tests {
		if got := ErrorKind(err); got != want {
			t.Errorf("ErrorKind(%T) = %s, want %s", err, got, want)
		}
	}
}

func TestMonitoringTextfile(t *testing.T) {
	if NewMonitoringSvc(component.Metrics{Enabled: true}) != nil || NewMonitoringSvc(component.Metrics{Textfile: "x.prom"}) != nil {
		t.Fatal("metrics need to be enabled and have a textfile")
	}
	var off *MonitoringSvc
	off.Fail(errors.New("x"))
	if err := off.Flush(); err != nil {
		t.Fatal(err)
	}

	textfile := filepath.Join(t.TempDir(), "uatypegen.prom")
	monitor := NewMonitoringSvc(component.Metrics{Enabled: true, Textfile: textfile})
	if _, err := newGenerator(t, filepath.Join(t.TempDir(), "out"), monitor, pumpNodeset).Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := newGenerator(t, filepath.Join(t.TempDir(), "out"), monitor, writeTable(t, "cycle.yaml", cycleTable)).Generate(context.Background()); err == nil {
		t.Fatal("cycle not reported")
	}

	b, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{
		`uatypegen_nodes{node_class="ObjectType"}`,
		`uatypegen_stage_duration_seconds{stage="write"}`,
		`uatypegen_failures_total{kind="cycle_detected"} 1`,
		"uatypegen_last_success_timestamp_seconds",
		"uatypegen_files",
		"go_goroutines",
	} {
		if !strings.Contains(string(b), s) {
			t.Errorf("textfile lacks %s", s)
		}
	}
}

func TestDriftedReport(t *testing.T) {
	r := &ports.Report{Unchanged: []string{"b.go"}, Stale: []string{"a.go"}}
	if !contains(r.Stale, "a.go") || !r.Drifted() {
		t.Fatal("unpruned stale files are drift")
	}
	r.Pruned = r.Stale
	if r.Drifted() {
		t.Fatal("pruned stale files are not drift")
	}
}

type cancelOnWrite struct {
	cancel context.CancelFunc
}

func (h cancelOnWrite) Levels() []logrus.Level { return logrus.AllLevels }

func (h cancelOnWrite) Fire(e *logrus.Entry) error {
	if strings.HasPrefix(e.Message, "File written") {
		h.cancel()
	}
	return nil
}

func TestWriteIsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	files := []emitter.File{
		{Name: "aa.go", Content: []byte("package pumps\n")},
		{Name: "mm.go", Content: []byte("package pumps\n\nconst M = 1\n")},
		{Name: "zz.go", Content: []byte("package pumps\n\nconst Z = 1\n")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := quietLogger()
	log.SetLevel(logrus.DebugLevel)
	log.AddHook(cancelOnWrite{cancel: cancel})

	r, err := NewOutputSvc(log).Write(ctx, dir, files, false)
	if err != nil {
		t.Fatalf("a cancel after the first rename must not abort the write: %v", err)
	}
	if len(r.Written) != len(files) {
		t.Fatalf("written %v", r.Written)
	}
	for _, f := range files {
		if b, err := os.ReadFile(filepath.Join(dir, f.Name)); err != nil || string(b) != string(f.Content) {
			t.Errorf("%s: %q %v", f.Name, b, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(files) {
		t.Fatalf("%d entries, staged files left behind", len(entries))
	}

	fresh := filepath.Join(t.TempDir(), "out")
	if _, err := NewOutputSvc(quietLogger()).Write(ctx, fresh, files, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if _, err := os.Stat(fresh); !os.IsNotExist(err) {
		t.Fatal("a canceled write must not touch the output directory")
	}
}
