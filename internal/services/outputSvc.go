package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/amine-amaach/uatypegen/internal/emitter"
	"github.com/amine-amaach/uatypegen/ports"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// OutputSvc writes rendered files to a directory.
type OutputSvc struct {
	log *logrus.Logger
}

var _ ports.OutputPort = (*OutputSvc)(nil)

func NewOutputSvc(log *logrus.Logger) *OutputSvc {
	return &OutputSvc{log: log}
}

func (o *OutputSvc) Diff(dir string, files []emitter.File) (*ports.Report, error) {
	r := &ports.Report{Dir: dir, Files: len(files)}
	for _, f := range files {
		old, err := os.ReadFile(filepath.Join(dir, f.Name))
		switch {
		case err == nil && bytes.Equal(old, f.Content):
			r.Unchanged = append(r.Unchanged, f.Name)
		case err == nil || os.IsNotExist(err):
			r.Written = append(r.Written, f.Name)
		default:
			return nil, errors.Wrapf(err, "reading %s", f.Name)
		}
	}

	stale, err := staleFiles(dir, files)
	if err != nil {
		return nil, err
	}
	r.Stale = stale
	return r, nil
}

// Write stages every changed file next to its target before replacing any of
// them. Cancellation is honoured until the first rename only.
func (o *OutputSvc) Write(ctx context.Context, dir string, files []emitter.File, prune bool) (*ports.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", dir)
	}
	r, err := o.Diff(dir, files)
	if err != nil {
		return nil, err
	}

	changed := make(map[string]bool, len(r.Written))
	for _, name := range r.Written {
		changed[name] = true
	}
	var pending []stagedFile
	defer func() {
		for _, s := range pending {
			os.Remove(s.tmp)
		}
	}()
	for _, f := range files {
		if !changed[f.Name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tmp, err := stageFile(dir, f)
		if err != nil {
			return nil, err
		}
		pending = append(pending, stagedFile{name: f.Name, tmp: tmp})
	}

	for _, s := range pending {
		if err := os.Rename(s.tmp, filepath.Join(dir, s.name)); err != nil {
			return nil, errors.Wrapf(err, "writing %s", s.name)
		}
		o.log.WithField("File", s.name).Debugln("File written 🔔")
	}

	if prune {
		for _, name := range r.Stale {
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
				return nil, errors.Wrapf(err, "removing stale file %s", name)
			}
			r.Pruned = append(r.Pruned, name)
			o.log.WithField("File", name).Infoln("Stale file removed 🔔")
		}
	}
	return r, nil
}

type stagedFile struct {
	name string
	tmp  string
}

// stageFile writes f to a hidden temporary file in dir and returns its path.
func stageFile(dir string, f emitter.File) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+f.Name+".*")
	if err != nil {
		return "", errors.Wrapf(err, "staging %s", f.Name)
	}
	if _, err := tmp.Write(f.Content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "staging %s", f.Name)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "staging %s", f.Name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "staging %s", f.Name)
	}
	return tmp.Name(), nil
}

// staleFiles lists the files of the manifest in dir that files no longer
// contains and that still exist.
func staleFiles(dir string, files []emitter.File) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, emitter.ManifestName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading previous manifest")
	}
	m, err := emitter.ReadManifest(data)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filepath.Join(dir, emitter.ManifestName))
	}

	produced := make(map[string]bool, len(files))
	for _, f := range files {
		produced[f.Name] = true
	}
	var stale []string
	for _, e := range m.Files {
		// only plain Go files of dir are ever pruned
		if produced[e.Name] || filepath.Base(e.Name) != e.Name || !strings.HasSuffix(e.Name, ".go") {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name)); err == nil {
			stale = append(stale, e.Name)
		}
	}
	sort.Strings(stale)
	return stale, nil
}
