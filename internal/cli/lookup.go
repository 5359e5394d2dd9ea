package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/amine-amaach/uatypegen/internal/emitter"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <nodeId|browseName|typeName>",
	Short: "Find a generated file by NodeId or name, reading only the file headers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		matches, err := Lookup(cfg.Output.Dir, args[0])
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return errors.Errorf("no generated type matches %q in %s", args[0], cfg.Output.Dir)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tTYPE\tNODE CLASS\tNODE ID\tSUPERTYPE")
		for _, m := range matches {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.File, m.TypeName, m.NodeClass, m.NodeID, m.SuperType)
		}
		return w.Flush()
	},
}

func init() {
	lookupCmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")
}

// Match is one generated file found by Lookup.
type Match struct {
	File string
	emitter.Header
}

// Lookup scans the headers of the Go files in dir for ref, compared with the
// NodeId, the browse name and the Go type name.
func Lookup(dir, ref string) ([]Match, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, errors.Wrap(err, "listing generated files")
	}
	sort.Strings(paths)

	want := ua.ParseExpandedNodeID(ref)
	var out []Match
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", p)
		}
		h, err := emitter.ParseHeader(src)
		if err != nil {
			// support.go and registry.go carry no type header
			continue
		}
		if h.NodeID == ref || h.TypeName == ref || h.BrowseName == ref ||
			(want.NodeID != nil && h.ID() == want) {
			out = append(out, Match{File: filepath.Base(p), Header: h})
		}
	}
	return out, nil
}
