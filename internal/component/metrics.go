package component

// Metrics configures the run metrics written for the node_exporter textfile
// collector. An empty Textfile disables them.
type Metrics struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}
