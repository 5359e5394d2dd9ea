package component

type Output struct {
	Dir      string `mapstructure:"dir"`
	Package  string `mapstructure:"package"`
	Manifest bool   `mapstructure:"manifest"`
	// Prune removes files listed in the previous manifest that the current
	// run no longer produces.
	Prune bool `mapstructure:"prune"`
}
