package component

// Input lists the nodeset sources of a run. Files are read in order; XML
// NodeSet2 documents and YAML/JSON tables may be mixed.
type Input struct {
	Files []string `mapstructure:"files"`
	// Intrinsics seeds the builtin DataTypes and the instance type roots so
	// that sources need not load the standard nodeset.
	Intrinsics bool `mapstructure:"intrinsics"`
}
