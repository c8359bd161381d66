package model

// BlockLocation is a basic block of one method.
type BlockLocation struct {
	Class  string `yaml:"class"`
	Method string `yaml:"method"`
	Desc   string `yaml:"desc"`
	Block  int    `yaml:"block"`
}

// Signature is the method name followed by its descriptor.
func (l BlockLocation) Signature() string {
	return l.Method + l.Desc
}

// CoverageRow lists the tests that execute one block.
type CoverageRow struct {
	BlockLocation `yaml:",inline"`

	Tests []string `yaml:"tests"`
}

// ClassSource names a class and where its bytes were found.
type ClassSource struct {
	Name  string // internal name
	Entry string // classpath entry (directory or jar)
}
