// Package manifest implements the loader boundary (component G): parsing
// Manifest/Task YAML documents, verifying file signatures when an
// allowed-signers file is installed, resolving includes, and flattening the
// result into a RunPlan.
package manifest

import (
	"regexp"

	"sira/internal/action"
)

// varNamePattern is the identifier regex variable names must match, per
// spec §3 ("vars keys match [A-Za-z_][A-Za-z0-9_]*").
var varNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Task is an ordered list of actions plus variables.
type Task struct {
	Name    string          `yaml:"name"`
	Actions []action.Action `yaml:"actions"`
	Vars    map[string]string `yaml:"vars"`

	// SourceFile is the path the task was loaded from, for error context.
	SourceFile string `yaml:"-"`
}

// Manifest binds ordered tasks (via Include) to named hosts.
type Manifest struct {
	Name    string            `yaml:"name"`
	Hosts   []string          `yaml:"hosts"`
	Include []string          `yaml:"include"`
	Vars    map[string]string `yaml:"vars"`

	// SourceFile is the path the manifest was loaded from.
	SourceFile string `yaml:"-"`
	// Dir is SourceFile's directory, used to resolve Include paths.
	Dir string `yaml:"-"`
	// Tasks holds the tasks resolved from Include, in include order.
	Tasks []*Task `yaml:"-"`
}
