package action

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v2"

	"sira/internal/sirerr"
)

// varRef matches $name or ${name} references in the serialized action.
var varRef = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// MergeVars returns the effective variable map for a HostAction: the task's
// vars overlaid by the including manifest's vars, manifest winning on any
// name collision. The manifest is applied second so its values take
// precedence, matching the "manifest wins on conflict" rule.
func MergeVars(taskVars, manifestVars map[string]string) map[string]string {
	effective := make(map[string]string, len(taskVars)+len(manifestVars))
	for k, v := range taskVars {
		effective[k] = v
	}
	for k, v := range manifestVars {
		effective[k] = v
	}
	return effective
}

// Compile produces the canonical action_payload for a for a given action and
// effective variable map: serialize to YAML, then substitute every $name or
// ${name} reference in one single, non-recursive pass over the serialized
// text. Substitution looks only at the map built from the action's original
// serialized form - a variable's substituted value is never itself rescanned
// for further variable references, and undefined references are left
// unchanged. Compile is a pure function of (action, vars): identical inputs
// always produce byte-identical output.
func Compile(a Action, vars map[string]string) (payload []byte, err error) {
	// Validate fills in script defaults; work on a copy so the caller's
	// action is left untouched.
	if a.Script != nil {
		script := *a.Script
		a.Script = &script
	}
	if verr := a.Validate(); verr != nil {
		return nil, verr
	}

	serialized, err := yaml.Marshal(&a)
	if err != nil {
		return nil, &sirerr.InternalError{Context: "compiling action", Cause: fmt.Errorf("serializing action: %v", err)}
	}

	// Normalize to LF-only, as required by the wire format.
	serialized = bytes.ReplaceAll(serialized, []byte("\r\n"), []byte("\n"))

	return []byte(SubstituteString(string(serialized), vars)), nil
}

// SubstituteString applies the same single, non-recursive substitution pass
// as Compile to an arbitrary string. Used outside of action payloads - e.g.
// resolving an upload action's local source path before staging it.
func SubstituteString(s string, vars map[string]string) string {
	return varRef.ReplaceAllStringFunc(s, func(match string) string {
		groups := varRef.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if value, ok := vars[name]; ok {
			return value
		}
		// Undefined variable - leave occurrence unchanged.
		return match
	})
}

// SortedVarNames returns the variable names of vars in lexical order, purely
// for deterministic logging of the effective variable map - substitution
// itself does not depend on this order (see Compile).
func SortedVarNames(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
