package action

// HostAction is the unit the executor pushes to the wire: a template action
// bound to a specific host, together with the effective variable map it will
// be compiled with immediately before transmission. HostActions are built
// once, when the loader flattens manifests into a RunPlan.
type HostAction struct {
	Host           string
	Template       Action
	Vars           map[string]string
	SourceManifest string
	SourceTask     string
	Ordinal        int // 1-based position within this host's action sequence
}

// Compile produces the final action_payload bytes for this HostAction by
// merging its template and effective variable map through the variable
// compiler.
func (ha *HostAction) Compile() ([]byte, error) {
	return Compile(ha.Template, ha.Vars)
}

// RunPlan is the flattened, per-host ordered sequence of HostAction
// templates produced by the loader. Hosts is in first-mention order across
// manifests; within a host, actions are ordered (manifest order, include
// order, task order, action order).
type RunPlan struct {
	Hosts   []string
	Actions map[string][]HostAction
}

// NewRunPlan returns an empty RunPlan ready for incremental population.
func NewRunPlan() *RunPlan {
	return &RunPlan{Actions: make(map[string][]HostAction)}
}

// Append adds a HostAction to the tail of its host's sequence, adding the
// host to Hosts the first time it is seen.
func (p *RunPlan) Append(ha HostAction) {
	if _, seen := p.Actions[ha.Host]; !seen {
		p.Hosts = append(p.Hosts, ha.Host)
	}
	ha.Ordinal = len(p.Actions[ha.Host]) + 1
	p.Actions[ha.Host] = append(p.Actions[ha.Host], ha)
}
