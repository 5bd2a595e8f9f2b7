package manifest

import "sira/internal/action"

// Flatten builds the RunPlan from a list of already-loaded, already-included
// manifests, preserving the order required by spec §3: hosts appear in
// first-mention order across manifests; within a host, actions appear in
// order (manifest order, include order, task order, action order).
func Flatten(manifests []*Manifest) *action.RunPlan {
	plan := action.NewRunPlan()

	for _, m := range manifests {
		for _, t := range m.Tasks {
			effectiveVars := action.MergeVars(t.Vars, m.Vars)

			for _, a := range t.Actions {
				for _, host := range m.Hosts {
					plan.Append(action.HostAction{
						Host:           host,
						Template:       a,
						Vars:           effectiveVars,
						SourceManifest: m.Name,
						SourceTask:     t.Name,
					})
				}
			}
		}
	}

	return plan
}
