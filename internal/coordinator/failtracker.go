package coordinator

import (
	"encoding/json"
	"os"

	"sira/internal/executor"
)

// RunSummary is the JSON failure report written after a run with any failed
// host, so a future run can read back which hosts/actions need a retry.
type RunSummary struct {
	Hosts []HostSummary `json:"Hosts"`
}

// HostSummary is one host's outcome in the failure report.
type HostSummary struct {
	Name     string `json:"Name"`
	Status   string `json:"Status"`
	ErrorMsg string `json:"Error-Message,omitempty"`
	FailedAt int    `json:"Failed-Action-Ordinal,omitempty"`
}

// BuildSummary converts per-host results into a RunSummary, omitting hosts
// that fully succeeded.
func BuildSummary(results []executor.HostResult) RunSummary {
	var summary RunSummary
	for _, r := range results {
		switch {
		case r.Unreachable:
			summary.Hosts = append(summary.Hosts, HostSummary{
				Name:     r.Host,
				Status:   "unreachable",
				ErrorMsg: errString(r.Err),
			})
		case !r.Succeeded():
			hs := HostSummary{Name: r.Host, Status: "failed"}
			for _, ar := range r.Results {
				if ar.ExitCode != 0 || ar.Err != nil {
					hs.FailedAt = ar.Ordinal
					hs.ErrorMsg = errString(ar.Err)
					break
				}
			}
			summary.Hosts = append(summary.Hosts, hs)
		}
	}
	return summary
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// WriteFailtracker writes summary as indented JSON to path when it reports
// at least one failed or unreachable host; a fully clean run writes nothing,
// matching the teacher's "only write on failure" failtracker convention.
func WriteFailtracker(path string, summary RunSummary) error {
	if len(summary.Hosts) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
