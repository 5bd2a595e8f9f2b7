package coordinator

import (
	"testing"

	"sira/internal/executor"
)

func TestExitCodeAllSucceeded(t *testing.T) {
	results := []executor.HostResult{
		{Host: "h1", Results: []executor.ActionResult{{ExitCode: 0}}},
		{Host: "h2", Results: []executor.ActionResult{{ExitCode: 0}}},
	}
	if code := ExitCode(results); code != 0 {
		t.Errorf("ExitCode = %d, want 0", code)
	}
}

func TestExitCodeOneHostFailed(t *testing.T) {
	results := []executor.HostResult{
		{Host: "h1", Results: []executor.ActionResult{{ExitCode: 0}}},
		{Host: "h2", Results: []executor.ActionResult{{ExitCode: 1}}},
	}
	if code := ExitCode(results); code != 1 {
		t.Errorf("ExitCode = %d, want 1", code)
	}
}

func TestExitCodeUnreachableHostAloneDoesNotFailRun(t *testing.T) {
	results := []executor.HostResult{
		{Host: "h1", Results: []executor.ActionResult{{ExitCode: 0}}},
		{Host: "h2", Unreachable: true},
	}
	if code := ExitCode(results); code != 0 {
		t.Errorf("ExitCode = %d, want 0 (unreachable host should not force failure)", code)
	}
}
