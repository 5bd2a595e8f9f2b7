package clientexec

import (
	"context"
	"strings"
	"testing"

	"sira/internal/action"
)

func TestRunCommandCollectsStdoutAcrossArgv(t *testing.T) {
	a := &action.CommandAction{Argv: [][]string{
		{"echo", "-n", "one"},
		{"echo", "-n", "two"},
	}}

	stdout, _, err := RunCommand(context.Background(), a)
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	if got := string(stdout); got != "onetwo" {
		t.Fatalf("got %q, want %q", got, "onetwo")
	}
}

func TestRunCommandStopsAtFirstFailure(t *testing.T) {
	a := &action.CommandAction{Argv: [][]string{
		{"false"},
		{"echo", "-n", "unreached"},
	}}

	stdout, _, err := RunCommand(context.Background(), a)
	if err == nil {
		t.Fatal("expected an error from the failing argv")
	}
	if CodeOf(err) != ExitActionFailure {
		t.Errorf("CodeOf = %d, want %d", CodeOf(err), ExitActionFailure)
	}
	if strings.Contains(string(stdout), "unreached") {
		t.Fatal("expected the second argv to never run")
	}
}
