package clientexec

import (
	"context"
	"testing"

	"sira/internal/action"
)

func TestRunScriptFailsOnUnknownUser(t *testing.T) {
	s := &action.ScriptAction{
		Name:     "test",
		Contents: "#!/bin/sh\necho hi\n",
		User:     "sira-nonexistent-test-user",
	}

	_, _, err := RunScript(context.Background(), s)
	if err == nil {
		t.Fatal("expected an error for a user that does not exist")
	}
	if CodeOf(err) != ExitActionFailure {
		t.Errorf("CodeOf = %d, want %d", CodeOf(err), ExitActionFailure)
	}
}
