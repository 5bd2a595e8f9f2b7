package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"sira/internal/action"
	"sira/internal/wire"
)

// fakeSession is a scripted Transport: each call to Exec returns the next
// entry in replies, in order.
type fakeSession struct {
	replies     []fakeReply
	calls       int
	staged      [][]byte
	stagedPaths []string
}

type fakeReply struct {
	exitCode int
	stderr   string
}

func (f *fakeSession) Exec(ctx context.Context, frame []byte) ([]byte, []byte, int, error) {
	r := f.replies[f.calls]
	f.calls++
	// Confirm the frame at least decodes, matching real sira-client behavior.
	if _, err := wire.Decode(bytes.NewReader(frame)); err != nil {
		return nil, nil, 0, err
	}
	return nil, []byte(r.stderr), r.exitCode, nil
}

func (f *fakeSession) StageUpload(ctx context.Context, content []byte, remoteTempPath string) error {
	f.staged = append(f.staged, content)
	f.stagedPaths = append(f.stagedPaths, remoteTempPath)
	return nil
}

func cmdAction(args ...string) action.Action {
	return action.Action{Command: &action.CommandAction{Argv: [][]string{args}}}
}

func TestRunStopsAtFirstNonZeroExit(t *testing.T) {
	actions := []action.HostAction{
		{Host: "h1", Template: cmdAction("true"), Ordinal: 1},
		{Host: "h1", Template: cmdAction("false"), Ordinal: 2},
		{Host: "h1", Template: cmdAction("echo", "unreached"), Ordinal: 3},
	}

	sess := &fakeSession{replies: []fakeReply{{exitCode: 0}, {exitCode: 1, stderr: "boom"}}}
	e := &Executor{Session: sess}

	result := e.Run(context.Background(), "h1", actions)
	if len(result.Results) != 2 {
		t.Fatalf("expected run to stop after 2 actions, got %d", len(result.Results))
	}
	if result.Succeeded() {
		t.Fatal("expected run to be unsuccessful")
	}
	if result.Results[1].Err == nil {
		t.Fatal("expected an error recorded on the failing action")
	}
}

func TestRunAllSucceed(t *testing.T) {
	actions := []action.HostAction{
		{Host: "h1", Template: cmdAction("true"), Ordinal: 1},
		{Host: "h1", Template: cmdAction("true"), Ordinal: 2},
	}

	sess := &fakeSession{replies: []fakeReply{{exitCode: 0}, {exitCode: 0}}}
	e := &Executor{Session: sess}

	result := e.Run(context.Background(), "h1", actions)
	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}
}

func TestRunTranslatesRemoteSignatureFailureExitCode(t *testing.T) {
	actions := []action.HostAction{{Host: "h1", Template: cmdAction("true"), Ordinal: 1}}
	sess := &fakeSession{replies: []fakeReply{{exitCode: 2, stderr: "no allowed-signers file installed"}}}
	e := &Executor{Session: sess}

	result := e.Run(context.Background(), "h1", actions)
	if result.Succeeded() {
		t.Fatal("expected failure")
	}
	if result.Results[0].Err == nil {
		t.Fatal("expected a SignatureError to be recorded for exit code 2")
	}
}

func TestStagingPathSharesDestinationsParentDirectory(t *testing.T) {
	path, err := stagingPath("/etc/nginx/sites-available/app.conf")
	if err != nil {
		t.Fatalf("stagingPath: %v", err)
	}
	if got, want := filepath.Dir(path), "/etc/nginx/sites-available"; got != want {
		t.Errorf("staging dir = %q, want %q", got, want)
	}
}

func TestStagingPathHandlesTrailingSlashDestination(t *testing.T) {
	path, err := stagingPath("/etc/nginx/sites-available/")
	if err != nil {
		t.Fatalf("stagingPath: %v", err)
	}
	if got, want := filepath.Dir(path), "/etc/nginx/sites-available"; got != want {
		t.Errorf("staging dir = %q, want %q", got, want)
	}
}

func TestStagingPathIsUniquePerCall(t *testing.T) {
	a, err := stagingPath("/srv/app.conf")
	if err != nil {
		t.Fatalf("stagingPath: %v", err)
	}
	b, err := stagingPath("/srv/app.conf")
	if err != nil {
		t.Fatalf("stagingPath: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct staging paths across calls, got %q twice", a)
	}
}

func TestRunStagesUploadNextToDestinationNotASharedTempDir(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "source")
	if err := os.WriteFile(from, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	actions := []action.HostAction{{
		Host:     "h1",
		Template: action.Action{Upload: &action.UploadAction{From: from, To: "/etc/app/app.conf"}},
		Ordinal:  1,
	}}

	sess := &fakeSession{replies: []fakeReply{{exitCode: 0}}}
	e := &Executor{Session: sess}

	result := e.Run(context.Background(), "h1", actions)
	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(sess.stagedPaths) != 1 {
		t.Fatalf("expected exactly one staged upload, got %d", len(sess.stagedPaths))
	}
	if got, want := filepath.Dir(sess.stagedPaths[0]), "/etc/app"; got != want {
		t.Errorf("staged at %q, want parent dir %q", sess.stagedPaths[0], want)
	}
}

func TestRunDryRunNeverCallsTransport(t *testing.T) {
	actions := []action.HostAction{{Host: "h1", Template: cmdAction("true"), Ordinal: 1}}
	sess := &fakeSession{}
	e := &Executor{Session: sess, DryRun: true}

	result := e.Run(context.Background(), "h1", actions)
	if !result.Succeeded() {
		t.Fatalf("expected dry run to be treated as success, got %+v", result)
	}
	if sess.calls != 0 {
		t.Fatalf("expected no Exec calls in dry-run mode, got %d", sess.calls)
	}
}
