package clientexec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"os/user"
	"strconv"

	"sira/internal/action"
)

// RunScript writes s.Contents to a 0700 temp file owned by s.User, runs it
// via "sudo -n -u <user> <path>", and removes the file on every exit path
// (success, non-zero exit, or setup failure).
func RunScript(ctx context.Context, s *action.ScriptAction) (stdout, stderr []byte, err error) {
	tmp, err := os.CreateTemp("", "sira-script-*")
	if err != nil {
		return nil, nil, ioFailure("creating script temp file: %v", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err = tmp.WriteString(s.Contents); err != nil {
		tmp.Close()
		return nil, nil, ioFailure("writing script contents: %v", err)
	}
	if err = tmp.Close(); err != nil {
		return nil, nil, ioFailure("closing script temp file: %v", err)
	}

	if err = os.Chmod(path, 0700); err != nil {
		return nil, nil, ioFailure("chmod script: %v", err)
	}

	u, err := user.Lookup(s.User)
	if err != nil {
		return nil, nil, actionFailure("script user %q: %v", s.User, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, nil, ioFailure("parsing uid %q: %v", u.Uid, err)
	}
	if err = os.Chown(path, uid, -1); err != nil {
		return nil, nil, ioFailure("chown script to %s: %v", s.User, err)
	}

	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, "sudo", "-n", "-u", s.User, path)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if runErr == nil {
		return outBuf.Bytes(), errBuf.Bytes(), nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return outBuf.Bytes(), errBuf.Bytes(), actionFailure("script %q exited %d", s.Name, exitErr.ExitCode())
	}
	return outBuf.Bytes(), errBuf.Bytes(), actionFailure("script %q: %v", s.Name, runErr)
}
