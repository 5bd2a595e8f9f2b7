package clientexec

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"sira/internal/action"
)

// RunCommand runs a.Argv sequentially with no shell interpretation, stopping
// at the first non-zero exit. Each argv's stdout/stderr is appended to the
// aggregate buffers returned for the reply frame. The underlying process
// exit code is reported in the returned error text for operator visibility;
// sira-client's own exit status always comes from the taxonomy in
// clientexec.go (ExitActionFailure on any argv failure here), not from the
// subprocess's raw exit code.
func RunCommand(ctx context.Context, a *action.CommandAction) (stdout, stderr []byte, err error) {
	var outBuf, errBuf bytes.Buffer

	for _, argv := range a.Argv {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf

		runErr := cmd.Run()
		if runErr == nil {
			continue
		}

		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return outBuf.Bytes(), errBuf.Bytes(), actionFailure("command %q exited %d", strings.Join(argv, " "), exitErr.ExitCode())
		}
		return outBuf.Bytes(), errBuf.Bytes(), actionFailure("command %q: %v", strings.Join(argv, " "), runErr)
	}

	return outBuf.Bytes(), errBuf.Bytes(), nil
}
