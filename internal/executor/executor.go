// Package executor implements component E: the per-host sequential action
// runner. One Executor owns one SSH session to one host and drives its
// RunPlan actions through it in order, stopping at the first action that
// doesn't come back clean.
package executor

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sira/internal/action"
	"sira/internal/logging"
	"sira/internal/signing"
	"sira/internal/sirerr"
	"sira/internal/wire"
)

// ActionResult is the outcome of a single compiled action on a single host.
type ActionResult struct {
	Ordinal    int
	Manifest   string
	Task       string
	ExitCode   int
	Stdout     string
	Stderr     string
	Err        error
}

// HostResult is the full outcome of one host's run: either every action
// succeeded, or the run stopped at the first failing or errored action.
type HostResult struct {
	Host      string
	Results   []ActionResult
	Unreachable bool // true when the host could never be connected to
	Err       error // set when Unreachable; per-action errors are on ActionResult.Err
}

// Succeeded reports whether every executed action exited zero.
func (h HostResult) Succeeded() bool {
	if h.Unreachable || h.Err != nil {
		return false
	}
	for _, r := range h.Results {
		if r.ExitCode != 0 || r.Err != nil {
			return false
		}
	}
	return true
}

// Transport is the subset of *transport.Session an Executor needs, narrowed
// to an interface so tests can substitute a fake session.
type Transport interface {
	Exec(ctx context.Context, frame []byte) (stdout []byte, stderr []byte, exitCode int, err error)
	StageUpload(ctx context.Context, content []byte, remoteTempPath string) error
}

// Executor runs one host's ordered action list over one SSH session.
//
// It does not itself enforce the signer/verifier symmetry table (spec §4.B):
// that requires knowing whether the *managed* host has an allowed-signers
// file installed, a fact the control node cannot stat locally. sira-client
// already enforces its half of the table against its own filesystem -
// signing a payload with no local verifier, or receiving a signature with
// none installed, both come back as exit code 2, which Run below turns into
// a SignatureError.
type Executor struct {
	Session Transport
	Signer  signing.Signer
	Logger  *logging.Logger
	DryRun  bool
}

// Run executes actions in order against e.Session, stopping (but still
// returning results collected so far) at the first action whose remote exit
// code is non-zero or which fails to compile, sign, send, or whose reply
// fails verification.
func (e *Executor) Run(ctx context.Context, host string, actions []action.HostAction) HostResult {
	result := HostResult{Host: host}

	for _, ha := range actions {
		e.logf(logging.Progress, "Host %s: running action %d (%s/%s)\n", host, ha.Ordinal, ha.SourceManifest, ha.SourceTask)

		ar := ActionResult{Ordinal: ha.Ordinal, Manifest: ha.SourceManifest, Task: ha.SourceTask}

		if ha.Template.Upload != nil && !e.DryRun {
			staged, serr := e.stageUpload(ctx, host, ha)
			if serr != nil {
				ar.Err = serr
				result.Results = append(result.Results, ar)
				break
			}
			ha = staged
		}

		payload, err := ha.Compile()
		if err != nil {
			ar.Err = err
			result.Results = append(result.Results, ar)
			break
		}

		if e.DryRun {
			e.logf(logging.Standard, "Host %s: action %d (%s/%s), not sent (dry run):\n%s", host, ha.Ordinal, ha.SourceManifest, ha.SourceTask, payload)
			result.Results = append(result.Results, ar)
			continue
		}

		frame := wire.Frame{Payload: payload}
		if e.Signer.Present() {
			sig, serr := e.Signer.Sign(ctx, payload)
			if serr != nil {
				ar.Err = serr
				result.Results = append(result.Results, ar)
				break
			}
			frame.Signature = sig
		}

		var buf bytes.Buffer
		if err = wire.Encode(&buf, frame); err != nil {
			ar.Err = err
			result.Results = append(result.Results, ar)
			break
		}

		stdout, stderr, exitCode, err := e.Session.Exec(ctx, buf.Bytes())
		if err != nil {
			ar.Err = &sirerr.TransportError{Host: host, Cause: err}
			result.Results = append(result.Results, ar)
			break
		}

		ar.Stdout = string(stdout)
		ar.Stderr = string(stderr)
		ar.ExitCode = exitCode

		if exitCode == 2 {
			ar.Err = &sirerr.SignatureError{Subject: fmt.Sprintf("host %s action %d", host, ha.Ordinal), Cause: fmt.Errorf("remote signature verification failed: %s", ar.Stderr)}
		} else if exitCode == 3 {
			ar.Err = &sirerr.ActionError{Host: host, Ordinal: ha.Ordinal, Cause: fmt.Errorf("malformed frame rejected by remote: %s", ar.Stderr)}
		} else if exitCode != 0 {
			ar.Err = &sirerr.ActionError{Host: host, Ordinal: ha.Ordinal, Cause: fmt.Errorf("exit %d: %s", exitCode, ar.Stderr)}
		}

		result.Results = append(result.Results, ar)

		if exitCode != 0 {
			break
		}
	}

	return result
}

func (e *Executor) logf(level int, format string, args ...interface{}) {
	if e.Logger != nil {
		e.Logger.Printf(level, format, args...)
	}
}

// stageUpload reads an upload action's local source file (after variable
// substitution), SFTPs its content to a unique temp path alongside its
// final destination on the managed host, and returns a HostAction whose
// Upload.From now points there instead of at the control node's
// filesystem - the only path sira-client ever sees. Staging next to the
// destination, rather than under a shared /tmp, keeps the temp file on the
// same filesystem as the destination so the upload action's final move is
// an atomic rename rather than a cross-device copy (spec §4.C).
func (e *Executor) stageUpload(ctx context.Context, host string, ha action.HostAction) (action.HostAction, error) {
	localPath := action.SubstituteString(ha.Template.Upload.From, ha.Vars)

	content, err := os.ReadFile(localPath)
	if err != nil {
		return ha, &sirerr.ActionError{Host: host, Ordinal: ha.Ordinal, Cause: fmt.Errorf("reading upload source %s: %w", localPath, err)}
	}

	remoteTempPath, err := stagingPath(action.SubstituteString(ha.Template.Upload.To, ha.Vars))
	if err != nil {
		return ha, &sirerr.ActionError{Host: host, Ordinal: ha.Ordinal, Cause: fmt.Errorf("choosing upload staging path: %w", err)}
	}

	if err := e.Session.StageUpload(ctx, content, remoteTempPath); err != nil {
		return ha, err
	}

	staged := *ha.Template.Upload
	staged.From = remoteTempPath
	newTemplate := ha.Template
	newTemplate.Upload = &staged
	ha.Template = newTemplate
	return ha, nil
}

// stagingPath derives a unique staging path in the same directory the
// upload's resolved destination will finally live in: dir itself when to
// ends in a trailing slash (it names the destination directory directly),
// otherwise to's parent directory.
func stagingPath(to string) (string, error) {
	dir := filepath.Dir(to)
	if strings.HasSuffix(to, "/") {
		dir = strings.TrimSuffix(to, "/")
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}

	return filepath.Join(dir, ".sira-upload-"+hex.EncodeToString(suffix)), nil
}
