// Package signing wraps OpenSSH's detached-signature facility
// ("ssh-keygen -Y sign/verify") for arbitrary byte payloads, implementing the
// enforcement table from spec §4.B symmetrically for both the manifest/task
// signing surface on the control node and the action-payload surface on
// sira-client.
package signing

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"sira/internal/sirerr"
)

const (
	namespace = "sira"
	principal = "sira"
)

// Signer signs payloads with a private key file readable by ssh-keygen.
type Signer struct {
	// KeyPath is the path to the OpenSSH private key used for signing.
	// An empty KeyPath means "no signer key configured" (unsigned mode).
	KeyPath string
}

// Present reports whether a signer key is configured.
func (s Signer) Present() bool { return s.KeyPath != "" }

// Sign produces an SSHSIG-armored detached signature of payload using
// `ssh-keygen -Y sign -n sira -f <key>`, reading payload from a temp file
// because ssh-keygen -Y sign requires a seekable file argument, not stdin.
func (s Signer) Sign(ctx context.Context, payload []byte) (sig []byte, err error) {
	if !s.Present() {
		return nil, &sirerr.SignatureError{Subject: "action payload", Cause: fmt.Errorf("no signer key configured")}
	}

	tmp, err := os.CreateTemp("", "sira-sign-*")
	if err != nil {
		return nil, &sirerr.InternalError{Context: "signing", Cause: err}
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err = tmp.Write(payload); err != nil {
		return nil, &sirerr.InternalError{Context: "signing", Cause: err}
	}
	if err = tmp.Close(); err != nil {
		return nil, &sirerr.InternalError{Context: "signing", Cause: err}
	}

	cmd := exec.CommandContext(ctx, "ssh-keygen", "-Y", "sign", "-n", namespace, "-f", s.KeyPath, tmp.Name())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err = cmd.Run(); err != nil {
		return nil, &sirerr.SignatureError{Subject: "action payload", Cause: fmt.Errorf("ssh-keygen -Y sign: %v: %s", err, stderr.String())}
	}

	sig, err = os.ReadFile(tmp.Name() + ".sig")
	if err != nil {
		return nil, &sirerr.InternalError{Context: "signing", Cause: fmt.Errorf("reading generated signature: %v", err)}
	}
	os.Remove(tmp.Name() + ".sig")

	return sig, nil
}

// Verifier verifies payloads against an OpenSSH allowed-signers file pinning
// the "sira" principal.
type Verifier struct {
	// AllowedSignersPath is the path to the allowed-signers file. An empty
	// path means "no allowed-signers file configured" (unsigned mode
	// permitted on this side).
	AllowedSignersPath string
}

// Present reports whether an allowed-signers file is configured and exists.
func (v Verifier) Present() bool {
	if v.AllowedSignersPath == "" {
		return false
	}
	_, err := os.Stat(v.AllowedSignersPath)
	return err == nil
}

// Verify checks payload against sig using
// `ssh-keygen -Y verify -n sira -I sira -f <allowed> -s <sigfile>`.
func (v Verifier) Verify(ctx context.Context, payload, sig []byte) error {
	if !v.Present() {
		return &sirerr.SignatureError{Subject: "action payload", Cause: fmt.Errorf("no allowed-signers file configured")}
	}

	sigFile, err := os.CreateTemp("", "sira-verify-*.sig")
	if err != nil {
		return &sirerr.InternalError{Context: "verifying", Cause: err}
	}
	defer os.Remove(sigFile.Name())
	if _, err = sigFile.Write(sig); err != nil {
		sigFile.Close()
		return &sirerr.InternalError{Context: "verifying", Cause: err}
	}
	sigFile.Close()

	cmd := exec.CommandContext(ctx, "ssh-keygen", "-Y", "verify",
		"-n", namespace,
		"-I", principal,
		"-f", v.AllowedSignersPath,
		"-s", sigFile.Name())
	cmd.Stdin = bytes.NewReader(payload)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		return &sirerr.SignatureError{Subject: "action payload", Cause: fmt.Errorf("ssh-keygen -Y verify: %v: %s", err, stderr.String())}
	}
	return nil
}

// Enforce applies the symmetric enforcement table from spec §4.B: given
// whether a signer key and an allowed-signers file are present, decide
// whether signing/verification is required, permitted unsigned, or an
// immediate configuration failure.
//
//	signer present | verifier present | outcome
//	yes            | yes              | must verify OK (caller signs+sends, other side verifies)
//	yes            | no               | fail: "install public key"
//	no             | yes              | fail: "missing signature"
//	no             | no               | unsigned mode permitted
func Enforce(signerPresent, verifierPresent bool) error {
	switch {
	case signerPresent && verifierPresent:
		return nil
	case signerPresent && !verifierPresent:
		return &sirerr.SignatureError{Subject: "allowed-signers", Cause: fmt.Errorf("signer key present but no allowed-signers file installed on verifying side: install public key")}
	case !signerPresent && verifierPresent:
		return &sirerr.SignatureError{Subject: "signature", Cause: fmt.Errorf("allowed-signers file present but no signer key configured: missing signature")}
	default:
		return nil
	}
}
