package signing

import (
	"context"
	"fmt"
	"os"

	"sira/internal/sirerr"
)

// VerifyFile checks a signed file on disk against its ".sig" sibling,
// applying the same enforcement table as action payloads: when no
// allowed-signers file is installed, unsigned files pass silently.
func (v Verifier) VerifyFile(ctx context.Context, path string) error {
	if !v.Present() {
		return nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return &sirerr.InternalError{Context: "reading manifest file", Cause: err}
	}

	sigPath := path + ".sig"
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return &sirerr.SignatureError{Subject: path, Cause: fmt.Errorf("missing signature: %s not found", sigPath)}
	}

	if err := v.Verify(ctx, payload, sig); err != nil {
		return &sirerr.SignatureError{Subject: path, Cause: err}
	}
	return nil
}
