// Command sira-client is the managed-node half of Sira: invoked via
// "sudo -n /opt/sira/bin/sira-client" with no arguments, it reads one wire
// frame from standard input, verifies it against the action allowed-signers
// file when one is installed, runs the single action it carries, and exits
// with the code the action taxonomy assigns.
package main

import (
	"context"
	"fmt"
	"os"

	"sira/internal/action"
	"sira/internal/clientexec"
	"sira/internal/signing"
	"sira/internal/wire"
	"gopkg.in/yaml.v2"
)

const allowedSignersPath = "/etc/sira/allowed_signers/action"

func main() {
	os.Exit(run())
}

func run() int {
	frame, err := wire.Decode(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sira-client: %v\n", err)
		return clientexec.ExitMalformedFrame
	}

	verifier := signing.Verifier{AllowedSignersPath: allowedSignersPath}
	if verifier.Present() {
		if err := verifier.Verify(context.Background(), frame.Payload, frame.Signature); err != nil {
			fmt.Fprintf(os.Stderr, "sira-client: %v\n", err)
			return clientexec.ExitSignatureFailure
		}
	} else if len(frame.Signature) > 0 {
		// A signature was sent but this host has no allowed-signers file -
		// treat as missing-verification configuration, not a silent pass.
		fmt.Fprintln(os.Stderr, "sira-client: signature present but no allowed-signers file installed")
		return clientexec.ExitSignatureFailure
	}

	var a action.Action
	if err := yaml.Unmarshal(frame.Payload, &a); err != nil {
		fmt.Fprintf(os.Stderr, "sira-client: malformed action payload: %v\n", err)
		return clientexec.ExitMalformedFrame
	}
	if err := a.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "sira-client: invalid action: %v\n", err)
		return clientexec.ExitMalformedFrame
	}

	stdout, stderr, exitCode := clientexec.Dispatch(context.Background(), &a)
	os.Stdout.Write(stdout)
	os.Stderr.Write(stderr)
	return exitCode
}
