// Package transport implements component C: per-host SSH sessions used to
// stage an upload's payload via SFTP and to invoke "sudo -n sira-client" with
// a wire frame on stdin, returning its stdout, stderr and exit status.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"sira/internal/sirerr"
)

// defaultConnectTimeout bounds the initial TCP/SSH handshake.
const defaultConnectTimeout = 30 * time.Second

// maxConnectionAttempts bounds retries on a transient "no route to host".
const maxConnectionAttempts = 3

// HostConfig holds the resolved connection parameters for one host,
// typically produced by internal/config from ~/.ssh/config plus CLI
// overrides.
type HostConfig struct {
	Host           string
	Endpoint       string // host:port
	User           string
	ClientConfig   *ssh.ClientConfig
	ClientBinPath  string // path to sira-client on the managed host, default "/opt/sira/bin/sira-client"
}

// Session wraps one SSH connection to a host. Every action for that host is
// executed over the same connection by the executor, and Close ends it.
type Session struct {
	host   string
	binary string
	client *ssh.Client
}

// Dial connects to a host, retrying a bounded number of times on
// "no route to host" (a transient condition while a remote host is
// rebooting or the network path hasn't converged yet).
func Dial(ctx context.Context, cfg HostConfig) (*Session, error) {
	bin := cfg.ClientBinPath
	if bin == "" {
		bin = "/opt/sira/bin/sira-client"
	}
	if cfg.ClientConfig != nil && cfg.ClientConfig.Timeout == 0 {
		cfg.ClientConfig.Timeout = defaultConnectTimeout
	}

	var lastErr error
	for attempt := 0; attempt < maxConnectionAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, &sirerr.TransportError{Host: cfg.Host, Cause: ctx.Err()}
		default:
		}

		client, err := ssh.Dial("tcp", cfg.Endpoint, cfg.ClientConfig)
		if err == nil {
			return &Session{host: cfg.Host, binary: bin, client: client}, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	return nil, &sirerr.TransportError{Host: cfg.Host, Cause: fmt.Errorf("connect: %w", lastErr)}
}

// isRetryable reports whether err is a transient condition worth a retry.
func isRetryable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no route to host")
}

// Close ends the underlying SSH connection.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Exec runs "sudo -n <sira-client>" on the managed host, writes frame to its
// stdin, and returns stdout (the action's own output), stderr (diagnostic text) and
// the remote process's exit status.
func (s *Session) Exec(ctx context.Context, frame []byte) (stdout []byte, stderr []byte, exitCode int, err error) {
	session, err := s.client.NewSession()
	if err != nil {
		return nil, nil, 0, &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("open session: %w", err)}
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, nil, 0, &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("stdin pipe: %w", err)}
	}

	var outBuf, errBuf bytes.Buffer
	session.Stdout = &outBuf
	session.Stderr = &errBuf

	command := fmt.Sprintf("sudo -n %s", s.binary)

	if err = session.Start(command); err != nil {
		return nil, nil, 0, &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("start %q: %w", command, err)}
	}

	if _, werr := stdin.Write(frame); werr != nil {
		session.Close()
		return nil, nil, 0, &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("write frame: %w", werr)}
	}
	stdin.Close()

	waitErr := session.Wait()
	exitCode = 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
		} else {
			return outBuf.Bytes(), errBuf.Bytes(), 0, &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("wait: %w", waitErr)}
		}
	}

	return outBuf.Bytes(), errBuf.Bytes(), exitCode, nil
}
