package transport

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"

	"sira/internal/sirerr"
)

// sftpTimeout bounds a single staging transfer.
const sftpTimeout = 90 * time.Second

// StageUpload writes content to remoteTempPath on the managed host over
// SFTP as the connecting (unprivileged) user, creating its parent directory
// first if needed, so the subsequent upload action (whose From the caller
// points at remoteTempPath) can chown/chmod/mv it into place as root. Callers are responsible for
// choosing a path that is unique and that shares a filesystem with the
// action's final destination, so the later move is an atomic rename rather
// than a cross-device copy.
func (s *Session) StageUpload(ctx context.Context, content []byte, remoteTempPath string) error {
	sftpClient, err := sftp.NewClient(s.client)
	if err != nil {
		return &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("open sftp session: %w", err)}
	}
	defer sftpClient.Close()

	if err := sftpClient.MkdirAll(filepath.Dir(remoteTempPath)); err != nil {
		return &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("creating destination directory: %w", err)}
	}

	tctx, cancel := context.WithTimeout(ctx, sftpTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		f, err := sftpClient.Create(remoteTempPath)
		if err != nil {
			errCh <- err
			return
		}
		defer f.Close()
		_, err = f.Write(content)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			if strings.Contains(err.Error(), "permission denied") {
				return &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("unable to write %s (writable by connecting user?): %w", remoteTempPath, err)}
			}
			return &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("stage upload: %w", err)}
		}
		return nil
	case <-tctx.Done():
		sftpClient.Close()
		return &sirerr.TransportError{Host: s.host, Cause: fmt.Errorf("stage upload to %s timed out", remoteTempPath)}
	}
}
