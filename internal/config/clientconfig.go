package config

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"sira/internal/signing"
	"sira/internal/transport"
)

// sshVersionString mirrors convention of OpenSSH-compatible clients
// announcing a recognizable banner during the handshake.
const sshVersionString = "SSH-2.0-sira"

// HostTransportConfig resolves alias (a manifest host entry) against
// ~/.ssh/config and the configured private key, producing a
// transport.HostConfig ready for transport.Dial.
func (c *Config) HostTransportConfig(alias string) (transport.HostConfig, error) {
	endpoint, user, identityFile, err := c.ResolveHost(alias)
	if err != nil {
		return transport.HostConfig{}, err
	}

	keyPath := c.PrivateKeyPath
	if keyPath == "" {
		keyPath = identityFile
	}
	if keyPath == "" {
		return transport.HostConfig{}, fmt.Errorf("host %s: no private key configured (set -i or ssh config IdentityFile)", alias)
	}

	plaintextPath, cleanup, err := signing.UnlockPrivateKey(keyPath)
	if err != nil {
		return transport.HostConfig{}, fmt.Errorf("host %s: unlocking private key: %w", alias, err)
	}
	defer cleanup()

	keyBytes, err := os.ReadFile(plaintextPath)
	if err != nil {
		return transport.HostConfig{}, fmt.Errorf("host %s: reading private key: %w", alias, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return transport.HostConfig{}, fmt.Errorf("host %s: parsing private key: %w", alias, err)
	}

	clientConfig := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		ClientVersion:   sshVersionString,
		HostKeyCallback: c.HostKeyCallback(),
		Timeout:         ConnectTimeout,
	}

	return transport.HostConfig{
		Host:         alias,
		Endpoint:     endpoint,
		User:         user,
		ClientConfig: clientConfig,
	}, nil
}
