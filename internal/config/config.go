// Package config assembles the control-node CLI's Config from flags and
// ~/.ssh/config, and resolves per-host golang.org/x/crypto/ssh.ClientConfig
// values for internal/transport.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"sira/internal/logging"
)

// Config holds everything a control-node run needs once flags and
// ~/.ssh/config have been read.
type Config struct {
	ManifestPaths      []string
	Verbosity          int
	DryRun             bool
	MaxConcurrency     int
	RunAsUser          string
	DisableSudo        bool
	PrivateKeyPath     string
	AllowedSignersPath string
	MirrorToJournal    bool

	sshConfig       *ssh_config.Config
	hostKeyCallback ssh.HostKeyCallback
}

// Default returns a Config with the teacher-inherited defaults: verbosity 1,
// unlimited (0) concurrency meaning "one goroutine per host", run-as-user
// root, sudo enabled.
func Default() Config {
	return Config{
		Verbosity:   logging.Standard,
		MaxConcurrency: 0,
		RunAsUser:   "root",
	}
}

// LoadSSHConfig parses ~/.ssh/config (or the OpenSSH-format file at path, if
// non-empty) and a known_hosts file for host key verification.
func (c *Config) LoadSSHConfig(path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "config")
	}

	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		c.sshConfig = &ssh_config.Config{}
	case err != nil:
		return fmt.Errorf("opening ssh config %s: %w", path, err)
	default:
		defer f.Close()
		decoded, err := ssh_config.Decode(f)
		if err != nil {
			return fmt.Errorf("parsing ssh config %s: %w", path, err)
		}
		c.sshConfig = decoded
	}

	home, _ := os.UserHomeDir()
	knownHostsPath := filepath.Join(home, ".ssh", "known_hosts")
	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return fmt.Errorf("loading known_hosts %s: %w", knownHostsPath, err)
	}
	c.hostKeyCallback = callback

	return nil
}

// ResolveHost looks up hostname/port/user/identityfile for alias from
// ~/.ssh/config, falling back to alias itself as the hostname, port 22 and
// user "root" when no entry sets them.
func (c *Config) ResolveHost(alias string) (endpoint string, user string, identityFile string, err error) {
	if c.sshConfig == nil {
		c.sshConfig = &ssh_config.Config{}
	}

	hostname, _ := c.sshConfig.Get(alias, "HostName")
	if hostname == "" {
		hostname = alias
	}

	port, _ := c.sshConfig.Get(alias, "Port")
	if port == "" {
		port = "22"
	}
	if _, convErr := strconv.Atoi(port); convErr != nil {
		return "", "", "", fmt.Errorf("host %s: invalid Port %q in ssh config", alias, port)
	}

	user, _ = c.sshConfig.Get(alias, "User")
	if user == "" {
		user = "root"
	}

	identityFile, _ = c.sshConfig.Get(alias, "IdentityFile")
	identityFile = expandHome(identityFile)

	endpoint = hostname + ":" + port
	return endpoint, user, identityFile, nil
}

// HostKeyCallback returns the known_hosts-backed callback, or
// ssh.InsecureIgnoreHostKey if LoadSSHConfig was never called (tests only;
// production entrypoints always call LoadSSHConfig first).
func (c *Config) HostKeyCallback() ssh.HostKeyCallback {
	if c.hostKeyCallback != nil {
		return c.hostKeyCallback
	}
	return ssh.InsecureIgnoreHostKey()
}

func expandHome(path string) string {
	if path == "" || path == "~" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ConnectTimeout is the bound on the initial TCP/SSH handshake.
const ConnectTimeout = 30 * time.Second
