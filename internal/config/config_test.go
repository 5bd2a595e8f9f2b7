package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSSHConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveHostUsesAliasFields(t *testing.T) {
	path := writeSSHConfig(t, "Host web1\n  HostName 10.0.0.5\n  Port 2222\n  User deploy\n  IdentityFile ~/.ssh/deploy_key\n")

	var c Config
	if err := c.LoadSSHConfig(path); err != nil {
		t.Fatalf("LoadSSHConfig: %v", err)
	}

	endpoint, user, _, err := c.ResolveHost("web1")
	if err != nil {
		t.Fatalf("ResolveHost: %v", err)
	}
	if endpoint != "10.0.0.5:2222" {
		t.Errorf("endpoint = %q, want 10.0.0.5:2222", endpoint)
	}
	if user != "deploy" {
		t.Errorf("user = %q, want deploy", user)
	}
}

func TestResolveHostFallsBackToAliasAsHostname(t *testing.T) {
	path := writeSSHConfig(t, "Host *\n  User root\n")

	var c Config
	if err := c.LoadSSHConfig(path); err != nil {
		t.Fatalf("LoadSSHConfig: %v", err)
	}

	endpoint, user, _, err := c.ResolveHost("unlisted-host")
	if err != nil {
		t.Fatalf("ResolveHost: %v", err)
	}
	if endpoint != "unlisted-host:22" {
		t.Errorf("endpoint = %q, want unlisted-host:22", endpoint)
	}
	if user != "root" {
		t.Errorf("user = %q, want root", user)
	}
}

func TestLoadSSHConfigMissingFileIsNotAnError(t *testing.T) {
	var c Config
	if err := c.LoadSSHConfig(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("expected no error for a missing ssh config, got %v", err)
	}
}
