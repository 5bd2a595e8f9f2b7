package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sira/internal/signing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadManifestsUnsignedMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hello.task.yaml", "name: hello-task\nactions:\n  - command:\n      argv: [[echo, hello]]\n")
	manifestPath := writeFile(t, dir, "hello.yaml", "name: hello\nhosts: [h1]\ninclude: [hello.task.yaml]\n")

	loader := &Loader{} // no allowed-signers configured => unsigned mode permitted
	manifests, err := loader.LoadManifests(context.Background(), []string{manifestPath})
	if err != nil {
		t.Fatalf("LoadManifests: %v", err)
	}
	if len(manifests) != 1 {
		t.Fatalf("expected 1 manifest, got %d", len(manifests))
	}
	if len(manifests[0].Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(manifests[0].Tasks))
	}
	if len(manifests[0].Tasks[0].Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(manifests[0].Tasks[0].Actions))
	}
}

func TestLoadManifestsRejectsEmptyHosts(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeFile(t, dir, "bad.yaml", "name: bad\nhosts: []\n")

	loader := &Loader{}
	if _, err := loader.LoadManifests(context.Background(), []string{manifestPath}); err == nil {
		t.Fatal("expected error for empty hosts list")
	}
}

func TestLoadManifestsRejectsMixedDocumentTypesInOneFile(t *testing.T) {
	dir := t.TempDir()
	mixed := "name: m\nhosts: [h1]\n---\nname: t\nactions:\n  - command:\n      argv: [[echo, x]]\n"
	manifestPath := writeFile(t, dir, "mixed.yaml", mixed)

	loader := &Loader{}
	if _, err := loader.LoadManifests(context.Background(), []string{manifestPath}); err == nil {
		t.Fatal("expected error for mixed manifest/task documents in one file")
	}
}

func TestLoadManifestsRejectsBadVariableName(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeFile(t, dir, "bad.yaml", "name: m\nhosts: [h1]\nvars:\n  \"1bad\": x\n")

	loader := &Loader{}
	if _, err := loader.LoadManifests(context.Background(), []string{manifestPath}); err == nil {
		t.Fatal("expected error for invalid variable name")
	}
}

func TestLoadManifestsMissingSignatureFails(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeFile(t, dir, "hello.yaml", "name: hello\nhosts: [h1]\n")

	// Allowed-signers file present but manifest has no sibling .sig - must fail.
	allowed := writeFile(t, dir, "allowed_signers", "sira ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAI000000000000000000000000000000000000000000\n")

	loader := &Loader{Verifier: signing.Verifier{AllowedSignersPath: allowed}}
	if _, err := loader.LoadManifests(context.Background(), []string{manifestPath}); err == nil {
		t.Fatal("expected signature error when allowed-signers is present but file is unsigned")
	}
}

func TestLoadManifestsIncludeResolvesRelativeToManifestDir(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "tasks")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, subDir, "t.yaml", "name: t\nactions:\n  - command:\n      argv: [[echo, hi]]\n")
	manifestPath := writeFile(t, dir, "m.yaml", "name: m\nhosts: [h1]\ninclude: [tasks/t.yaml]\n")

	loader := &Loader{}
	manifests, err := loader.LoadManifests(context.Background(), []string{manifestPath})
	if err != nil {
		t.Fatalf("LoadManifests: %v", err)
	}
	if len(manifests[0].Tasks) != 1 {
		t.Fatalf("expected included task to resolve, got %d tasks", len(manifests[0].Tasks))
	}
}
