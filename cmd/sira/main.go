// Command sira is the control-node CLI: it loads one or more manifest
// files, flattens them into a per-host run plan, and drives that plan to
// completion over SSH, one sira-client invocation per action.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"sira/internal/config"
	"sira/internal/coordinator"
	"sira/internal/logging"
	"sira/internal/manifest"
	"sira/internal/signing"
)

const (
	defaultManifestAllowedSigners = "/etc/sira/allowed_signers/manifest"
	failtrackerFile               = ".sira-failtracker.json"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sira", flag.ContinueOnError)

	var verbosity int
	var dryRun bool
	var sshConfigPath string
	var actionKeyPath string
	var maxConcurrency int

	fs.IntVar(&verbosity, "v", logging.Standard, "Verbosity level <0...5>")
	fs.IntVar(&verbosity, "verbosity", logging.Standard, "Verbosity level <0...5>")
	fs.BoolVar(&dryRun, "T", false, "Print the compiled run plan without opening any SSH session")
	fs.BoolVar(&dryRun, "dry-run", false, "Print the compiled run plan without opening any SSH session")
	fs.StringVar(&sshConfigPath, "c", "", "Path to ssh_config [default: ~/.ssh/config]")
	fs.StringVar(&sshConfigPath, "config", "", "Path to ssh_config [default: ~/.ssh/config]")
	fs.StringVar(&actionKeyPath, "i", "", "Path to the action-signing private key")
	fs.StringVar(&actionKeyPath, "identity", "", "Path to the action-signing private key")
	fs.IntVar(&maxConcurrency, "m", 0, "Maximum simultaneous SSH connections (0 disables the limit)")
	fs.IntVar(&maxConcurrency, "max-conns", 0, "Maximum simultaneous SSH connections (0 disables the limit)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	manifestPaths := fs.Args()
	if len(manifestPaths) == 0 {
		fmt.Fprintln(os.Stderr, "sira: usage: sira <manifest-file>...")
		return 2
	}

	logger := logging.New(verbosity, false)

	verifier := signing.Verifier{AllowedSignersPath: defaultManifestAllowedSigners}
	loader := &manifest.Loader{Verifier: verifier}

	ctx := context.Background()
	manifests, err := loader.LoadManifests(ctx, manifestPaths)
	if err != nil {
		logger.LogError("loading manifests", err)
		return 2
	}

	plan := manifest.Flatten(manifests)

	var cfg config.Config
	if err := cfg.LoadSSHConfig(sshConfigPath); err != nil {
		logger.LogError("loading ssh config", err)
		return 2
	}
	cfg.PrivateKeyPath = actionKeyPath

	actionSigner := signing.Signer{KeyPath: actionKeyPath}

	coord := &coordinator.Coordinator{
		Config:         &cfg,
		Signer:         actionSigner,
		Logger:         logger,
		DryRun:         dryRun,
		MaxConcurrency: maxConcurrency,
	}

	results := coord.Run(ctx, plan)

	summary := coordinator.BuildSummary(results)
	if werr := coordinator.WriteFailtracker(failtrackerFile, summary); werr != nil {
		logger.LogError("writing failtracker file", werr)
	}

	for _, r := range results {
		if r.Unreachable {
			logger.Printf(logging.Standard, "Host %s: unreachable: %v\n", r.Host, r.Err)
			continue
		}
		if r.Succeeded() {
			logger.Printf(logging.Standard, "Host %s: success\n", r.Host)
		} else {
			logger.Printf(logging.Standard, "Host %s: failed\n", r.Host)
		}
	}

	return coordinator.ExitCode(results)
}
