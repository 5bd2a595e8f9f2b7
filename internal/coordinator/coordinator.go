// Package coordinator implements the run coordinator (component F): one
// Executor per unique host, run with bounded concurrency, collecting final
// per-host outcomes and deriving the process exit code.
package coordinator

import (
	"context"
	"sync"

	"sira/internal/action"
	"sira/internal/config"
	"sira/internal/executor"
	"sira/internal/logging"
	"sira/internal/signing"
	"sira/internal/transport"
)

// Coordinator drives a RunPlan to completion across all of its hosts.
type Coordinator struct {
	Config *config.Config
	Signer signing.Signer
	Logger *logging.Logger
	DryRun bool

	// MaxConcurrency bounds simultaneous host connections. 0 means
	// unbounded (one goroutine per host), matching spec §4.F's default.
	MaxConcurrency int
}

// Run executes plan and returns one HostResult per host, in plan.Hosts
// order.
func (c *Coordinator) Run(ctx context.Context, plan *action.RunPlan) []executor.HostResult {
	results := make([]executor.HostResult, len(plan.Hosts))

	var semaphore chan struct{}
	if c.MaxConcurrency > 0 {
		semaphore = make(chan struct{}, c.MaxConcurrency)
	}

	var wg sync.WaitGroup
	for i, host := range plan.Hosts {
		wg.Add(1)
		go func(i int, host string) {
			defer wg.Done()
			if semaphore != nil {
				semaphore <- struct{}{}
				defer func() { <-semaphore }()
			}
			results[i] = c.runHost(ctx, host, plan.Actions[host])
		}(i, host)
	}
	wg.Wait()

	return results
}

func (c *Coordinator) runHost(ctx context.Context, host string, actions []action.HostAction) executor.HostResult {
	if c.DryRun {
		ex := &executor.Executor{Signer: c.Signer, Logger: c.Logger, DryRun: true}
		return ex.Run(ctx, host, actions)
	}

	hostCfg, err := c.Config.HostTransportConfig(host)
	if err != nil {
		return executor.HostResult{Host: host, Unreachable: true, Err: err}
	}

	session, err := transport.Dial(ctx, hostCfg)
	if err != nil {
		return executor.HostResult{Host: host, Unreachable: true, Err: err}
	}
	defer session.Close()

	ex := &executor.Executor{
		Session: session,
		Signer:  c.Signer,
		Logger:  c.Logger,
	}
	return ex.Run(ctx, host, actions)
}

// ExitCode derives the control node's process exit code from the collected
// results: 0 when every reachable host's actions all succeeded, 1 when any
// reachable host had a failing action (a signature rejected by sira-client
// counts as a failing action). It never returns 2; cmd/sira returns 2 itself
// for configuration or signature errors hit before any host ran. Unreachable hosts alone
// do not force a non-zero exit (resolved Open Question: a host that never
// answered is reported, not treated the same as one that actively failed).
func ExitCode(results []executor.HostResult) int {
	sawFailure := false
	for _, r := range results {
		if r.Unreachable {
			continue
		}
		if !r.Succeeded() {
			sawFailure = true
		}
	}
	if sawFailure {
		return 1
	}
	return 0
}
