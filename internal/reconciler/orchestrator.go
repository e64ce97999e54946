package reconciler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"kubeship/internal/cluster"
	"kubeship/internal/config"
	"kubeship/internal/events"
	"kubeship/internal/manifest"
	"kubeship/internal/template"
	"kubeship/internal/upgrade"
	"kubeship/pkg/logging"
)

// Options tunes an Orchestrator.
type Options struct {
	// PollInterval is passed on to the upgrader.
	PollInterval time.Duration
	// ValuesDir is where per-batch values directories are created. The
	// system temp directory is used when empty.
	ValuesDir string
	// Metrics receives job outcomes. A fresh instance is used when nil.
	Metrics *Metrics
}

// Orchestrator reconciles batches of manifests in one region.
type Orchestrator struct {
	region    *config.Region
	cluster   cluster.Client
	notifier  events.Notifier
	upgrader  *upgrade.Upgrader
	engine    *template.Engine
	metrics   *Metrics
	valuesDir string
}

// New creates an orchestrator for region. notifier may be nil.
func New(region *config.Region, c cluster.Client, notifier events.Notifier, opts Options) *Orchestrator {
	u := upgrade.NewUpgrader(c, notifier)
	u.PollInterval = opts.PollInterval

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	return &Orchestrator{
		region:    region,
		cluster:   c,
		notifier:  notifier,
		upgrader:  u,
		engine:    template.New(),
		metrics:   metrics,
		valuesDir: opts.ValuesDir,
	}
}

// Job is one service to reconcile. Resolve runs inside the job, so a
// service that fails to resolve fails alone.
type Job struct {
	Service string
	Resolve func() (*manifest.Manifest, error)
}

// ManifestJob wraps an already resolved manifest.
func ManifestJob(m *manifest.Manifest) Job {
	return Job{Service: m.Name, Resolve: func() (*manifest.Manifest, error) { return m, nil }}
}

// Metrics returns the metrics the orchestrator records into.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// Reconcile reconciles already resolved manifests as ReconcileJobs does.
// Cancelling ctx interrupts rollout polling.
func (o *Orchestrator) Reconcile(ctx context.Context, manifests []*manifest.Manifest, mode upgrade.Mode, workerCount int) error {
	jobs := make([]Job, len(manifests))
	for i, m := range manifests {
		jobs[i] = ManifestJob(m)
	}
	return o.ReconcileJobs(ctx, jobs, mode, workerCount)
}

// ReconcileJobs runs every job on exactly workerCount workers and waits for
// all of them to finish. Failing jobs never cancel their siblings.
//
// Missing rolling versions are logged as warnings. Every other error is
// logged, and the first one in completion order is returned.
//
// Cancelling ctx interrupts the rollout polling of jobs in flight. Every job
// still produces a result.
func (o *Orchestrator) ReconcileJobs(ctx context.Context, batch []Job, mode upgrade.Mode, workerCount int) error {
	if workerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", workerCount)
	}

	start := time.Now()
	o.notifyBatch(ctx, events.StatusStarted)

	dir, err := os.MkdirTemp(o.valuesDir, "kubeship-"+o.region.Name+"-")
	if err != nil {
		o.notifyBatch(ctx, events.StatusFailed)
		return fmt.Errorf("failed to create values directory: %w", err)
	}
	defer os.RemoveAll(dir)

	n := len(batch)
	jobs := make(chan Job, n)
	results := make(chan JobResult, n)
	for _, j := range batch {
		jobs <- j
	}
	close(jobs)

	logging.Info("Reconciler", "Reconciling %d services in %s with %d workers (mode %s)", n, o.region.Name, workerCount, mode)

	var g errgroup.Group
	for range workerCount {
		g.Go(func() error {
			for j := range jobs {
				results <- o.runJob(ctx, dir, mode, j)
			}
			return nil
		})
	}

	var first error
	for range n {
		res := <-results
		o.metrics.RecordJob(res.Service, res.outcome())

		switch {
		case res.Err == nil:
		case IsIgnorable(res.Err):
			logging.Warn("Reconciler", "Skipping %s: %v", res.Service, res.Err)
		default:
			logging.Error("Reconciler", res.Err, "Failed to reconcile %s", res.Service)
			if first == nil {
				first = res.Err
			}
		}
	}
	_ = g.Wait()

	o.metrics.RecordBatch(time.Since(start), first != nil)
	if first != nil {
		o.notifyBatch(ctx, events.StatusFailed)
		return first
	}
	o.notifyBatch(ctx, events.StatusCompleted)
	logging.Info("Reconciler", "Reconciled %d services in %s in %s", n, o.region.Name, time.Since(start).Round(time.Millisecond))
	return nil
}

// runJob takes one service through manifest resolution, version
// resolution, verification, values rendering and the upgrade itself.
func (o *Orchestrator) runJob(ctx context.Context, dir string, mode upgrade.Mode, j Job) (res JobResult) {
	res.Service = j.Service
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Reconciler", errors.New("panic"), "Job %s panicked: %v\n%s", j.Service, r, debug.Stack())
			res.Err = &PanicError{Service: j.Service, Value: r}
		}
	}()

	m, err := j.Resolve()
	if err != nil {
		res.Err = err
		return res
	}

	mf := m.Clone()
	resolution, err := ResolveVersion(ctx, mf, o.cluster, mode)
	if err != nil {
		res.Err = err
		return res
	}
	if resolution.Skip {
		logging.Info("Reconciler", "%s is not deployed in %s, nothing to diff", mf.Name, o.region.Name)
		return res
	}

	mf.Version = &resolution.Version
	if err := mf.VerifyVersion(o.region.VersionScheme); err != nil {
		res.Err = &VerifyError{Service: mf.Name, Err: err}
		return res
	}

	path, err := upgrade.WriteValues(dir, mf, o.engine)
	if err != nil {
		res.Err = fmt.Errorf("failed to render values of %s: %w", mf.Name, err)
		return res
	}

	res.Data = upgrade.NewUpgradeData(mf, resolution.Version, path, mode, resolution.Exists)
	res.Err = o.upgrader.Run(ctx, res.Data)
	return res
}

func (o *Orchestrator) notifyBatch(ctx context.Context, status events.Status) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.NotifyReconciliation(ctx, status, o.region.Name); err != nil {
		logging.Warn("Reconciler", "Failed to notify reconciliation %s in %s: %v", status, o.region.Name, err)
	}
}
