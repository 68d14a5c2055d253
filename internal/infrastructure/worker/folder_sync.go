package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/design-bureau/internal/application/dispatcher"
	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/domain/event"
)

// ErrStopped is returned by Submit after Stop
var ErrStopped = errors.New("folder sync worker is stopped")

// FolderSyncConfig holds configuration for the folder sync worker
type FolderSyncConfig struct {
	Workers    int
	JobTimeout time.Duration
}

// DefaultFolderSyncConfig returns default configuration
func DefaultFolderSyncConfig() FolderSyncConfig {
	return FolderSyncConfig{
		Workers:    4,
		JobTimeout: 2 * time.Minute,
	}
}

// FolderSyncStats is a snapshot of worker counters
type FolderSyncStats struct {
	Queued    int       `json:"queued"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	LastError string    `json:"last_error,omitempty"`
}

// FolderSyncWorker executes folder jobs on a bounded pool. Jobs of one
// contract run one at a time in submission order; different contracts run
// concurrently.
type FolderSyncWorker struct {
	config FolderSyncConfig

	jobs       port.FolderJobRepository
	contracts  port.ContractRepository
	transport  port.FolderTransport
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger

	slots chan struct{}

	mu        sync.Mutex
	queues    map[int64][]*entity.FolderJob
	draining  sync.WaitGroup
	stopped   bool
	stats     FolderSyncStats
	lastError error
}

// NewFolderSyncWorker creates a new folder sync worker. dispatcher may be nil.
func NewFolderSyncWorker(
	config FolderSyncConfig,
	jobs port.FolderJobRepository,
	contracts port.ContractRepository,
	transport port.FolderTransport,
	d dispatcher.Dispatcher,
	logger *zap.Logger,
) *FolderSyncWorker {
	if config.Workers <= 0 {
		config.Workers = DefaultFolderSyncConfig().Workers
	}
	return &FolderSyncWorker{
		config:     config,
		jobs:       jobs,
		contracts:  contracts,
		transport:  transport,
		dispatcher: d,
		logger:     logger,
		slots:      make(chan struct{}, config.Workers),
		queues:     make(map[int64][]*entity.FolderJob),
		stats:      FolderSyncStats{StartedAt: time.Now()},
	}
}

var _ port.FolderSynchronizer = (*FolderSyncWorker)(nil)

// Submit records the job and queues it behind earlier jobs of the same contract
func (w *FolderSyncWorker) Submit(ctx context.Context, job *entity.FolderJob) error {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	job.Status = entity.FolderJobPending
	if err := w.jobs.Create(ctx, job); err != nil {
		w.logger.Error("Failed to record folder job",
			zap.Int64("contract_id", job.ContractID),
			zap.String("kind", job.Kind),
			zap.Error(err))
		return fmt.Errorf("failed to record folder job: %w", err)
	}

	w.enqueue(job)
	return nil
}

// Start re-queues jobs left pending or running by a previous process
func (w *FolderSyncWorker) Start(ctx context.Context) error {
	var leftover []*entity.FolderJob
	for _, status := range []string{entity.FolderJobRunning, entity.FolderJobPending} {
		jobs, err := w.jobs.ListByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("failed to load %s folder jobs: %w", status, err)
		}
		leftover = append(leftover, jobs...)
	}

	for _, job := range leftover {
		w.enqueue(job)
	}

	w.logger.Info("FolderSyncWorker started",
		zap.Int("workers", w.config.Workers),
		zap.Int("resumed_jobs", len(leftover)))
	return nil
}

// Stop refuses new jobs and waits for queued ones to finish
func (w *FolderSyncWorker) Stop() error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	w.draining.Wait()

	stats := w.Stats()
	w.logger.Info("FolderSyncWorker stopped",
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed))
	return nil
}

// Name returns the worker name for identification
func (w *FolderSyncWorker) Name() string {
	return "FolderSyncWorker"
}

// WaitIdle blocks until every queued job has finished
func (w *FolderSyncWorker) WaitIdle() {
	w.draining.Wait()
}

// Stats returns a snapshot of the worker counters
func (w *FolderSyncWorker) Stats() FolderSyncStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.stats
	for _, q := range w.queues {
		s.Queued += len(q)
	}
	if w.lastError != nil {
		s.LastError = w.lastError.Error()
	}
	return s
}

// RetryFailed re-queues every failed job. Create and relocate jobs are
// retargeted to the contract's current folder path first; jobs whose
// contract no longer exists are skipped.
func (w *FolderSyncWorker) RetryFailed(ctx context.Context) (int, error) {
	failed, err := w.jobs.ListByStatus(ctx, entity.FolderJobFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to list failed folder jobs: %w", err)
	}

	retried := 0
	for _, job := range failed {
		if job.Kind != entity.FolderJobDelete {
			contract, err := w.contracts.GetByID(ctx, job.ContractID)
			if errors.Is(err, port.ErrNotFound) {
				w.logger.Info("Skipping folder job of deleted contract",
					zap.Int64("job_id", job.ID),
					zap.Int64("contract_id", job.ContractID))
				continue
			}
			if err != nil {
				return retried, err
			}
			if contract.FolderPath != job.NewPath {
				if err := w.jobs.Retarget(ctx, job.ID, contract.FolderPath); err != nil {
					return retried, err
				}
				w.logger.Info("Folder job retargeted",
					zap.Int64("job_id", job.ID),
					zap.String("from", job.NewPath),
					zap.String("to", contract.FolderPath))
				job.NewPath = contract.FolderPath
			}
		}

		if err := w.jobs.UpdateResult(ctx, job.ID, entity.FolderJobPending, job.LastError); err != nil {
			return retried, err
		}
		w.enqueue(job)
		retried++
	}
	return retried, nil
}

// enqueue drops the job after Stop; it stays pending in the store and is
// resumed by the next Start
func (w *FolderSyncWorker) enqueue(job *entity.FolderJob) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	q, busy := w.queues[job.ContractID]
	w.queues[job.ContractID] = append(q, job)
	if busy {
		return
	}
	w.draining.Add(1)
	go w.drain(job.ContractID)
}

// drain runs the queue of one contract until it is empty
func (w *FolderSyncWorker) drain(contractID int64) {
	defer w.draining.Done()

	for {
		w.mu.Lock()
		q := w.queues[contractID]
		if len(q) == 0 {
			delete(w.queues, contractID)
			w.mu.Unlock()
			return
		}
		job := q[0]
		w.queues[contractID] = q[1:]
		w.mu.Unlock()

		w.slots <- struct{}{}
		w.run(job)
		<-w.slots
	}
}

func (w *FolderSyncWorker) run(job *entity.FolderJob) {
	ctx := context.Background()
	if err := w.jobs.UpdateResult(ctx, job.ID, entity.FolderJobRunning, ""); err != nil {
		w.logger.Error("Failed to mark folder job running", zap.Int64("job_id", job.ID), zap.Error(err))
	}

	opCtx := ctx
	if w.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, w.config.JobTimeout)
		defer cancel()
	}

	err := w.execute(opCtx, job)

	w.mu.Lock()
	if err != nil {
		w.stats.Failed++
		w.lastError = err
	} else {
		w.stats.Succeeded++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Folder job failed",
			zap.Int64("job_id", job.ID),
			zap.Int64("contract_id", job.ContractID),
			zap.String("kind", job.Kind),
			zap.String("old_path", job.OldPath),
			zap.String("new_path", job.NewPath),
			zap.Error(err))
		if uerr := w.jobs.UpdateResult(ctx, job.ID, entity.FolderJobFailed, err.Error()); uerr != nil {
			w.logger.Error("Failed to record folder job failure", zap.Int64("job_id", job.ID), zap.Error(uerr))
		}
		w.notify(ctx, event.TypeFolderSyncFailed, job, err)
		return
	}

	if uerr := w.jobs.UpdateResult(ctx, job.ID, entity.FolderJobSucceeded, ""); uerr != nil {
		w.logger.Error("Failed to record folder job success", zap.Int64("job_id", job.ID), zap.Error(uerr))
	}
	w.logger.Info("Folder job done",
		zap.Int64("job_id", job.ID),
		zap.String("kind", job.Kind),
		zap.String("path", job.NewPath))
	w.notify(ctx, event.TypeFolderSynced, job, nil)
}

// execute performs one job. On relocation the old folder is removed only
// after its contents were copied in full.
func (w *FolderSyncWorker) execute(ctx context.Context, job *entity.FolderJob) error {
	switch job.Kind {
	case entity.FolderJobCreate:
		return w.transport.CreateFolder(ctx, job.NewPath)

	case entity.FolderJobDelete:
		if job.OldPath == "" {
			return nil
		}
		return w.transport.DeleteFolder(ctx, job.OldPath)

	case entity.FolderJobRelocate:
		if err := w.transport.CreateFolder(ctx, job.NewPath); err != nil {
			return fmt.Errorf("create %s: %w", job.NewPath, err)
		}
		if job.OldPath == "" || job.OldPath == job.NewPath {
			return nil
		}
		exists, err := w.transport.Exists(ctx, job.OldPath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", job.OldPath, err)
		}
		if !exists {
			return nil
		}
		if err := w.transport.CopyContents(ctx, job.OldPath, job.NewPath); err != nil {
			return fmt.Errorf("copy %s to %s: %w", job.OldPath, job.NewPath, err)
		}
		if err := w.transport.DeleteFolder(ctx, job.OldPath); err != nil {
			return fmt.Errorf("delete %s: %w", job.OldPath, err)
		}
		return nil
	}
	return fmt.Errorf("unknown folder job kind %q", job.Kind)
}

func (w *FolderSyncWorker) notify(ctx context.Context, t event.Type, job *entity.FolderJob, jobErr error) {
	if w.dispatcher == nil {
		return
	}
	payload := map[string]interface{}{
		"job_id":   job.ID,
		"kind":     job.Kind,
		"old_path": job.OldPath,
		"new_path": job.NewPath,
	}
	if jobErr != nil {
		payload["error"] = jobErr.Error()
	}
	w.dispatcher.DispatchAsync(ctx, event.NewEvent(t, job.ContractID, 0, payload))
}
