package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"filmpress/internal/decision"
	"filmpress/internal/encode"
	"filmpress/internal/logging"
	"filmpress/internal/media"
	"filmpress/internal/media/sidecar"
	"filmpress/internal/notifications"
	"filmpress/internal/scan"
	"filmpress/internal/services"
	"filmpress/internal/store"
)

// RunCycle walks the library roots once and settles every discovered file.
// It returns ErrCycleInProgress when called while another cycle is active.
func (m *Manager) RunCycle(ctx context.Context) (*Summary, error) {
	if !m.cycleActive.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer m.cycleActive.Store(false)

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, m.logger)

	summary := &Summary{RunID: runID, StartedAt: time.Now()}

	// An unreachable store cannot record outcomes; fail the cycle up front.
	if _, err := m.store.Health(ctx); err != nil {
		return nil, services.Wrap(services.ErrStore, "workflow", "health", "State store unavailable", err)
	}

	files, err := m.walker.Discover(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrExecution, "workflow", "discover", "Library scan failed", err)
	}
	summary.Discovered = len(files)

	workers := m.workerCount()
	logger.Info("scan cycle started",
		logging.Int("discovered", summary.Discovered),
		logging.Int("workers", workers))

	jobs := make(chan scan.File)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for file := range jobs {
				result := m.processFile(ctx, file)
				mu.Lock()
				summary.apply(result)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, file := range files {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- file:
		}
	}
	close(jobs)
	wg.Wait()

	summary.FinishedAt = time.Now()
	m.setLastSummary(summary)

	logger.Info("scan cycle finished",
		logging.Int("discovered", summary.Discovered),
		logging.Int("transcoded", summary.Transcoded),
		logging.Int("not_required", summary.NotRequired),
		logging.Int("already_tracked", summary.AlreadyTracked),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration()))

	m.notifyRunCompleted(ctx, summary)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (m *Manager) workerCount() int {
	if m.cfg.Workflow.Workers > 0 {
		return m.cfg.Workflow.Workers
	}
	return 1
}

// processFile settles one discovered file and reports how it was handled.
// Errors never escape: each file's failure is logged, recorded, and counted
// so the rest of the cycle proceeds.
func (m *Manager) processFile(ctx context.Context, file scan.File) outcome {
	if ctx.Err() != nil {
		return outcomeSkipped
	}

	ctx = services.WithSourcePath(ctx, file.Path)
	logger := logging.WithContext(ctx, m.logger)
	state := decision.FileState{Size: file.Size, ModTime: file.ModTime}

	prior, err := m.store.Get(ctx, file.Path)
	if err != nil {
		logger.Error("ledger lookup failed", logging.Error(err))
		return outcomeFailed
	}

	// Terminal records settle files without probing them again; this keeps
	// the steady-state cycle cheap on large libraries.
	if m.engine.Tracked(prior, state) {
		logger.Debug("record already settled",
			logging.String(logging.FieldStatus, string(prior.Status)))
		return outcomeAlreadyTracked
	}

	source, resolveErr := m.resolver.Resolve(ctx, file.Path)
	verdict := m.engine.Decide(source, resolveErr, prior, state)

	switch verdict.Kind {
	case decision.KindAlreadyTracked:
		return outcomeAlreadyTracked
	case decision.KindNotRequired:
		record := m.recordFor(prior, file)
		record.Status = store.StatusNotRequired
		record.ErrorMessage = ""
		if err := m.store.Upsert(ctx, record); err != nil {
			logger.Error("failed to persist not-required record", logging.Error(err))
			return outcomeFailed
		}
		logger.Info("source already satisfies the target profile",
			logging.String(logging.FieldDecision, string(verdict.Kind)))
		return outcomeNotRequired
	case decision.KindError:
		record := m.recordFor(prior, file)
		record.SetFailed(verdict.Reason)
		if err := m.store.Upsert(ctx, record); err != nil {
			logger.Error("failed to persist resolution failure", logging.Error(err))
		}
		logger.Warn("metadata resolution failed",
			logging.String("reason", verdict.Reason),
			logging.String(logging.FieldErrorHint, "check the file with ffprobe by hand"))
		m.notifyTranscodeFailed(ctx, file.Path, errors.New(verdict.Reason))
		return outcomeFailed
	case decision.KindTranscode:
		return m.transcode(ctx, logger, file, prior, source, verdict)
	default:
		return outcomeSkipped
	}
}

func (m *Manager) transcode(ctx context.Context, logger *slog.Logger, file scan.File, prior *store.Record, source *media.SourceVideo, verdict decision.Decision) outcome {
	record := m.recordFor(prior, file)
	record.Status = store.StatusInProgress
	record.ErrorMessage = ""
	if err := m.store.Upsert(ctx, record); err != nil {
		logger.Error("failed to claim record", logging.Error(err))
		return outcomeFailed
	}

	logger.Info("transcode needed", logging.String("reason", verdict.Reason))

	result, err := m.encoder.Encode(ctx, source)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not failure. The in-progress record is reset to
			// pending on the next daemon start and the file is revisited
			// on the next cycle either way.
			logger.Debug("transcode interrupted by shutdown")
			return outcomeSkipped
		}
		record.SetFailed(err.Error())
		if persistErr := m.store.Upsert(ctx, record); persistErr != nil {
			logger.Error("failed to persist transcode failure", logging.Error(persistErr))
		}
		logger.Error("transcode failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.ClassLabel(err)))
		m.notifyTranscodeFailed(ctx, file.Path, err)
		return outcomeFailed
	}

	record.SetCompleted(result.OutputPath, result.Width, result.Height, result.Codec, string(result.Backend))
	if err := m.store.Upsert(ctx, record); err != nil {
		logger.Error("failed to persist completed record", logging.Error(err))
		return outcomeFailed
	}

	m.updateSidecar(logger, file.Path, result)

	logger.Info("transcode completed",
		logging.String(logging.FieldOutputPath, result.OutputPath),
		logging.String(logging.FieldBackend, string(result.Backend)))
	return outcomeTranscoded
}

// recordFor carries the prior row forward when one exists, so upserts keep
// created_at and any fields this pass does not touch. The stat signature is
// always refreshed to the walker's view of the file.
func (m *Manager) recordFor(prior *store.Record, file scan.File) *store.Record {
	record := &store.Record{SourcePath: file.Path}
	if prior != nil {
		*record = *prior
	}
	record.SourceSize = file.Size
	record.SourceModifiedAt = file.ModTime
	return record
}

func (m *Manager) updateSidecar(logger *slog.Logger, sourcePath string, result *encode.Result) {
	if !m.cfg.Sidecar.Update {
		return
	}
	updated := &media.SourceVideo{
		Video: media.VideoTrack{
			Codec:  result.Codec,
			Width:  result.Width,
			Height: result.Height,
		},
		Container: media.ContainerInfo{DurationSeconds: result.DurationSeconds},
	}
	if info, err := os.Stat(result.OutputPath); err == nil {
		updated.Container.SizeBytes = info.Size()
	}

	err := sidecar.Update(sourcePath, updated)
	switch {
	case err == nil:
		logger.Debug("sidecar metadata refreshed")
	case errors.Is(err, sidecar.ErrNotFound):
		logger.Debug("no sidecar metadata to refresh")
	default:
		logger.Warn("sidecar refresh failed; the indexer will show stale dimensions", logging.Error(err))
	}
}

func (m *Manager) notifyRunCompleted(ctx context.Context, summary *Summary) {
	if m.notifier == nil || summary == nil {
		return
	}
	// Idle cycles stay quiet.
	if summary.Transcoded == 0 && summary.Failed == 0 {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventRunCompleted, notifications.Payload{
		"transcoded":      summary.Transcoded,
		"failed":          summary.Failed,
		"not_required":    summary.NotRequired,
		"already_tracked": summary.AlreadyTracked,
		"duration":        summary.Duration(),
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send cycle notification")
		} else {
			m.logger.Debug("cycle notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyTranscodeFailed(ctx context.Context, sourcePath string, cause error) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventTranscodeFailed, notifications.Payload{
		"source_path": filepath.Base(sourcePath),
		"error":       cause,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send failure notification")
		} else {
			m.logger.Debug("transcode failure notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyError(ctx context.Context, cause error, contextLabel string) {
	if m.notifier == nil || cause == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
		"error":   cause,
		"context": contextLabel,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send error notification")
		} else {
			m.logger.Debug("error notification failed", logging.Error(err))
		}
	}
}
