package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"txrmwatch/internal/events"
	"txrmwatch/internal/extractor"
	"txrmwatch/internal/logging"
	"txrmwatch/internal/notifications"
	"txrmwatch/internal/registry"
	"txrmwatch/internal/sidecar"
)

// Dispatcher hands settled files to the extractor exactly once each and
// writes the resulting sidecar. Different files may be in flight
// concurrently up to the configured limit; the registry claim guarantees
// at most one dispatch per file.
type Dispatcher struct {
	reg      *registry.Registry
	ext      extractor.Extractor
	notifier notifications.Service
	sink     events.Sink
	logger   *slog.Logger
	timeout  time.Duration
	sem      chan struct{}
	wg       sync.WaitGroup
}

// New builds a dispatcher. maxConcurrent bounds simultaneous extractions;
// timeout bounds each one (zero disables the bound). sink and notifier may
// be nil.
func New(reg *registry.Registry, ext extractor.Extractor, notifier notifications.Service, sink events.Sink, maxConcurrent int, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if sink == nil {
		sink = events.Nop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		reg:      reg,
		ext:      ext,
		notifier: notifier,
		sink:     sink,
		logger:   logging.WithComponent(logger, "dispatch"),
		timeout:  timeout,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// Dispatch claims path and runs the extraction to a terminal state. A
// path that is already processing or terminal is a silent no-op. The
// extraction itself runs on a context detached from ctx, so a dispatch
// that has started always finishes and writes its sidecar even during
// shutdown; ctx only gates waiting for a concurrency slot.
func (d *Dispatcher) Dispatch(ctx context.Context, path string) error {
	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	file, err := d.reg.Claim(path)
	if err != nil {
		<-d.sem
		if errors.Is(err, registry.ErrAlreadyClaimed) {
			return nil
		}
		var terr *registry.TransitionError
		if errors.As(err, &terr) && (terr.From.Terminal() || terr.From == registry.StateDiscovered) {
			return nil
		}
		return err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()
		d.process(context.WithoutCancel(ctx), file)
	}()
	return nil
}

// Wait blocks until every in-flight dispatch has reached a terminal state.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) process(ctx context.Context, file registry.TrackedFile) {
	path := file.Path
	started := time.Now()
	d.sink.Emit(events.New(events.KindProcessingStart, path, ""))
	d.logger.Info("processing started",
		logging.String(logging.FieldPath, path),
		logging.Int64(logging.FieldSize, file.LastKnownSize))

	runCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	fields, err := d.ext.ExtractMetadata(runCtx, path)
	if err == nil && len(fields) == 0 {
		err = extractor.ErrNoFields
	}
	if err != nil {
		d.fail(ctx, path, err)
		return
	}

	if err := sidecar.WriteSuccess(path, fields, time.Now()); err != nil {
		d.fail(ctx, path, err)
		return
	}

	if _, err := d.reg.Update(path, func(f *registry.TrackedFile) {
		f.State = registry.StateCompleted
		f.LastError = ""
	}); err != nil {
		d.logger.Error("completion transition failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
	}

	elapsed := time.Since(started).Round(time.Millisecond)
	d.sink.Emit(events.New(events.KindProcessingSuccess, path, fmt.Sprintf("%d fields in %s", len(fields), elapsed)))
	d.logger.Info("processing succeeded",
		logging.String(logging.FieldPath, path),
		logging.Int(logging.FieldCount, len(fields)),
		logging.Duration(logging.FieldDuration, elapsed))

	if d.notifier != nil {
		if err := d.notifier.NotifyProcessingSucceeded(ctx, path); err != nil {
			d.logger.Warn("success notification failed", logging.Error(err))
		}
	}
}

// fail writes the marker sidecar and retires the file. A failure to write
// even the marker leaves the file failed in the registry; it will not be
// retried this run, and without a sidecar the next run rediscovers it.
func (d *Dispatcher) fail(ctx context.Context, path string, cause error) {
	if err := sidecar.WriteFailure(path, cause, time.Now()); err != nil {
		d.logger.Error("failure sidecar write failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
	}

	if _, err := d.reg.Update(path, func(f *registry.TrackedFile) {
		f.State = registry.StateFailed
		f.LastError = cause.Error()
	}); err != nil {
		d.logger.Error("failure transition failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
	}

	d.sink.Emit(events.New(events.KindProcessingFailure, path, cause.Error()))
	d.logger.Error("processing failed",
		logging.String(logging.FieldPath, path),
		logging.Error(cause))

	if d.notifier != nil {
		if err := d.notifier.NotifyProcessingFailed(ctx, path, cause); err != nil {
			d.logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}
