package stability

import (
	"log/slog"
	"os"
	"time"

	"txrmwatch/internal/logging"
	"txrmwatch/internal/registry"
)

// Result summarizes one stability sweep.
type Result struct {
	Sampled  int
	Changed  []string
	Stable   []string
	Missing  []string
	Duration time.Duration
}

// Detector samples the tracked files and decides when each has settled.
// A file is stable once its size has not changed for the full settle
// window; any observed size change restarts the window from zero.
type Detector struct {
	reg    *registry.Registry
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// New builds a detector over reg with the given settle window. now may be
// nil, in which case time.Now is used.
func New(reg *registry.Registry, window time.Duration, now func() time.Time, logger *slog.Logger) *Detector {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Detector{
		reg:    reg,
		window: window,
		now:    now,
		logger: logging.WithComponent(logger, "stability"),
	}
}

// Sweep samples every file still settling and promotes the quiescent ones
// to stable. Files already stable, processing, or terminal are skipped.
// A file that cannot be statted keeps its state; the next sweep tries
// again.
func (d *Detector) Sweep() Result {
	started := time.Now()
	now := d.now()
	var result Result

	for _, file := range d.reg.Snapshot() {
		switch file.State {
		case registry.StateDiscovered, registry.StateWaiting:
		default:
			continue
		}
		result.Sampled++

		info, err := os.Stat(file.Path)
		if err != nil {
			result.Missing = append(result.Missing, file.Path)
			d.logger.Debug("stability sample unreadable",
				logging.String(logging.FieldPath, file.Path),
				logging.Error(err))
			continue
		}
		size := info.Size()

		if file.State == registry.StateDiscovered {
			if _, err := d.reg.Update(file.Path, func(f *registry.TrackedFile) {
				f.State = registry.StateWaiting
			}); err != nil {
				d.logger.Error("stability promote failed",
					logging.String(logging.FieldPath, file.Path),
					logging.Error(err))
				continue
			}
			file.State = registry.StateWaiting
		}

		if size != file.LastKnownSize {
			if _, err := d.reg.Update(file.Path, func(f *registry.TrackedFile) {
				f.State = registry.StateWaiting
				f.LastKnownSize = size
				f.LastChange = now
			}); err != nil {
				d.logger.Error("stability reset failed",
					logging.String(logging.FieldPath, file.Path),
					logging.Error(err))
				continue
			}
			result.Changed = append(result.Changed, file.Path)
			d.logger.Debug("file size changed, settle window reset",
				logging.String(logging.FieldPath, file.Path),
				logging.Int64(logging.FieldSize, size))
			continue
		}

		if now.Sub(file.LastChange) < d.window {
			continue
		}

		if _, err := d.reg.Update(file.Path, func(f *registry.TrackedFile) {
			f.State = registry.StateStable
		}); err != nil {
			d.logger.Error("stability promote failed",
				logging.String(logging.FieldPath, file.Path),
				logging.Error(err))
			continue
		}
		result.Stable = append(result.Stable, file.Path)
		d.logger.Info("file settled",
			logging.String(logging.FieldPath, file.Path),
			logging.Int64(logging.FieldSize, size),
			logging.Duration(logging.FieldDuration, now.Sub(file.LastChange)))
	}

	result.Duration = time.Since(started)
	return result
}
