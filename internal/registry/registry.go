package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// State represents the lifecycle of a tracked file.
type State string

const (
	StateDiscovered State = "discovered"
	StateWaiting    State = "waiting"
	StateStable     State = "stable"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

var allStates = []State{
	StateDiscovered,
	StateWaiting,
	StateStable,
	StateProcessing,
	StateCompleted,
	StateFailed,
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var legalTransitions = map[State]map[State]struct{}{
	StateDiscovered: {StateWaiting: {}},
	StateWaiting:    {StateWaiting: {}, StateStable: {}, StateProcessing: {}},
	StateStable:     {StateProcessing: {}},
	StateProcessing: {StateCompleted: {}, StateFailed: {}},
}

// TrackedFile is one monitored file and everything known about it.
type TrackedFile struct {
	Path          string
	State         State
	LastKnownSize int64
	LastChange    time.Time
	FirstSeen     time.Time
	LastError     string
}

// Clone returns an independent copy.
func (f TrackedFile) Clone() TrackedFile {
	return f
}

// ErrAlreadyClaimed is returned when a second caller tries to move a file
// into processing.
var ErrAlreadyClaimed = fmt.Errorf("registry: file already claimed for processing")

// TransitionError reports an attempted illegal state transition.
type TransitionError struct {
	Path string
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("registry: illegal transition %s -> %s for %s", e.From, e.To, e.Path)
}

// Registry is the in-memory record of every file currently being tracked.
// It is the single source of truth for monitoring state; nothing here is
// persisted and a restart starts empty.
type Registry struct {
	mu    sync.Mutex
	files map[string]*TrackedFile
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{files: make(map[string]*TrackedFile)}
}

// InsertIfAbsent registers the path if it is not already tracked. The
// returned bool reports whether a new entry was created. An existing entry
// is left untouched regardless of its state.
func (r *Registry) InsertIfAbsent(path string, size int64, now time.Time) (TrackedFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.files[path]; ok {
		return existing.Clone(), false
	}
	file := &TrackedFile{
		Path:          path,
		State:         StateDiscovered,
		LastKnownSize: size,
		LastChange:    now,
		FirstSeen:     now,
	}
	r.files[path] = file
	return file.Clone(), true
}

// Get returns a copy of the tracked file.
func (r *Registry) Get(path string) (TrackedFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[path]
	if !ok {
		return TrackedFile{}, false
	}
	return file.Clone(), true
}

// Update applies mutate to the entry under the registry lock. The mutator
// receives a copy; the requested state change is validated before the copy
// is stored back. A mutator that leaves State untouched is always legal.
func (r *Registry) Update(path string, mutate func(*TrackedFile)) (TrackedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[path]
	if !ok {
		return TrackedFile{}, fmt.Errorf("registry: %s is not tracked", path)
	}

	updated := file.Clone()
	mutate(&updated)
	updated.Path = file.Path
	updated.FirstSeen = file.FirstSeen

	if updated.State != file.State {
		if err := checkTransition(path, file.State, updated.State); err != nil {
			return file.Clone(), err
		}
	}

	*file = updated
	return file.Clone(), nil
}

// Claim atomically moves a waiting or stable file into processing. It is
// the at-most-once dispatch gate: exactly one caller wins, every other
// caller gets ErrAlreadyClaimed (already processing) or a TransitionError
// (terminal or not yet eligible).
func (r *Registry) Claim(path string) (TrackedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[path]
	if !ok {
		return TrackedFile{}, fmt.Errorf("registry: %s is not tracked", path)
	}
	if file.State == StateProcessing {
		return file.Clone(), ErrAlreadyClaimed
	}
	if err := checkTransition(path, file.State, StateProcessing); err != nil {
		return file.Clone(), err
	}
	file.State = StateProcessing
	return file.Clone(), nil
}

// Remove drops the entry. Removing an unknown path is a no-op.
func (r *Registry) Remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, path)
}

// Snapshot returns copies of every tracked file ordered by path.
func (r *Registry) Snapshot() []TrackedFile {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TrackedFile, 0, len(r.files))
	for _, file := range r.files {
		out = append(out, file.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// InState returns copies of entries currently in the given state, ordered
// by path.
func (r *Registry) InState(state State) []TrackedFile {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []TrackedFile
	for _, file := range r.files {
		if file.State == state {
			out = append(out, file.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Stats reports how many files sit in each state.
func (r *Registry) Stats() map[State]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[State]int, len(allStates))
	for _, state := range allStates {
		stats[state] = 0
	}
	for _, file := range r.files {
		stats[file.State]++
	}
	return stats
}

// Len returns the number of tracked files.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

func checkTransition(path string, from, to State) error {
	if targets, ok := legalTransitions[from]; ok {
		if _, ok := targets[to]; ok {
			return nil
		}
	}
	return &TransitionError{Path: path, From: from, To: to}
}
