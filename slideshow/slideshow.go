// Package slideshow advances the photo rotation on the frame
package slideshow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"inkframe/store"
)

const idlePollInterval = time.Second

// DisplayFunc renders one photo with the given config and pushes it to the
// panel.
type DisplayFunc func(photo store.PhotoRef, cfg store.DisplayConfig) error

// Scheduler cycles through the photo library in the background. The config
// document is re-read on every tick so web edits apply without a restart.
type Scheduler struct {
	config  *store.ConfigStore
	photos  *store.PhotoStore
	display DisplayFunc

	idlePoll time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	index int
}

func New(config *store.ConfigStore, photos *store.PhotoStore, display DisplayFunc) *Scheduler {
	return &Scheduler{
		config:   config,
		photos:   photos,
		display:  display,
		idlePoll: idlePollInterval,
	}
}

// Start launches the rotation loop. Starting a scheduler whose loop is still
// alive is a no-op, so callers may invoke it freely.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alive() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.run(ctx, done)
	slog.Info("photo rotation scheduler started")
}

// Stop interrupts any sleep and waits for the loop to exit. The scheduler can
// be started again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.alive() {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	slog.Info("photo rotation scheduler stopped")
}

// Running reports whether the rotation loop is alive.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive()
}

// alive checks the loop goroutine itself rather than a flag, so a loop that
// died can never wedge Start into refusing to work. Callers hold mu.
func (s *Scheduler) alive() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		wait := s.tick(ctx)
		if !sleep(ctx, wait) {
			return
		}
	}
}

// tick runs one scheduling pass and returns how long to sleep before the
// next. Anything escaping the pass, error or panic, costs one tick only.
func (s *Scheduler) tick(ctx context.Context) (wait time.Duration) {
	wait = s.idlePoll
	defer func() {
		if r := recover(); r != nil {
			slog.Error("rotation tick panicked", "panic", r)
		}
	}()

	cfg := s.config.Load()
	if !cfg.CycleEnabled {
		return wait
	}
	if cfg.QuietHours.Active(time.Now()) {
		return wait
	}

	photos, err := s.photos.List()
	if err != nil {
		slog.Warn("unable to list photos", "error", err)
		return wait
	}
	if len(photos) == 0 {
		return wait
	}

	ordered := EffectiveOrder(photos, cfg.PhotoOrder)
	if s.index >= len(ordered) {
		s.index = 0
	}
	current := ordered[s.index]

	cfg.CurrentPhoto = current.Name
	if err := s.config.Save(cfg); err != nil {
		slog.Warn("unable to persist current photo", "name", current.Name, "error", err)
	}

	if err := s.display(current, cfg); err != nil {
		slog.Warn("unable to display photo", "name", current.Name, "error", err)
	}

	s.index++

	interval := cfg.CycleInterval
	if interval < store.MinCycleInterval {
		interval = store.MinCycleInterval
	}
	return time.Duration(interval) * time.Second
}

// EffectiveOrder resolves the explicit photo_order names against the live
// library: stale names drop out, photos not listed follow in newest-first
// order.
func EffectiveOrder(photos []store.PhotoRef, order []string) []store.PhotoRef {
	if len(order) == 0 {
		return photos
	}

	byName := make(map[string]store.PhotoRef, len(photos))
	for _, p := range photos {
		byName[p.Name] = p
	}

	used := mapset.NewSet[string]()
	ordered := make([]store.PhotoRef, 0, len(photos))
	for _, name := range order {
		p, ok := byName[name]
		if !ok || used.Contains(name) {
			continue
		}
		ordered = append(ordered, p)
		used.Add(name)
	}
	for _, p := range photos {
		if !used.Contains(p.Name) {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// sleep waits for d unless the context ends first, reporting whether the full
// wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
