package slideshow

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"inkframe/store"
)

func testStores(t *testing.T) (*store.ConfigStore, *store.PhotoStore) {
	t.Helper()
	dir := t.TempDir()
	photos, err := store.NewPhotoStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store.NewConfigStore(filepath.Join(dir, "config.json")), photos
}

func addPhotos(t *testing.T, photos *store.PhotoStore, names ...string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	// spread mtimes so list order is deterministic: later names are newer
	base := time.Now().Add(-time.Hour)
	for i, name := range names {
		if _, err := photos.Import(name, buf.Bytes()); err != nil {
			t.Fatal(err)
		}
		mtime := base.Add(time.Duration(i) * time.Minute)
		if err := touch(photos, name, mtime); err != nil {
			t.Fatal(err)
		}
	}
}

func touch(photos *store.PhotoStore, name string, mtime time.Time) error {
	return os.Chtimes(photos.DisplayPath(name), mtime, mtime)
}

// displayRecorder collects the photos a scheduler pushed out.
type displayRecorder struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (r *displayRecorder) display(photo store.PhotoRef, cfg store.DisplayConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, photo.Name)
	return r.err
}

func (r *displayRecorder) displayed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func TestEffectiveOrder(t *testing.T) {
	ref := func(name string) store.PhotoRef { return store.PhotoRef{Name: name} }

	cases := []struct {
		name     string
		photos   []store.PhotoRef
		order    []string
		expected []string
	}{
		{
			name:     "no explicit order keeps library order",
			photos:   []store.PhotoRef{ref("c"), ref("b"), ref("a")},
			order:    nil,
			expected: []string{"c", "b", "a"},
		},
		{
			name:     "explicit entries first, stale entries dropped",
			photos:   []store.PhotoRef{ref("c"), ref("b"), ref("a")},
			order:    []string{"b", "z"},
			expected: []string{"b", "c", "a"},
		},
		{
			name:     "full explicit order",
			photos:   []store.PhotoRef{ref("c"), ref("b"), ref("a")},
			order:    []string{"a", "c", "b"},
			expected: []string{"a", "c", "b"},
		},
		{
			name:     "duplicate entries are used once",
			photos:   []store.PhotoRef{ref("b"), ref("a")},
			order:    []string{"a", "a"},
			expected: []string{"a", "b"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EffectiveOrder(tc.photos, tc.order)
			if len(got) != len(tc.expected) {
				t.Fatalf("got %d photos, expected %d", len(got), len(tc.expected))
			}
			for i, expected := range tc.expected {
				if got[i].Name != expected {
					t.Errorf("got[%d] = %q, expected %q", i, got[i].Name, expected)
				}
			}
		})
	}
}

func TestTickAdvancesThroughLibrary(t *testing.T) {
	config, photos := testStores(t)
	addPhotos(t, photos, "a.png", "b.png", "c.png") // list order: c, b, a

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	rec := &displayRecorder{}
	s := New(config, photos, rec.display)

	for i := 0; i < 4; i++ {
		s.tick(context.Background())
	}

	expected := []string{"c.png", "b.png", "a.png", "c.png"} // wraps after the end
	got := rec.displayed()
	if len(got) != len(expected) {
		t.Fatalf("displayed %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("displayed %v, expected %v", got, expected)
		}
	}

	// each tick persists the shown photo
	if current := config.Load().CurrentPhoto; current != "c.png" {
		t.Errorf("current_photo = %q, expected c.png", current)
	}
}

func TestTickHonorsExplicitOrder(t *testing.T) {
	config, photos := testStores(t)
	addPhotos(t, photos, "a.png", "b.png", "c.png")

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	cfg.PhotoOrder = []string{"b.png", "zz.png"}
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	rec := &displayRecorder{}
	s := New(config, photos, rec.display)
	for i := 0; i < 3; i++ {
		s.tick(context.Background())
	}

	got := rec.displayed()
	expected := []string{"b.png", "c.png", "a.png"}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("displayed %v, expected %v", got, expected)
		}
	}
}

func TestTickReclampsIndexAgainstShrunkLibrary(t *testing.T) {
	config, photos := testStores(t)
	addPhotos(t, photos, "a.png", "b.png", "c.png")

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	rec := &displayRecorder{}
	s := New(config, photos, rec.display)
	s.tick(context.Background())
	s.tick(context.Background()) // index now 2

	// library shrinks below the index between ticks
	for _, name := range []string{"a.png", "b.png"} {
		if err := photos.Delete(name); err != nil {
			t.Fatal(err)
		}
	}

	s.tick(context.Background())
	got := rec.displayed()
	if got[len(got)-1] != "c.png" {
		t.Errorf("tick after shrink displayed %q, expected c.png", got[len(got)-1])
	}
}

func TestTickIdlesWhenDisabledOrEmpty(t *testing.T) {
	config, photos := testStores(t)
	rec := &displayRecorder{}
	s := New(config, photos, rec.display)

	// defaults have cycling disabled
	if wait := s.tick(context.Background()); wait != s.idlePoll {
		t.Errorf("disabled tick wait = %v, expected idle poll", wait)
	}

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	// enabled but the library is empty
	if wait := s.tick(context.Background()); wait != s.idlePoll {
		t.Errorf("empty library tick wait = %v, expected idle poll", wait)
	}
	if len(rec.displayed()) != 0 {
		t.Errorf("idle ticks displayed %v", rec.displayed())
	}
}

func TestTickIdlesDuringQuietHours(t *testing.T) {
	config, photos := testStores(t)
	addPhotos(t, photos, "a.png")

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	cfg.QuietHours = store.QuietHours{Enabled: true, Start: "00:00", End: "23:59"}
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	rec := &displayRecorder{}
	s := New(config, photos, rec.display)
	if wait := s.tick(context.Background()); wait != s.idlePoll {
		t.Errorf("quiet hours tick wait = %v, expected idle poll", wait)
	}
	if len(rec.displayed()) != 0 {
		t.Errorf("quiet hours tick displayed %v", rec.displayed())
	}
}

func TestTickUsesConfiguredInterval(t *testing.T) {
	config, photos := testStores(t)
	addPhotos(t, photos, "a.png")

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	cfg.CycleInterval = 120
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	rec := &displayRecorder{}
	s := New(config, photos, rec.display)
	if wait := s.tick(context.Background()); wait != 120*time.Second {
		t.Errorf("wait = %v, expected 2m", wait)
	}

	// a below-minimum stored interval is clamped when consumed
	cfg.CycleInterval = 5
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}
	if wait := s.tick(context.Background()); wait != time.Duration(store.MinCycleInterval)*time.Second {
		t.Errorf("wait = %v, expected the minimum interval", wait)
	}
}

func TestTickSurvivesDisplayFailures(t *testing.T) {
	config, photos := testStores(t)
	addPhotos(t, photos, "a.png", "b.png")

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	rec := &displayRecorder{err: errors.New("panel on fire")}
	s := New(config, photos, rec.display)
	s.tick(context.Background())
	s.tick(context.Background())

	// both ticks ran despite the failures
	if got := rec.displayed(); len(got) != 2 {
		t.Errorf("displayed %v, expected two attempts", got)
	}
}

func TestTickRecoversFromPanic(t *testing.T) {
	config, photos := testStores(t)
	addPhotos(t, photos, "a.png")

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	s := New(config, photos, func(store.PhotoRef, store.DisplayConfig) error {
		panic("renderer exploded")
	})

	if wait := s.tick(context.Background()); wait != s.idlePoll {
		t.Errorf("panicking tick wait = %v, expected idle poll", wait)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	config, photos := testStores(t)
	addPhotos(t, photos, "a.png")

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	rec := &displayRecorder{}
	s := New(config, photos, rec.display)
	defer s.Stop()

	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("scheduler not running after Start")
	}

	// two loops would display twice within the first cycle interval
	time.Sleep(300 * time.Millisecond)
	if got := rec.displayed(); len(got) != 1 {
		t.Errorf("displayed %v, expected exactly one display from one loop", got)
	}
}

func TestStopInterruptsSleepAndAllowsRestart(t *testing.T) {
	config, photos := testStores(t)
	addPhotos(t, photos, "a.png")

	cfg := store.Defaults()
	cfg.CycleEnabled = true
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	rec := &displayRecorder{}
	s := New(config, photos, rec.display)
	s.Start()

	// let the first tick run, then stop mid way through the hour-long sleep
	time.Sleep(200 * time.Millisecond)
	begin := time.Now()
	s.Stop()
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("Stop took %v, expected sub-second", elapsed)
	}
	if s.Running() {
		t.Error("scheduler still running after Stop")
	}

	// the handle is restartable
	s.Start()
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for len(rec.displayed()) < 2 {
		select {
		case <-deadline:
			t.Fatal("restarted scheduler never displayed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStopWithoutStart(t *testing.T) {
	config, photos := testStores(t)
	s := New(config, photos, (&displayRecorder{}).display)
	s.Stop() // must not block or panic
	if s.Running() {
		t.Error("Running reports true for a never-started scheduler")
	}
}
