package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"inkframe/util"
)

const janitorInterval = 24 * time.Hour

// Janitor keeps the library tidy. Originals whose display copy is gone are
// leftovers from interrupted uploads and get removed; display-only photos are
// legal since cropped uploads never had an original. An optional cap on
// library size is enforced oldest-first.
type Janitor struct {
	photos    *PhotoStore
	maxPhotos int
}

func NewJanitor(photos *PhotoStore, maxPhotos int) *Janitor {
	return &Janitor{photos: photos, maxPhotos: maxPhotos}
}

// Run blocks, sweeping once immediately and then on a daily ticker.
func (j *Janitor) Run() {
	ticker := time.NewTicker(janitorInterval)

	j.Sweep()

	for range ticker.C {
		j.Sweep()
	}
}

// Sweep performs one cleanup pass.
func (j *Janitor) Sweep() {
	j.removeOrphanedOriginals()
	j.enforcePhotoLimit()
}

func (j *Janitor) removeOrphanedOriginals() {
	displayNames, err := dirNames(j.photos.photosDir)
	if err != nil {
		slog.Warn("unable to scan photos directory", "error", err)
		return
	}
	originalNames, err := dirNames(j.photos.originalsDir)
	if err != nil {
		slog.Warn("unable to scan originals directory", "error", err)
		return
	}

	for _, name := range originalNames.Difference(displayNames).ToSlice() {
		if err := os.Remove(j.photos.OriginalPath(name)); err != nil {
			slog.Warn("unable to remove orphaned original", "name", name, "error", err)
			continue
		}
		slog.Info("removed orphaned original", "name", name)
	}
}

func (j *Janitor) enforcePhotoLimit() {
	if j.maxPhotos <= 0 {
		return
	}
	photos, err := j.photos.List()
	if err != nil {
		slog.Warn("unable to list photos for limit enforcement", "error", err)
		return
	}
	if len(photos) <= j.maxPhotos {
		return
	}

	// List is newest first, so everything past the cap is oldest
	for _, p := range photos[j.maxPhotos:] {
		if err := j.photos.Delete(p.Name); err != nil {
			slog.Warn("unable to remove photo over limit", "name", p.Name, "error", err)
			continue
		}
		slog.Info("removed photo over library limit", "name", p.Name)
	}
}

func dirNames(dir string) (mapset.Set[string], error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := mapset.NewSet[string]()
	for _, entry := range entries {
		if entry.IsDir() || !util.SupportedExt.Contains(filepath.Ext(entry.Name())) {
			continue
		}
		names.Add(entry.Name())
	}
	return names, nil
}
