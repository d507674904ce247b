package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"inkframe/util"
)

var ErrNotFound = errors.New("photo not found")

// PhotoStore keeps the library on disk: photos/ holds the display copies the
// frame renders from, originals/ the untouched uploads.
type PhotoStore struct {
	photosDir    string
	originalsDir string
}

func NewPhotoStore(rootPath string) (*PhotoStore, error) {
	s := &PhotoStore{
		photosDir:    filepath.Join(rootPath, "photos"),
		originalsDir: filepath.Join(rootPath, "originals"),
	}
	for _, dir := range []string{s.photosDir, s.originalsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create photo directory: %w", err)
		}
	}
	return s, nil
}

// List returns the display copies, newest first.
func (s *PhotoStore) List() ([]PhotoRef, error) {
	entries, err := os.ReadDir(s.photosDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read photos directory: %w", err)
	}

	photos := make([]PhotoRef, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !util.SupportedExt.Contains(filepath.Ext(entry.Name())) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("unable to stat photo", "name", entry.Name(), "error", err)
			continue
		}
		photos = append(photos, PhotoRef{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(photos, func(i, j int) bool {
		return photos[i].Modified.After(photos[j].Modified)
	})
	return photos, nil
}

// DisplayPath returns the path of a photo's display copy.
func (s *PhotoStore) DisplayPath(name string) string {
	return filepath.Join(s.photosDir, name)
}

// OriginalPath returns the path of a photo's original upload.
func (s *PhotoStore) OriginalPath(name string) string {
	return filepath.Join(s.originalsDir, name)
}

// Exists reports whether a display copy is present.
func (s *PhotoStore) Exists(name string) bool {
	_, err := os.Stat(s.DisplayPath(name))
	return err == nil
}

// Save stores an upload under a sanitized, timestamped name and returns the
// resulting ref.
func (s *PhotoStore) Save(filename string, data []byte, now time.Time) (PhotoRef, error) {
	name := util.SanitizeFilename(filename)
	if name == "" {
		return PhotoRef{}, fmt.Errorf("invalid filename %q", filename)
	}
	ext := filepath.Ext(name)
	if !util.SupportedExt.Contains(ext) {
		return PhotoRef{}, fmt.Errorf("unsupported file extension %q", ext)
	}

	base := strings.TrimSuffix(name, ext)
	return s.Import(fmt.Sprintf("%s_%s%s", base, now.Format("20060102_150405"), ext), data)
}

// Import stores a photo under the exact given name. The original bytes are
// kept untouched in originals/; the display copy gets any EXIF rotation baked
// into its pixels so rendering can ignore the tag.
func (s *PhotoStore) Import(name string, data []byte) (PhotoRef, error) {
	name = util.SanitizeFilename(name)
	if name == "" || !util.SupportedExt.Contains(filepath.Ext(name)) {
		return PhotoRef{}, fmt.Errorf("invalid photo name %q", name)
	}

	if err := os.WriteFile(s.OriginalPath(name), data, 0o644); err != nil {
		return PhotoRef{}, fmt.Errorf("failed to store original: %w", err)
	}

	display := data
	if normalized, changed := normalizeOrientation(data); changed {
		display = normalized
	}
	if err := os.WriteFile(s.DisplayPath(name), display, 0o644); err != nil {
		return PhotoRef{}, fmt.Errorf("failed to store display copy: %w", err)
	}
	return s.ref(name)
}

// SaveCropped writes only the display copy, already cropped client-side. A
// re-crop replaces the display copy in place; a fresh crop gets its own
// timestamped name.
func (s *PhotoStore) SaveCropped(filename string, data []byte, recrop bool, now time.Time) (PhotoRef, error) {
	name := util.SanitizeFilename(filename)
	if name == "" {
		return PhotoRef{}, fmt.Errorf("invalid filename %q", filename)
	}
	if !recrop {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		name = fmt.Sprintf("%s_%s.png", base, now.Format("20060102_150405"))
	}
	if !util.SupportedExt.Contains(filepath.Ext(name)) {
		return PhotoRef{}, fmt.Errorf("unsupported file extension %q", filepath.Ext(name))
	}

	if err := os.WriteFile(s.DisplayPath(name), data, 0o644); err != nil {
		return PhotoRef{}, fmt.Errorf("failed to store cropped photo: %w", err)
	}
	return s.ref(name)
}

// Delete removes the display copy and the original. Cropped photos never had
// an original, so a missing original alone is not an error.
func (s *PhotoStore) Delete(name string) error {
	removed := false
	for _, path := range []string{s.DisplayPath(name), s.OriginalPath(name)} {
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
			continue
		}
		removed = true
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

func (s *PhotoStore) ref(name string) (PhotoRef, error) {
	info, err := os.Stat(s.DisplayPath(name))
	if err != nil {
		return PhotoRef{}, fmt.Errorf("failed to stat stored photo: %w", err)
	}
	return PhotoRef{Name: name, Size: info.Size(), Modified: info.ModTime()}, nil
}

// TakenAt extracts the EXIF capture time from photo bytes, when present.
func TakenAt(data []byte) (time.Time, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}
	t, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// normalizeOrientation rewrites photo bytes with their EXIF rotation applied
// so the display copy is upright no matter how the camera stored it. Returns
// the input unchanged when there is nothing to fix.
func normalizeOrientation(data []byte) ([]byte, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return data, false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return data, false
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation <= 1 {
		return data, false
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		slog.Warn("unable to re-orient photo", "error", err)
		return data, false
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
		slog.Warn("unable to encode re-oriented photo", "error", err)
		return data, false
	}
	return buf.Bytes(), true
}
