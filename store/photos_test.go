package store

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"
)

func newTestPhotoStore(t *testing.T) *PhotoStore {
	t.Helper()
	s, err := NewPhotoStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create photo store: %v", err)
	}
	return s
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSaveTimestampsAndStoresBothCopies(t *testing.T) {
	s := newTestPhotoStore(t)
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	ref, err := s.Save("my photo.png", pngBytes(t, 4, 4), now)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if ref.Name != "my_photo_20260314_150926.png" {
		t.Errorf("stored name = %q", ref.Name)
	}
	for _, path := range []string{s.DisplayPath(ref.Name), s.OriginalPath(ref.Name)} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected copy at %s: %v", path, err)
		}
	}
}

func TestSaveRejectsUnsupportedExtension(t *testing.T) {
	s := newTestPhotoStore(t)
	if _, err := s.Save("notes.txt", []byte("hello"), time.Now()); err == nil {
		t.Error("expected an error for a .txt upload")
	}
	if _, err := s.Save("", []byte("x"), time.Now()); err == nil {
		t.Error("expected an error for an empty filename")
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestPhotoStore(t)
	data := pngBytes(t, 4, 4)

	names := []string{"a.png", "b.png", "c.png"}
	base := time.Now().Add(-time.Hour)
	for i, name := range names {
		if _, err := s.Import(name, data); err != nil {
			t.Fatal(err)
		}
		mtime := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(s.DisplayPath(name), mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}

	photos, err := s.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(photos) != 3 {
		t.Fatalf("List returned %d photos, expected 3", len(photos))
	}
	for i, expected := range []string{"c.png", "b.png", "a.png"} {
		if photos[i].Name != expected {
			t.Errorf("photos[%d] = %q, expected %q", i, photos[i].Name, expected)
		}
	}
}

func TestListSkipsUnsupportedFiles(t *testing.T) {
	s := newTestPhotoStore(t)
	if _, err := s.Import("a.png", pngBytes(t, 4, 4)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.DisplayPath("notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	photos, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(photos) != 1 || photos[0].Name != "a.png" {
		t.Errorf("List = %+v, expected just a.png", photos)
	}
}

func TestDeleteRemovesBothCopies(t *testing.T) {
	s := newTestPhotoStore(t)
	ref, err := s.Import("a.png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ref.Name); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	for _, path := range []string{s.DisplayPath(ref.Name), s.OriginalPath(ref.Name)} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected %s to be removed", path)
		}
	}
}

func TestDeleteMissingPhoto(t *testing.T) {
	s := newTestPhotoStore(t)
	if err := s.Delete("nope.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) = %v, expected ErrNotFound", err)
	}
}

func TestDeleteDisplayOnlyPhoto(t *testing.T) {
	s := newTestPhotoStore(t)
	ref, err := s.SaveCropped("crop.png", pngBytes(t, 4, 4), false, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ref.Name); err != nil {
		t.Errorf("Delete of a cropped photo failed: %v", err)
	}
}

func TestSaveCroppedNaming(t *testing.T) {
	s := newTestPhotoStore(t)
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	data := pngBytes(t, 4, 4)

	ref, err := s.SaveCropped("holiday.jpg", data, false, now)
	if err != nil {
		t.Fatalf("SaveCropped returned error: %v", err)
	}
	if !strings.HasSuffix(ref.Name, "_20260314_150926.png") {
		t.Errorf("fresh crop name = %q, expected a timestamped .png", ref.Name)
	}
	if _, err := os.Stat(s.OriginalPath(ref.Name)); !errors.Is(err, os.ErrNotExist) {
		t.Error("cropped upload should not create an original copy")
	}

	// a re-crop keeps the exact name and overwrites in place
	ref2, err := s.SaveCropped(ref.Name, data, true, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("re-crop returned error: %v", err)
	}
	if ref2.Name != ref.Name {
		t.Errorf("re-crop renamed %q to %q", ref.Name, ref2.Name)
	}
}

func TestExists(t *testing.T) {
	s := newTestPhotoStore(t)
	if s.Exists("a.png") {
		t.Error("Exists before import")
	}
	if _, err := s.Import("a.png", pngBytes(t, 4, 4)); err != nil {
		t.Fatal(err)
	}
	if !s.Exists("a.png") {
		t.Error("Exists after import")
	}
}
