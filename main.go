package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"inkframe/api"
	"inkframe/compose"
	"inkframe/display"
	"inkframe/remote"
	"inkframe/slideshow"
	"inkframe/store"
	"inkframe/widget"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("unable to load .env file", "error", err)
	}

	dataDir := os.Getenv("FRAME_DATA_DIR")
	if dataDir == "" {
		log.Fatal("FRAME_DATA_DIR environment variable is required")
	}

	photos, err := store.NewPhotoStore(dataDir)
	if err != nil {
		log.Fatalf("Failed to initialize photo store: %v", err)
	}
	config := store.NewConfigStore(filepath.Join(dataDir, "config.json"))

	registry := widget.Builtin()
	compositor := compose.New(registry)
	sink := display.New(os.Getenv("FRAME_DISPLAY_CMD"), filepath.Join(dataDir, "frame.png"))

	scheduler := slideshow.New(config, photos, func(photo store.PhotoRef, cfg store.DisplayConfig) error {
		img, err := compositor.PrepareDisplayImage(photos.DisplayPath(photo.Name), cfg)
		if err != nil {
			return err
		}
		if err := sink.Output(img); err != nil {
			if errors.Is(err, display.ErrUnavailable) {
				slog.Debug("no display hardware, skipping output", "name", photo.Name)
				return nil
			}
			return err
		}
		return nil
	})
	scheduler.Start()

	maxPhotos := 0
	if v := os.Getenv("FRAME_MAX_PHOTOS"); v != "" {
		maxPhotos, err = strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid FRAME_MAX_PHOTOS value %q: %v", v, err)
		}
	}
	go store.NewJanitor(photos, maxPhotos).Run()

	if bucket := os.Getenv("FRAME_S3_BUCKET"); bucket != "" {
		remoteManager, err := remote.NewManager(bucket, os.Getenv("FRAME_AWS_PROFILE"), os.Getenv("FRAME_S3_PREFIX"), photos)
		if err != nil {
			log.Fatalf("Failed to initialize remote manager: %v", err)
		}
		go remoteManager.Run()
	}

	port := os.Getenv("FRAME_PORT")
	if port == "" {
		port = "8080"
	}

	webServer := api.NewWebServer(config, photos, registry, compositor, sink, scheduler)
	webServer.Start("0.0.0.0:" + port)
}
