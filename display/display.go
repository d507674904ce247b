// Package display pushes finished frame buffers to the e-ink panel
package display

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrUnavailable is returned when no display hardware is configured, so the
// frame keeps running headless in dev environments.
var ErrUnavailable = errors.New("display hardware unavailable")

// Sink drives the panel. Output pushes one finished frame buffer.
type Sink interface {
	Output(img image.Image) error
	Available() bool
}

// New builds the sink for the configured display command. An empty command
// selects the headless no-op sink.
func New(command, spoolPath string) Sink {
	if strings.TrimSpace(command) == "" {
		slog.Info("no display command configured, running in dev mode")
		return NopSink{}
	}
	fields := strings.Fields(command)
	return &CommandSink{name: fields[0], args: fields[1:], spoolPath: spoolPath}
}

// CommandSink writes the frame buffer to a spool file and hands its path to
// an external command, typically a small driver script for the inky panel.
type CommandSink struct {
	name      string
	args      []string
	spoolPath string
}

func (s *CommandSink) Output(img image.Image) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode frame buffer: %w", err)
	}
	if err := os.WriteFile(s.spoolPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to spool frame buffer: %w", err)
	}

	args := append(append([]string{}, s.args...), s.spoolPath)
	cmd := exec.Command(s.name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("display command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *CommandSink) Available() bool {
	_, err := exec.LookPath(s.name)
	return err == nil
}

// NopSink reports unavailability instead of crashing when there is no panel.
type NopSink struct{}

func (NopSink) Output(image.Image) error { return ErrUnavailable }

func (NopSink) Available() bool { return false }
