// Package widget renders overlay elements composited onto display images
package widget

import (
	"encoding/json"
	"fmt"
	"image"
)

// Widget is a single overlay element drawn on top of a photo. Implementations
// are instantiated per composition pass and never shared between passes.
type Widget interface {
	// Render draws the widget sized for the given display. A nil image with a
	// nil error means there is nothing to draw.
	Render(displayWidth, displayHeight int) (*image.NRGBA, error)

	// PositionPixels resolves the configured placement into absolute top-left
	// pixel coordinates, before any clamping by the compositor.
	PositionPixels(displayWidth, displayHeight int) (int, int)
}

// Settings is the config shape shared by all widget types. Extra fields in a
// stored widget config are ignored here and preserved by the config store.
type Settings struct {
	Enabled  bool     `json:"enabled"`
	Position Position `json:"position"`
	Style    Style    `json:"style"`

	// Orientation is injected by the compositor for the current pass and is
	// not persisted.
	Orientation string `json:"-"`
}

// ParseSettings decodes a stored widget config blob.
func ParseSettings(raw json.RawMessage) (Settings, error) {
	var s Settings
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse widget config: %w", err)
	}
	return s, nil
}

// Enabled reports the enabled flag of a raw widget config blob without
// interpreting the rest of it.
func Enabled(raw json.RawMessage) bool {
	var probe struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Enabled
}

// Definition ties a widget type name to its constructor and default config.
type Definition struct {
	Type     string
	New      func(cfg json.RawMessage, orientation string) (Widget, error)
	Defaults Settings
}

// Registry maps widget type names to their definitions. It is populated once
// at process start and read-only afterwards.
type Registry struct {
	defs  map[string]Definition
	order []string
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

func (r *Registry) Register(def Definition) {
	if _, ok := r.defs[def.Type]; !ok {
		r.order = append(r.order, def.Type)
	}
	r.defs[def.Type] = def
}

func (r *Registry) Lookup(widgetType string) (Definition, bool) {
	def, ok := r.defs[widgetType]
	return def, ok
}

// Types lists registered widget types in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Builtin returns a registry with all built-in widgets registered.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(DateDefinition())
	return r
}
