package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const (
	OrientationLandscape = "landscape"
	OrientationPortrait  = "portrait"
)

// MinCycleInterval is the floor for the rotation interval in seconds.
const MinCycleInterval = 60

// PhotoRef identifies one photo in the library.
type PhotoRef struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// QuietHours suppresses photo rotation inside a daily time window so the
// panel is not flashed with refreshes overnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Active reports whether now falls inside the window. The window may span
// midnight (start later than end).
func (q QuietHours) Active(now time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, err := time.Parse("15:04", q.Start)
	if err != nil {
		slog.Warn("invalid quiet hours start time", "start", q.Start, "error", err)
		return false
	}
	end, err := time.Parse("15:04", q.End)
	if err != nil {
		slog.Warn("invalid quiet hours end time", "end", q.End, "error", err)
		return false
	}

	minutes := now.Hour()*60 + now.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if startMin <= endMin {
		return minutes >= startMin && minutes < endMin
	}
	return minutes >= startMin || minutes < endMin
}

// DisplayConfig is the persisted configuration document. Keys the frame does
// not know about are carried through load and save untouched.
type DisplayConfig struct {
	CycleEnabled  bool
	CycleInterval int
	CurrentPhoto  string
	Orientation   string
	PhotoOrder    []string
	Widgets       map[string]json.RawMessage
	QuietHours    QuietHours

	extra map[string]json.RawMessage
}

// UnmarshalJSON overlays the document onto the receiver: keys present in the
// document replace the receiver's values, keys absent keep them. Unmarshaling
// into Defaults() therefore merges stored values over defaults.
func (c *DisplayConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.extra = nil
	for key, val := range raw {
		var err error
		switch key {
		case "cycle_enabled":
			err = json.Unmarshal(val, &c.CycleEnabled)
		case "cycle_interval":
			err = json.Unmarshal(val, &c.CycleInterval)
		case "current_photo":
			c.CurrentPhoto = ""
			if string(val) != "null" {
				err = json.Unmarshal(val, &c.CurrentPhoto)
			}
		case "orientation":
			err = json.Unmarshal(val, &c.Orientation)
		case "photo_order":
			c.PhotoOrder = nil
			err = json.Unmarshal(val, &c.PhotoOrder)
		case "widgets":
			c.Widgets = nil
			err = json.Unmarshal(val, &c.Widgets)
		case "quiet_hours":
			c.QuietHours = QuietHours{}
			err = json.Unmarshal(val, &c.QuietHours)
		default:
			if c.extra == nil {
				c.extra = make(map[string]json.RawMessage)
			}
			c.extra[key] = val
		}
		if err != nil {
			return fmt.Errorf("failed to parse config key %q: %w", key, err)
		}
	}
	return nil
}

func (c DisplayConfig) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, 7+len(c.extra))
	doc["cycle_enabled"] = c.CycleEnabled
	doc["cycle_interval"] = c.CycleInterval
	if c.CurrentPhoto == "" {
		doc["current_photo"] = nil
	} else {
		doc["current_photo"] = c.CurrentPhoto
	}
	doc["orientation"] = c.Orientation
	if c.PhotoOrder == nil {
		doc["photo_order"] = []string{}
	} else {
		doc["photo_order"] = c.PhotoOrder
	}
	if c.Widgets == nil {
		doc["widgets"] = map[string]json.RawMessage{}
	} else {
		doc["widgets"] = c.Widgets
	}
	doc["quiet_hours"] = c.QuietHours
	for k, v := range c.extra {
		doc[k] = v
	}
	return json.Marshal(doc)
}
