// Package audit writes a structured change trail for default-settings
// mutations. Every bus event that alters configuration becomes one
// machine-parseable log line, separate from the service's operational logs.
package audit

import (
	"io"
	"time"

	"ginie-settings-service/internal/events"

	"github.com/rs/zerolog"
)

// Trail renders configuration change events as structured zerolog entries
type Trail struct {
	logger zerolog.Logger
}

// NewTrail creates a Trail writing to w (typically os.Stdout or a file)
func NewTrail(w io.Writer) *Trail {
	logger := zerolog.New(w).With().
		Timestamp().
		Str("component", "audit-trail").
		Logger()
	return &Trail{logger: logger}
}

// Attach subscribes the trail to every configuration-changing event type
func (t *Trail) Attach(bus *events.EventBus) {
	bus.Subscribe(events.EventDefaultsUpdated, t.handle)
	bus.Subscribe(events.EventDefaultsReset, t.handle)
	bus.Subscribe(events.EventDefaultsReloaded, t.handle)
	bus.Subscribe(events.EventUserConfigSaved, t.handle)
}

func (t *Trail) handle(event events.Event) {
	entry := t.logger.Info().
		Str("event", string(event.Type)).
		Time("at", timestampOf(event))

	if domain, ok := event.Data["domain"].(string); ok {
		entry = entry.Str("domain", domain)
	}
	if updatedBy, ok := event.Data["updated_by"].(string); ok {
		entry = entry.Str("updated_by", updatedBy)
	}
	if userID, ok := event.Data["user_id"].(string); ok {
		entry = entry.Str("user_id", userID)
	}
	if changes, ok := numberOf(event.Data["changes"]); ok {
		entry = entry.Int("changes", changes)
	}
	if version, ok := event.Data["version"].(string); ok {
		entry = entry.Str("version", version)
	}

	entry.Msg("settings change")
}

func timestampOf(event events.Event) time.Time {
	if event.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return event.Timestamp
}

// numberOf accepts the int/float64 variants a map[string]interface{} carries
func numberOf(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
