// Package cooldown persists each alert rule's "already notified" memory as a
// single flat JSON document on disk. Every rule owns exactly one key; keys age
// out independently, so a stale entry for one rule never affects another.
package cooldown

import (
	"encoding/json"
	"strconv"
	"time"
)

// Keys owned by the alert rules. Timestamp keys hold an RFC 3339 time; the
// first-freeze key holds a bare year.
const (
	KeyTempDrop         = "last_temp_drop_alert"
	KeyHeatWave         = "last_heat_wave_alert"
	KeySnow             = "last_snow_alert"
	KeyFirstFreezeYear  = "first_freeze_alert_year"
	KeyShoulderFreeze   = "last_shoulder_freeze_alert"
)

// timestampLayouts accepted when reading stored values. Older deployments
// wrote zoneless local timestamps with fractional seconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Record maps rule keys to their stored values. Raw JSON values keep unknown
// keys and legacy encodings (numeric year, zoneless timestamps) intact across
// a load/save round-trip. A missing key means the rule has never alerted.
type Record map[string]json.RawMessage

// OnCooldown reports whether key holds a timestamp less than windowDays old.
// Missing or unparseable values read as "never alerted".
func (r Record) OnCooldown(key string, windowDays int, now time.Time) bool {
	last, ok := r.timestamp(key)
	if !ok {
		return false
	}
	return now.Before(last.AddDate(0, 0, windowDays))
}

// SameCalendarDay reports whether key's stored timestamp falls on the same
// calendar date as now.
func (r Record) SameCalendarDay(key string, now time.Time) bool {
	last, ok := r.timestamp(key)
	if !ok {
		return false
	}
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	return ly == ny && lm == nm && ld == nd
}

// AlertedYear reports whether key's stored year equals year. Accepts both the
// numeric encoding and a quoted string.
func (r Record) AlertedYear(key string, year int) bool {
	raw, ok := r[key]
	if !ok {
		return false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n == year
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, convErr := strconv.Atoi(s); convErr == nil {
			return v == year
		}
	}
	return false
}

// SetTimestamp records now under key.
func (r Record) SetTimestamp(key string, now time.Time) {
	raw, _ := json.Marshal(now.Format(time.RFC3339))
	r[key] = raw
}

// SetYear records year under key.
func (r Record) SetYear(key string, year int) {
	r[key] = json.RawMessage(strconv.Itoa(year))
}

func (r Record) timestamp(key string) (time.Time, bool) {
	raw, ok := r[key]
	if !ok {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
