package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	DefaultTaskTime     = "09:00"
	DefaultTaskPriority = PriorityMedium
)

// TaskRecord is one task extracted from a transcript. It has no identity
// beyond its position in the batch; callers assign ids before storing it.
type TaskRecord struct {
	Title    string   `json:"title"`
	Time     string   `json:"time"`     // HH:MM, 24h
	Priority Priority `json:"priority"` // low|medium|high
}

// clockRe accepts "H:MM", "H.MM", "HhMM", a bare hour, and an optional
// am/pm suffix ("3 pm", "3:30 p.m.").
var clockRe = regexp.MustCompile(`^(\d{1,2})(?:[:.h](\d{2}))?\s*(?:([ap])\.?\s*m\.?)?$`)

// NormalizeTime returns t as zero-padded 24-hour HH:MM, or ok=false when t
// is not a valid clock time.
func NormalizeTime(t string) (string, bool) {
	m := clockRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(t)))
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	min := 0
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "a", "p":
		if h < 1 || h > 12 {
			return "", false
		}
		if h == 12 {
			h = 0
		}
		if m[3] == "p" {
			h += 12
		}
	}
	if h > 23 || min > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, min), true
}

// ParsePriority maps model output (English or Spanish, any case) to a
// Priority.
func ParsePriority(p string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "low", "baja":
		return PriorityLow, true
	case "medium", "media", "normal":
		return PriorityMedium, true
	case "high", "alta", "urgente":
		return PriorityHigh, true
	default:
		return "", false
	}
}

// Normalize fills defaults for a missing or malformed time/priority and trims
// the title. It reports false when the record has no usable title.
func (t *TaskRecord) Normalize() bool {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return false
	}
	if hhmm, ok := NormalizeTime(t.Time); ok {
		t.Time = hhmm
	} else {
		t.Time = DefaultTaskTime
	}
	if p, ok := ParsePriority(string(t.Priority)); ok {
		t.Priority = p
	} else {
		t.Priority = DefaultTaskPriority
	}
	return true
}
