package view

import (
	"strings"

	"github.com/pratik-mahalle/satwatch/internal/domain/anomaly"
	"github.com/pratik-mahalle/satwatch/internal/pkg/validator"
)

// AllSatellites is the selection that disables satellite filtering
const AllSatellites = "all"

// FilterState is the user's current selection. Dates are inclusive YYYY-MM-DD bounds.
type FilterState struct {
	SatelliteID string `json:"satellite_id" validate:"omitempty,max=64,printascii"`
	From        string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To          string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Normalize returns the filter with whitespace trimmed and the satellite
// selection defaulted to AllSatellites
func (f FilterState) Normalize() FilterState {
	f.SatelliteID = strings.TrimSpace(f.SatelliteID)
	f.From = strings.TrimSpace(f.From)
	f.To = strings.TrimSpace(f.To)
	if f.SatelliteID == "" || strings.EqualFold(f.SatelliteID, AllSatellites) {
		f.SatelliteID = AllSatellites
	}
	return f
}

// Validate checks date formats and bound ordering
func (f FilterState) Validate() []validator.ValidationError {
	errs := validator.Validate(f)
	if len(errs) == 0 && f.From != "" && f.To != "" && f.From > f.To {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Tag:     "gtefield",
			Value:   f.To,
			Message: "to must not be earlier than from",
		})
	}
	return errs
}

// Matches reports whether ev passes the filter
func (f FilterState) Matches(ev anomaly.Event) bool {
	if f.SatelliteID != "" && f.SatelliteID != AllSatellites && ev.SatelliteID != f.SatelliteID {
		return false
	}
	if f.From == "" && f.To == "" {
		return true
	}
	// Events without a usable date cannot satisfy a date bound.
	if ev.Date == "" {
		return false
	}
	if f.From != "" && ev.Date < f.From {
		return false
	}
	if f.To != "" && ev.Date > f.To {
		return false
	}
	return true
}

// Filter returns the events that pass f, preserving order
func Filter(events []anomaly.Event, f FilterState) []anomaly.Event {
	out := make([]anomaly.Event, 0, len(events))
	for _, ev := range events {
		if f.Matches(ev) {
			out = append(out, ev)
		}
	}
	return out
}
