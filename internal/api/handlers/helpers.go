package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/satwatch/internal/pkg/errors"
	"github.com/pratik-mahalle/satwatch/internal/view"
)

// parseFilter reads the filter selection from the query string
func parseFilter(r *http.Request) (view.FilterState, *errors.AppError) {
	q := r.URL.Query()
	f := view.FilterState{
		SatelliteID: q.Get("satellite_id"),
		From:        q.Get("from"),
		To:          q.Get("to"),
	}.Normalize()

	if errs := f.Validate(); len(errs) > 0 {
		return f, errors.ValidationError("Invalid filter", errs)
	}
	return f, nil
}
