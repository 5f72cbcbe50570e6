package report

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultDateFilterType is the order timestamp field filtered on when the
// request names none.
const DefaultDateFilterType = "date_added"

// ValidationError reports a malformed report request.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var dateFieldPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Accepted start/end layouts. Zone-less values are taken as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

const dateOnlyLayout = "2006-01-02"

// BuildQuery translates a report request into order list filters:
// status, {field}_from and {field}_to as RFC3339 UTC timestamps.
func BuildQuery(req Request) (url.Values, error) {
	q := url.Values{}

	switch status := strings.TrimSpace(req.Status); strings.ToLower(status) {
	case "", "all", "any":
	default:
		q.Set("status", status)
	}

	field := strings.TrimSpace(req.DateFilterType)
	if field == "" {
		field = DefaultDateFilterType
	}
	if !dateFieldPattern.MatchString(field) {
		return nil, &ValidationError{Field: "dateFilterType", Reason: fmt.Sprintf("%q is not a field name", field)}
	}

	var from, to time.Time
	var err error
	if raw := strings.TrimSpace(req.Start); raw != "" {
		if from, err = parseBound(raw, false); err != nil {
			return nil, &ValidationError{Field: "start", Reason: err.Error()}
		}
		q.Set(field+"_from", from.Format(time.RFC3339))
	}
	if raw := strings.TrimSpace(req.End); raw != "" {
		if to, err = parseBound(raw, true); err != nil {
			return nil, &ValidationError{Field: "end", Reason: err.Error()}
		}
		q.Set(field+"_to", to.Format(time.RFC3339))
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, &ValidationError{Field: "end", Reason: "end is before start"}
	}

	return q, nil
}

// parseBound parses a start or end value. A date-only start covers the
// whole day from 00:00:00, a date-only end up to 23:59:59.
func parseBound(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(dateOnlyLayout, raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date or timestamp", raw)
}
