package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPage is used when the client omits the page parameter.
	DefaultPage = 1
	// DefaultLimit defines the fallback number of items returned when the client omits limit.
	DefaultLimit = 50
	// DefaultMaxLimit caps the supported limit to prevent unbounded queries.
	DefaultMaxLimit = 100
)

// DateRange enumerates the supported reporting windows on admin endpoints.
type DateRange string

const (
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
	RangeYear  DateRange = "year"
)

var (
	ErrInvalidPage      = errors.New("pagination: invalid page")
	ErrInvalidLimit     = errors.New("pagination: invalid limit")
	ErrInvalidDateRange = errors.New("pagination: invalid dateRange")
)

// Params bundles page/limit values extracted from a request.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the number of items to skip for the current page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Options control how Parse behaves for a given handler layer.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// FromRequest parses the supported query parameters from the supplied request.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse consumes the provided query values and returns the normalised Params representation.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	defaultLimit := opts.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	page := DefaultPage
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: must be an integer", ErrInvalidPage)
		}
		if parsed <= 0 {
			return Params{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidPage)
		}
		page = parsed
	}

	limit := defaultLimit
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: must be an integer", ErrInvalidLimit)
		}
		if parsed <= 0 {
			return Params{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidLimit)
		}
		if parsed > maxLimit {
			parsed = maxLimit
		}
		limit = parsed
	}

	return Params{Page: page, Limit: limit}, nil
}

// ParseDateRange validates the dateRange query parameter, defaulting to the monthly window.
func ParseDateRange(values url.Values) (DateRange, error) {
	raw := strings.ToLower(strings.TrimSpace(values.Get("dateRange")))
	if raw == "" {
		return RangeMonth, nil
	}
	switch DateRange(raw) {
	case RangeToday, RangeWeek, RangeMonth, RangeYear:
		return DateRange(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDateRange, raw)
	}
}

// Must ensures Params are always initialised with sensible defaults before use.
func Must(params Params) Params {
	if params.Page <= 0 {
		params.Page = DefaultPage
	}
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	return params
}
