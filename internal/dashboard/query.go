package dashboard

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockDash/internal/model"
)

// ErrInvalidQuery marks user input problems. They are reported in the view,
// never sent to the provider.
var ErrInvalidQuery = errors.New("invalid query")

type queryError struct{ msg string }

func (e *queryError) Error() string { return e.msg }
func (e *queryError) Unwrap() error { return ErrInvalidQuery }

func invalid(msg string) error { return &queryError{msg: msg} }

// Defaults fill in query fields the user left blank.
type Defaults struct {
	Ticker     string
	Start      time.Time
	Interval   string
	Projection model.ProjectionMode
	Seed       int64
	Horizon    int
	Tail       int
}

// Validate normalizes q in place and checks it can be sent to a provider.
func Validate(q *model.Query) error {
	q.Ticker = strings.ToUpper(strings.TrimSpace(q.Ticker))
	if q.Ticker == "" {
		return invalid("Please enter a ticker symbol.")
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return invalid("Start and end dates are required.")
	}
	if !q.Start.Before(q.End) {
		return invalid("Error: End date must fall after start date.")
	}
	if q.Interval == "" {
		q.Interval = "1d"
	}
	if !model.ValidInterval(q.Interval) {
		return invalid("Unsupported interval " + strconv.Quote(q.Interval) + ".")
	}
	switch q.Projection {
	case "":
		q.Projection = model.ProjectionNone
	case model.ProjectionNone, model.ProjectionModel, model.ProjectionRandom:
	default:
		return invalid("Unknown projection mode " + strconv.Quote(string(q.Projection)) + ".")
	}
	if q.Horizon < 0 {
		return invalid("Horizon must be positive.")
	}
	return nil
}

// ParseQuery reads a query from form values, applying defaults to blank fields.
// A blank end date means the day after now, so today's session is included.
func ParseQuery(v url.Values, d Defaults, now time.Time) (model.Query, error) {
	q := model.Query{
		Ticker:     v.Get("ticker"),
		Interval:   v.Get("interval"),
		Column:     strings.TrimSpace(v.Get("column")),
		Projection: model.ProjectionMode(v.Get("projection")),
		Seed:       d.Seed,
		Horizon:    d.Horizon,
		Tail:       d.Tail,
	}
	if _, ok := v["ticker"]; !ok {
		q.Ticker = d.Ticker
	}
	if q.Interval == "" {
		q.Interval = d.Interval
	}
	if q.Projection == "" {
		q.Projection = d.Projection
	}

	var err error
	if q.Start, err = parseDate(v.Get("start"), d.Start); err != nil {
		return q, invalid("Start date must be YYYY-MM-DD.")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if q.End, err = parseDate(v.Get("end"), today.AddDate(0, 0, 1)); err != nil {
		return q, invalid("End date must be YYYY-MM-DD.")
	}

	if s := v.Get("seed"); s != "" {
		if q.Seed, err = strconv.ParseInt(s, 10, 64); err != nil {
			return q, invalid("Seed must be an integer.")
		}
	}
	if s := v.Get("horizon"); s != "" {
		if q.Horizon, err = strconv.Atoi(s); err != nil || q.Horizon <= 0 {
			return q, invalid("Horizon must be a positive integer.")
		}
	}
	if s := v.Get("tail"); s != "" {
		if q.Tail, err = strconv.Atoi(s); err != nil || q.Tail < 0 {
			return q, invalid("Tail must be a non-negative integer.")
		}
	}
	return q, nil
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	return time.Parse(model.DateLayout, s)
}
