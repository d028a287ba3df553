package services

import (
	"fmt"
	"strconv"
	"strings"
)

// ─── Error taxonomy ───────────────────────────────────────────────────────────

type ErrorKind string

const (
	ErrInvalidInput ErrorKind = "invalid_input"
	ErrNetwork      ErrorKind = "network"
	ErrHTTP         ErrorKind = "http_error"
	ErrParse        ErrorKind = "parse_error"
	ErrUnknown      ErrorKind = "unknown"
)

// ProviderError is the common shape every provider failure is normalized
// into before it crosses a component boundary.
type ProviderError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	RawBody    string    `json:"raw_body,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ─── Rail payload ─────────────────────────────────────────────────────────────

// SeatCount holds a 12306-style seat inventory token, which may arrive as a
// number, a numeric string, "有"/"无", or "--".
type SeatCount string

func (s *SeatCount) UnmarshalJSON(b []byte) error {
	t := strings.TrimSpace(string(b))
	t = strings.Trim(t, `"`)
	if t == "null" {
		t = ""
	}
	*s = SeatCount(t)
	return nil
}

// Available reports whether the token means at least one seat is left.
func (s SeatCount) Available() bool {
	switch strings.TrimSpace(string(s)) {
	case "", "无", "--", "0":
		return false
	case "有":
		return true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	return err == nil && v > 0
}

// FlexFloat decodes a JSON number or a numeric string; anything else is 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	t := strings.TrimSpace(string(b))
	t = strings.Trim(t, `"`)
	if t == "" || t == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

type TrainPrice struct {
	SeatName string    `json:"seat_name"`
	Price    FlexFloat `json:"price"`
	Num      SeatCount `json:"num"`
}

type Train struct {
	TrainNo     string       `json:"train_no"`
	FromStation string       `json:"from_station"`
	ToStation   string       `json:"to_station"`
	StartTime   string       `json:"start_time"`
	ArriveTime  string       `json:"arrive_time"`
	Duration    string       `json:"duration"`
	Prices      []TrainPrice `json:"prices"`
}

// TrainSummary is computed locally from a ticket list so downstream code
// never has to re-scan raw prices.
type TrainSummary struct {
	Count               int      `json:"count"`
	MinPrice            *float64 `json:"min_price"`
	AvailableTrainCount int      `json:"available_train_count"`
}

// SummarizeTrains scans ticket prices for the cheapest seat that is actually
// available and counts trains with any seat left.
func SummarizeTrains(trains []Train) TrainSummary {
	var minPrice *float64
	available := 0

	for _, t := range trains {
		hasSeat := false
		for _, p := range t.Prices {
			if !p.Num.Available() {
				continue
			}
			hasSeat = true
			if p.Price <= 0 {
				continue
			}
			pv := float64(p.Price)
			if minPrice == nil || pv < *minPrice {
				minPrice = &pv
			}
		}
		if hasSeat {
			available++
		}
	}

	return TrainSummary{Count: len(trains), MinPrice: minPrice, AvailableTrainCount: available}
}

// ─── Flight payload ───────────────────────────────────────────────────────────

// FlightOption is one itinerary pattern-matched out of the provider's
// free-text summary. Fields stay zero/empty when the text doesn't match.
type FlightOption struct {
	FlightNo        string `json:"flight_no"`
	DepTime         string `json:"dep_time,omitempty"`
	ArrTime         string `json:"arr_time,omitempty"`
	DurationText    string `json:"duration_text,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
	Price           *int   `json:"price,omitempty"`
}

// FlightSummary is the best-effort structured view of the provider text.
// Nil fields mean the corresponding pattern did not match.
type FlightSummary struct {
	Count              *int          `json:"count"`
	MinPrice           *int          `json:"min_price"`
	MinDurationText    string        `json:"min_duration_text,omitempty"`
	MinDurationMinutes *int          `json:"min_duration_minutes,omitempty"`
	Cheapest           *FlightOption `json:"cheapest,omitempty"`
	Fastest            *FlightOption `json:"fastest,omitempty"`
}

type FlightQuery struct {
	DepCityCode string `json:"dep_city_code"`
	ArrCityCode string `json:"arr_city_code"`
	DepDate     string `json:"dep_date"`
}

type FlightData struct {
	RawText string        `json:"raw_text"`
	Summary FlightSummary `json:"summary"`
	Query   FlightQuery   `json:"query"`
}

// ─── ProviderResult ───────────────────────────────────────────────────────────

// ProviderResult is exactly one of two variants: a Failure (OK=false, Err
// set, no payload) or a Success (OK=true, payload set, possibly with zero
// items — a legitimate empty answer, distinct from a failure).
type ProviderResult struct {
	OK     bool           `json:"ok"`
	Source string         `json:"source"`
	Err    *ProviderError `json:"error,omitempty"`

	Trains       []Train       `json:"trains,omitempty"`
	TrainSummary *TrainSummary `json:"train_summary,omitempty"`
	Flight       *FlightData   `json:"flight,omitempty"`

	// Fallback marks which rail search strategy produced (or last tried to
	// produce) this result.
	Fallback string `json:"fallback,omitempty"`
}

// Failure builds the failure variant.
func Failure(source string, err *ProviderError) ProviderResult {
	if err == nil {
		err = &ProviderError{Kind: ErrUnknown, Message: "unspecified provider failure"}
	}
	return ProviderResult{OK: false, Source: source, Err: err}
}

// ItemCount reports how many real data items this result carries. Failures
// count as zero.
func (r ProviderResult) ItemCount() int {
	if !r.OK {
		return 0
	}
	if r.Flight != nil {
		if r.Flight.Summary.Count != nil {
			return *r.Flight.Summary.Count
		}
		n := 0
		if r.Flight.Summary.Cheapest != nil {
			n++
		}
		if r.Flight.Summary.Fastest != nil {
			n++
		}
		return n
	}
	return len(r.Trains)
}

// HasData reports whether the sufficiency gate should treat this result as
// real evidence.
func (r ProviderResult) HasData() bool {
	return r.ItemCount() > 0
}

// ErrorDetail renders the attached error for debug output; empty for
// successes.
func (r ProviderResult) ErrorDetail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
