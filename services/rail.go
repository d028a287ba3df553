package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

const railSource = "12306-mcp"

// Fallback markers recorded on rail results so callers can see which search
// strategy produced the ticket list.
const (
	FallbackRepresentative     = "representative_station"
	FallbackCityStations       = "tried_top5_city_stations"
	FallbackCityStationsEmpty  = "tried_top5_city_stations_but_empty"
	FallbackCityStationsFailed = "failed_to_get_city_stations"
)

const (
	railRetries     = 3
	railBackoffUnit = 400 * time.Millisecond
	maxCityStations = 5
)

// RailClient talks to the rail ticket provider and layers the bounded-retry
// and multi-stage station-fallback search on top of the raw tool calls.
type RailClient struct {
	mcp *MCPClient

	// Representative station codes are provider-defined but stable within a
	// process lifetime, so they are cached once resolved. Values are
	// immutable; concurrent last-writer-wins stores are harmless.
	mu        sync.RWMutex
	codeCache map[string]string
}

func NewRailClient(mcp *MCPClient) *RailClient {
	return &RailClient{mcp: mcp, codeCache: make(map[string]string)}
}

// ─── Station code resolution ──────────────────────────────────────────────────

type stationEntry struct {
	City             string `json:"city"`
	StationCode      string `json:"station_code"`
	StationCodeAlt   string `json:"stationCode"`
	Code             string `json:"code"`
	Telecode         string `json:"telecode"`
	StationTelecode  string `json:"station_telecode"`
	StationTelecode2 string `json:"stationTelecode"`
}

func (e stationEntry) pick() string {
	for _, c := range []string{e.StationCode, e.StationCodeAlt, e.Code, e.Telecode, e.StationTelecode, e.StationTelecode2} {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}

// pickStationCode normalizes the station shapes providers return: a bare
// code string or an object with one of several code keys.
func pickStationCode(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var e stationEntry
	if err := json.Unmarshal(raw, &e); err == nil {
		return e.pick()
	}
	return ""
}

// ResolveStationCodes maps city names to their representative station codes
// via the provider's own lookup. Cached hits skip the remote call entirely.
func (c *RailClient) ResolveStationCodes(ctx context.Context, cities []string) (map[string]string, *ProviderError) {
	out := make(map[string]string, len(cities))
	var missing []string

	c.mu.RLock()
	for _, city := range cities {
		if code, ok := c.codeCache[city]; ok {
			out[city] = code
		} else {
			missing = append(missing, city)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}

	raw, perr := c.mcp.CallTool(ctx, "get-station-code-of-citys", map[string]any{
		"citys": strings.Join(missing, "|"),
	})
	if perr != nil {
		return nil, perr
	}

	var payload struct {
		Citys []json.RawMessage `json:"citys"`
	}
	resolved := map[string]string{}
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Citys) > 0 {
		for _, entry := range payload.Citys {
			var e stationEntry
			if err := json.Unmarshal(entry, &e); err != nil {
				continue
			}
			if e.City != "" && e.pick() != "" {
				resolved[e.City] = e.pick()
			}
		}
	} else {
		// Flat shape: {"北京": {...}, "上海": "BJP"}.
		var flat map[string]json.RawMessage
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, &ProviderError{Kind: ErrParse, Message: "unexpected station code payload", RawBody: truncate(string(raw), 500)}
		}
		for city, entry := range flat {
			if code := pickStationCode(entry); code != "" {
				resolved[city] = code
			}
		}
	}

	c.mu.Lock()
	for city, code := range resolved {
		c.codeCache[city] = code
		out[city] = code
	}
	c.mu.Unlock()

	for _, city := range cities {
		if out[city] == "" {
			return nil, &ProviderError{Kind: ErrParse, Message: "no representative station code for " + city}
		}
	}
	return out, nil
}

// ListStationsInCity returns up to maxCityStations alternate station codes
// for the fallback cross-product probe.
func (c *RailClient) ListStationsInCity(ctx context.Context, city string) ([]string, *ProviderError) {
	raw, perr := c.mcp.CallTool(ctx, "get-stations-code-in-city", map[string]any{"city": city})
	if perr != nil {
		return nil, perr
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &ProviderError{Kind: ErrParse, Message: "unexpected city station payload", RawBody: truncate(string(raw), 500)}
	}

	codes := make([]string, 0, maxCityStations)
	for _, entry := range entries {
		if code := pickStationCode(entry); code != "" {
			codes = append(codes, code)
		}
		if len(codes) == maxCityStations {
			break
		}
	}
	return codes, nil
}

// ─── Ticket queries ───────────────────────────────────────────────────────────

// ListTickets runs one ticket lookup between two station codes. A parsed
// empty list is a Success with zero items, not a failure.
func (c *RailClient) ListTickets(ctx context.Context, fromCode, toCode, date string) ProviderResult {
	raw, perr := c.mcp.CallTool(ctx, "get-tickets", map[string]any{
		"date":        date,
		"fromStation": fromCode,
		"toStation":   toCode,
		"format":      "json",
	})
	if perr != nil {
		return Failure(railSource, perr)
	}

	trains, ok := decodeTrains(raw)
	if !ok {
		return Failure(railSource, &ProviderError{Kind: ErrParse, Message: "unexpected ticket payload", RawBody: truncate(string(raw), 500)})
	}

	summary := SummarizeTrains(trains)
	return ProviderResult{OK: true, Source: railSource, Trains: trains, TrainSummary: &summary}
}

// decodeTrains accepts either a bare list or {"data": [...]}.
func decodeTrains(raw json.RawMessage) ([]Train, bool) {
	var trains []Train
	if err := json.Unmarshal(raw, &trains); err == nil {
		return trains, true
	}
	var wrapped struct {
		Data []Train `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Data, true
	}
	// A string payload ("查询成功" etc. with no list) counts as empty.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return nil, true
	}
	return nil, false
}

// QueryTrains is the full rail query: up to railRetries attempts with
// linear backoff around the staged search. Only the last error survives
// when every attempt fails.
func (c *RailClient) QueryTrains(ctx context.Context, fromCity, toCity, date string) ProviderResult {
	var last ProviderResult

	for attempt := 1; attempt <= railRetries; attempt++ {
		res := c.queryTrainsOnce(ctx, fromCity, toCity, date)
		if res.OK {
			return res
		}
		last = res

		if attempt == railRetries {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * railBackoffUnit):
		case <-ctx.Done():
			return Failure(railSource, &ProviderError{Kind: ErrNetwork, Message: ctx.Err().Error()})
		}
	}

	if last.Err == nil {
		last = Failure(railSource, &ProviderError{Kind: ErrUnknown, Message: "train query failed"})
	}
	return last
}

// queryTrainsOnce performs one pass of the staged search: representative
// stations first, then the top-5 city-station cross product when the first
// stage legitimately returns nothing.
func (c *RailClient) queryTrainsOnce(ctx context.Context, fromCity, toCity, date string) ProviderResult {
	codes, perr := c.ResolveStationCodes(ctx, []string{fromCity, toCity})
	if perr != nil {
		return Failure(railSource, perr)
	}

	first := c.ListTickets(ctx, codes[fromCity], codes[toCity], date)
	if !first.OK {
		return first
	}
	if len(first.Trains) > 0 {
		first.Fallback = FallbackRepresentative
		return first
	}

	// Stage 2: the representative pairing answered with an empty list, so
	// probe alternate stations within both cities.
	depCodes, depErr := c.ListStationsInCity(ctx, fromCity)
	arrCodes, arrErr := c.ListStationsInCity(ctx, toCity)
	if depErr != nil || arrErr != nil {
		first.Fallback = FallbackCityStationsFailed
		return first
	}

	for _, fc := range depCodes {
		for _, tc := range arrCodes {
			r := c.ListTickets(ctx, fc, tc, date)
			if r.OK && len(r.Trains) > 0 {
				r.Fallback = FallbackCityStations
				return r
			}
			if ctx.Err() != nil {
				return Failure(railSource, &ProviderError{Kind: ErrNetwork, Message: ctx.Err().Error()})
			}
		}
	}

	first.Fallback = FallbackCityStationsEmpty
	return first
}
