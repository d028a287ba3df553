package services

import (
	"context"
	"encoding/json"
	"fmt"
)

const flightSource = "variflight-mcp"

// FlightClient issues single-shot itinerary searches against the flight
// provider. Unlike rail, there is no local retry: the orchestrator surfaces
// the one failure as-is.
type FlightClient struct {
	mcp      *MCPClient
	resolver *LocationResolver
}

func NewFlightClient(mcp *MCPClient, resolver *LocationResolver) *FlightClient {
	return &FlightClient{mcp: mcp, resolver: resolver}
}

// QueryFlights resolves both endpoints to IATA city codes and runs one
// itinerary search. Unresolvable input fails before any network call.
func (c *FlightClient) QueryFlights(ctx context.Context, fromCity, toCity, date string) ProviderResult {
	depCode, ok := c.resolver.ToIATACityCode(fromCity)
	if !ok {
		return Failure(flightSource, &ProviderError{
			Kind:    ErrInvalidInput,
			Message: fmt.Sprintf("无法解析出发城市IATA码：%s", fromCity),
		})
	}
	arrCode, ok := c.resolver.ToIATACityCode(toCity)
	if !ok {
		return Failure(flightSource, &ProviderError{
			Kind:    ErrInvalidInput,
			Message: fmt.Sprintf("无法解析目的地IATA码：%s", toCity),
		})
	}

	query := FlightQuery{DepCityCode: depCode, ArrCityCode: arrCode, DepDate: date}

	raw, perr := c.mcp.CallTool(ctx, "searchFlightItineraries", map[string]any{
		"depCityCode": depCode,
		"arrCityCode": arrCode,
		"depDate":     date,
	})
	if perr != nil {
		res := Failure(flightSource, perr)
		res.Flight = &FlightData{Query: query}
		return res
	}

	rawText := flightRawText(raw)
	return ProviderResult{
		OK:     true,
		Source: flightSource,
		Flight: &FlightData{
			RawText: rawText,
			Summary: ParseFlightSummary(rawText),
			Query:   query,
		},
	}
}

// flightRawText digs the human-readable summary text out of the tool
// payload, which arrives either as a bare string or as {"data": "..."}.
func flightRawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var wrapped struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != "" {
		return wrapped.Data
	}
	return string(raw)
}
