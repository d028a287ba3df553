package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
)

// Transport modes a leg may request.
const (
	ModeRail   = "rail"
	ModeFlight = "flight"
)

// maxSummaryItems caps how many raw items per provider reach the
// summarizer, bounding the payload it has to digest.
const maxSummaryItems = 10

// RailQuerier and FlightQuerier are the provider seams the orchestrator
// fans out over; production code plugs in RailClient and FlightClient.
type RailQuerier interface {
	QueryTrains(ctx context.Context, fromCity, toCity, date string) ProviderResult
}

type FlightQuerier interface {
	QueryFlights(ctx context.Context, fromCity, toCity, date string) ProviderResult
}

// LegQuery describes one directional query. Immutable once constructed.
type LegQuery struct {
	Departure   string   `json:"departure"`
	Destination string   `json:"destination"`
	Date        string   `json:"date"`
	Modes       []string `json:"modes,omitempty"` // defaults to rail+flight
}

func (q LegQuery) wantsMode(mode string) bool {
	if len(q.Modes) == 0 {
		return true
	}
	for _, m := range q.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// LegDebug carries optional per-provider diagnostics. Never required for
// correctness.
type LegDebug struct {
	RailOK       bool         `json:"rail_ok"`
	FlightOK     bool         `json:"flight_ok"`
	RailError    string       `json:"rail_error,omitempty"`
	FlightError  string       `json:"flight_error,omitempty"`
	RailRawLen   int          `json:"rail_raw_len"`
	FlightRawLen int          `json:"flight_raw_len"`
	FlightQuery  *FlightQuery `json:"flight_query,omitempty"`
}

// LegOutcome is the completed picture for one leg: both provider results
// and the summary text. Read-only once built.
type LegOutcome struct {
	Query       LegQuery        `json:"query"`
	Rail        *ProviderResult `json:"rail,omitempty"`
	Flight      *ProviderResult `json:"flight,omitempty"`
	SummaryText string          `json:"summary_text"`
	Debug       *LegDebug       `json:"debug,omitempty"`
}

// Orchestrator fans the rail and flight queries for one leg out
// concurrently, joins both, applies the data-sufficiency gate, and only
// then lets the summarizer near the data.
type Orchestrator struct {
	rail       RailQuerier
	flight     FlightQuerier
	summarizer Summarizer
}

func NewOrchestrator(rail RailQuerier, flight FlightQuerier, summarizer Summarizer) *Orchestrator {
	return &Orchestrator{rail: rail, flight: flight, summarizer: summarizer}
}

// RunLeg executes one leg. Both providers run concurrently and are always
// joined before anything downstream happens; one provider's failure never
// touches the other's result. A cancelled context discards partial results
// and returns the context error.
func (o *Orchestrator) RunLeg(ctx context.Context, q LegQuery, profile Profile) (LegOutcome, error) {
	var (
		wg        sync.WaitGroup
		railRes   *ProviderResult
		flightRes *ProviderResult
	)

	if q.wantsMode(ModeRail) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := o.runGuarded(railSource, func() ProviderResult {
				return o.rail.QueryTrains(ctx, q.Departure, q.Destination, q.Date)
			})
			railRes = &res
		}()
	}

	if q.wantsMode(ModeFlight) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := o.runGuarded(flightSource, func() ProviderResult {
				return o.flight.QueryFlights(ctx, q.Departure, q.Destination, q.Date)
			})
			flightRes = &res
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return LegOutcome{}, err
	}

	outcome := LegOutcome{
		Query:  q,
		Rail:   railRes,
		Flight: flightRes,
		Debug:  buildDebug(railRes, flightRes),
	}

	outcome.SummaryText = o.summarizeLeg(ctx, q, profile, railRes, flightRes)
	return outcome, nil
}

// runGuarded converts a provider-goroutine panic into a normal failure
// result so a bug in one client can never take down the sibling query.
func (o *Orchestrator) runGuarded(source string, fn func() ProviderResult) (res ProviderResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ provider %s panicked: %v", source, r)
			res = Failure(source, &ProviderError{Kind: ErrUnknown, Message: fmt.Sprintf("panic: %v", r)})
		}
	}()
	return fn()
}

func buildDebug(rail, flight *ProviderResult) *LegDebug {
	d := &LegDebug{}
	if rail != nil {
		d.RailRawLen = rail.ItemCount()
		d.RailOK = d.RailRawLen > 0
		d.RailError = rail.ErrorDetail()
	}
	if flight != nil {
		d.FlightRawLen = flight.ItemCount()
		d.FlightOK = d.FlightRawLen > 0
		d.FlightError = flight.ErrorDetail()
		if flight.Flight != nil {
			fq := flight.Flight.Query
			d.FlightQuery = &fq
		}
	}
	return d
}

// summarizeLeg applies the sufficiency gate: no data anywhere means the
// summarizer is skipped entirely and a deterministic template goes out
// instead. A failed summarizer call yields a literal notice, never an
// escaped error.
func (o *Orchestrator) summarizeLeg(ctx context.Context, q LegQuery, profile Profile, rail, flight *ProviderResult) string {
	railHas := rail != nil && rail.HasData()
	flightHas := flight != nil && flight.HasData()

	if !railHas && !flightHas {
		return noDataSummary(q, profile, rail, flight)
	}

	in := SummaryInput{
		Departure:   q.Departure,
		Destination: q.Destination,
		Date:        q.Date,
		Profile:     profile.JSON(),
		Rail:        compactResult(rail),
		Flight:      compactResult(flight),
	}

	text, err := o.summarizer.Summarize(ctx, in)
	if err != nil {
		log.Printf("⚠️  summarization failed for %s → %s: %v", q.Departure, q.Destination, err)
		return fmt.Sprintf("分析失败：%v", err)
	}
	return text
}

// compactResult copies a result with its raw item list capped at
// maxSummaryItems. The original result is never mutated.
func compactResult(r *ProviderResult) *ProviderResult {
	if r == nil {
		return nil
	}
	c := *r
	if len(c.Trains) > maxSummaryItems {
		c.Trains = c.Trains[:maxSummaryItems]
	}
	return &c
}

// noDataSummary is the fixed template used when neither provider produced
// data: provider statuses, concrete next steps, and a return-leg follow-up
// when the profile carries a valid return date.
func noDataSummary(q LegQuery, profile Profile, rail, flight *ProviderResult) string {
	parts := []string{
		"【数据不足】暂时没有拿到可用的火车/航班列表，因此无法基于真实数据做比价与推荐。",
		fmt.Sprintf("出发地：%s；目的地：%s；出发日期：%s", q.Departure, q.Destination, q.Date),
	}

	if rail != nil && rail.Err != nil {
		parts = append(parts, fmt.Sprintf("火车查询：失败（%s）", rail.Err.Error()))
	} else {
		parts = append(parts, "火车查询：无返回数据（可能是接口暂时不可用或被限流）")
	}

	if flight != nil && flight.Err != nil {
		parts = append(parts, fmt.Sprintf("航班查询：失败/无方案（%s）", flight.Err.Error()))
	} else {
		parts = append(parts, "航班查询：无返回数据")
	}

	parts = append(parts,
		"【下一步建议】",
		"1) 我可以立刻为你重试一次查询（火车 502/超时通常是暂时性的）。",
		"2) 如果航班持续无数据，可能需要你确认出发/到达城市是否匹配航班数据源，或换一天出发日期再试。",
		"3) 若你希望我只查火车或只查航班，也可以告诉我。",
	)

	if IsValidDate(profile.ReturnDate) {
		parts = append(parts, fmt.Sprintf("补充：你还提供了返程日期 %s，需要我把回程交通也一起比价吗？", profile.ReturnDate))
	}

	return strings.Join(parts, "\n")
}
