package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// Trip types accepted by the planner.
const (
	TripOutbound  = "outbound"
	TripInbound   = "inbound"
	TripRoundtrip = "roundtrip"
)

var dateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsValidDate reports whether s is a syntactically valid YYYY-MM-DD date.
// Anything else is treated as absent, never guessed at.
func IsValidDate(s string) bool {
	return dateRE.MatchString(strings.TrimSpace(s))
}

// Profile is the caller-supplied trip context.
type Profile struct {
	DepartCity    string  `json:"depart_city"`
	Destination   string  `json:"destination"`
	DepartureDate string  `json:"departure_date"`
	ReturnDate    string  `json:"return_date,omitempty"`
	People        int     `json:"people,omitempty"`
	Days          int     `json:"days,omitempty"`
	BudgetCNY     float64 `json:"budget_cny,omitempty"`
	Preferences   string  `json:"preferences,omitempty"`
}

// JSON renders the profile for the summarizer context.
func (p Profile) JSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ComparisonReport is the caller-facing result of a planning run.
type ComparisonReport struct {
	OK         bool        `json:"ok"`
	Text       string      `json:"text,omitempty"`
	TripType   string      `json:"trip_type"`
	Error      string      `json:"error,omitempty"`
	Outbound   *LegOutcome `json:"outbound,omitempty"`
	Inbound    *LegOutcome `json:"inbound,omitempty"`
	HasInbound bool        `json:"has_inbound"`
}

// LegRunner is the orchestration seam; production code plugs in
// *Orchestrator.
type LegRunner interface {
	RunLeg(ctx context.Context, q LegQuery, profile Profile) (LegOutcome, error)
}

// Planner validates a profile for the requested trip type, drives the
// orchestrator per leg, and merges leg texts into one report.
type Planner struct {
	orch LegRunner
}

func NewPlanner(orch LegRunner) *Planner {
	return &Planner{orch: orch}
}

// Plan runs the comparison for one trip. It never panics outward: anything
// unexpected is caught here and converted into a structured failure report.
func (p *Planner) Plan(ctx context.Context, profile Profile, tripType string) (report *ComparisonReport) {
	tripType = strings.ToLower(strings.TrimSpace(tripType))

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ planner panicked: %v", r)
			report = &ComparisonReport{
				OK:       false,
				TripType: tripType,
				Error:    fmt.Sprintf("交通比价工具执行失败：%v", r),
			}
		}
	}()

	switch tripType {
	case TripOutbound, TripInbound, TripRoundtrip:
	default:
		return &ComparisonReport{
			OK:       false,
			TripType: tripType,
			Error:    fmt.Sprintf("trip_type 不合法：%s（应为 outbound / inbound / roundtrip）", tripType),
		}
	}

	profile.DepartCity = strings.TrimSpace(profile.DepartCity)
	profile.Destination = strings.TrimSpace(profile.Destination)
	profile.DepartureDate = strings.TrimSpace(profile.DepartureDate)
	profile.ReturnDate = strings.TrimSpace(profile.ReturnDate)

	if errMsg := validateProfile(profile, tripType); errMsg != "" {
		return &ComparisonReport{OK: false, TripType: tripType, Error: errMsg}
	}

	var (
		outbound *LegOutcome
		inbound  *LegOutcome
		notes    []string
	)

	runLeg := func(q LegQuery) (*LegOutcome, error) {
		out, err := p.orch.RunLeg(ctx, q, profile)
		if err != nil {
			return nil, err
		}
		return &out, nil
	}

	switch tripType {
	case TripOutbound:
		leg, err := runLeg(LegQuery{Departure: profile.DepartCity, Destination: profile.Destination, Date: profile.DepartureDate})
		if err != nil {
			return interruptedReport(tripType, err)
		}
		outbound = leg

	case TripInbound:
		leg, err := runLeg(LegQuery{Departure: profile.Destination, Destination: profile.DepartCity, Date: profile.ReturnDate})
		if err != nil {
			return interruptedReport(tripType, err)
		}
		outbound = leg

	case TripRoundtrip:
		leg, err := runLeg(LegQuery{Departure: profile.DepartCity, Destination: profile.Destination, Date: profile.DepartureDate})
		if err != nil {
			return interruptedReport(tripType, err)
		}
		outbound = leg

		// The return leg starts only after the outbound fully resolves,
		// and an unusable return date degrades to outbound-only rather
		// than failing the whole request.
		if IsValidDate(profile.ReturnDate) {
			ret, err := runLeg(LegQuery{Departure: profile.Destination, Destination: profile.DepartCity, Date: profile.ReturnDate})
			if err != nil {
				return interruptedReport(tripType, err)
			}
			inbound = ret
		} else if profile.ReturnDate != "" {
			notes = append(notes, "我看到你给了返程日期，但它目前不太像一个明确日期，所以这次先只查了去程；如果你愿意，告诉我返程那天我也可以一起比一下。")
		} else {
			notes = append(notes, "如果你也想把返程一起对比，把返程那天告诉我，我可以把回程火车/航班也一起查出来。")
		}
	}

	text := MergeLegs(*outbound, inbound)
	if len(notes) > 0 {
		text = text + "\n\n" + strings.Join(notes, "\n")
	}

	return &ComparisonReport{
		OK:         true,
		Text:       text,
		TripType:   tripType,
		Outbound:   outbound,
		Inbound:    inbound,
		HasInbound: inbound != nil,
	}
}

func interruptedReport(tripType string, err error) *ComparisonReport {
	return &ComparisonReport{
		OK:       false,
		TripType: tripType,
		Error:    fmt.Sprintf("交通比价执行中断：%v", err),
	}
}

// validateProfile collects every missing or malformed field for the trip
// type into one aggregated message so the caller can fix all of them at
// once. Empty string means valid.
func validateProfile(p Profile, tripType string) string {
	var missing []string

	switch tripType {
	case TripInbound:
		if p.DepartCity == "" {
			missing = append(missing, "出发城市（用于返程到达）")
		}
		if p.Destination == "" {
			missing = append(missing, "目的地（用于返程出发）")
		}
		if p.ReturnDate == "" {
			missing = append(missing, "返程日期")
		} else if !IsValidDate(p.ReturnDate) {
			missing = append(missing, "返程日期不合法")
		}

	default: // outbound and roundtrip share the outbound requirements
		if p.DepartCity == "" {
			missing = append(missing, "出发城市")
		}
		if p.Destination == "" {
			missing = append(missing, "目的地")
		}
		if p.DepartureDate == "" {
			missing = append(missing, "出发日期")
		} else if !IsValidDate(p.DepartureDate) {
			missing = append(missing, "出发日期不合法")
		}
	}

	if len(missing) == 0 {
		return ""
	}
	return "交通比价缺少/不合法信息：" + strings.Join(missing, "、") + "。"
}

// MergeLegs concatenates leg summaries into one labeled report. It performs
// no synthesis of its own: leg texts are used verbatim, outbound always
// first, inbound appended after a blank line when present.
func MergeLegs(outbound LegOutcome, inbound *LegOutcome) string {
	parts := []string{
		fmt.Sprintf("【去程】%s → %s（%s）", outbound.Query.Departure, outbound.Query.Destination, outbound.Query.Date),
		legText(outbound.SummaryText, "（去程暂无可用分析文本）"),
	}

	if inbound != nil {
		parts = append(parts,
			"",
			fmt.Sprintf("【返程】%s → %s（%s）", inbound.Query.Departure, inbound.Query.Destination, inbound.Query.Date),
			legText(inbound.SummaryText, "（返程暂无可用分析文本）"),
		)
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func legText(text, placeholder string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return placeholder
	}
	return t
}
