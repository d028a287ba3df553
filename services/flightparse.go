package services

import (
	"regexp"
	"strconv"
	"strings"
)

// The flight provider answers with a Chinese prose summary rather than a
// structured list. These patterns lift the headline numbers and the
// cheapest/fastest itinerary blocks out of that text. Everything here is
// best-effort: a non-matching pattern leaves the field nil.

var (
	reFlightCount   = regexp.MustCompile(`查询到了\s*(\d+)\s*条`)
	reMinPrice      = regexp.MustCompile(`最低价[:：]\s*(\d+)\s*元`)
	reMinDuration   = regexp.MustCompile(`最短耗时[:：]\s*([0-9hHmM ]+)`)
	reFlightNo      = regexp.MustCompile(`航班号[:：]\s*([A-Z0-9]+)`)
	reDepTime       = regexp.MustCompile(`起飞时间[:：]\s*([0-9:\- ]{10,19})`)
	reArrTime       = regexp.MustCompile(`到达时间[:：]\s*([0-9:\- ]{10,19})`)
	reBlockDuration = regexp.MustCompile(`耗时[:：]\s*([0-9hHmM ]+)`)
	reBlockPrice    = regexp.MustCompile(`价格[:：]\s*(\d+)\s*元`)
	reDuration      = regexp.MustCompile(`(?i)(?:(\d+)\s*h)?\s*(?:(\d+)\s*m)?`)
)

// durationToMinutes converts "5h30m"-style text to minutes; nil when the
// text carries no hours or minutes at all.
func durationToMinutes(s string) *int {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return nil
	}
	m := reDuration.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	if h == 0 && mins == 0 {
		return nil
	}
	total := h*60 + mins
	return &total
}

// parseFlightBlock extracts one itinerary block following the given title
// marker. The block window mirrors the provider's fixed layout.
func parseFlightBlock(text, title string) *FlightOption {
	idx := strings.Index(text, title)
	if idx < 0 {
		return nil
	}
	end := idx + 450
	if end > len(text) {
		end = len(text)
	}
	seg := text[idx:end]

	opt := &FlightOption{}
	if m := reFlightNo.FindStringSubmatch(seg); m != nil {
		opt.FlightNo = m[1]
	}
	if opt.FlightNo == "" {
		return nil
	}
	if m := reDepTime.FindStringSubmatch(seg); m != nil {
		opt.DepTime = strings.TrimSpace(m[1])
	}
	if m := reArrTime.FindStringSubmatch(seg); m != nil {
		opt.ArrTime = strings.TrimSpace(m[1])
	}
	if m := reBlockDuration.FindStringSubmatch(seg); m != nil {
		opt.DurationText = strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "")
		opt.DurationMinutes = durationToMinutes(opt.DurationText)
	}
	if m := reBlockPrice.FindStringSubmatch(seg); m != nil {
		if p, err := strconv.Atoi(m[1]); err == nil {
			opt.Price = &p
		}
	}
	return opt
}

// ParseFlightSummary pattern-matches the provider's free-text answer into a
// structured view. Missing patterns produce nil fields, never guesses.
func ParseFlightSummary(text string) FlightSummary {
	var s FlightSummary

	if m := reFlightCount.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			s.Count = &n
		}
	}
	if m := reMinPrice.FindStringSubmatch(text); m != nil {
		if p, err := strconv.Atoi(m[1]); err == nil {
			s.MinPrice = &p
		}
	}
	if m := reMinDuration.FindStringSubmatch(text); m != nil {
		s.MinDurationText = strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "")
		s.MinDurationMinutes = durationToMinutes(s.MinDurationText)
	}

	s.Cheapest = parseFlightBlock(text, "最低价航班为")
	s.Fastest = parseFlightBlock(text, "最短耗时航班为")
	return s
}
