package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFlightText = `为您查询到了 12 条航班信息。
最低价：450 元，最短耗时：2h 15m。
最低价航班为：
航班号：MU5101
起飞时间：2025-03-10 07:30
到达时间：2025-03-10 09:55
耗时：2h 25m
价格：450 元
最短耗时航班为：
航班号：CA1501
起飞时间：2025-03-10 08:00
到达时间：2025-03-10 10:15
耗时：2h 15m
价格：680 元
`

func TestParseFlightSummary_FullText(t *testing.T) {
	s := ParseFlightSummary(sampleFlightText)

	require.NotNil(t, s.Count)
	assert.Equal(t, 12, *s.Count)

	require.NotNil(t, s.MinPrice)
	assert.Equal(t, 450, *s.MinPrice)

	assert.Equal(t, "2h15m", s.MinDurationText)
	require.NotNil(t, s.MinDurationMinutes)
	assert.Equal(t, 135, *s.MinDurationMinutes)

	require.NotNil(t, s.Cheapest)
	assert.Equal(t, "MU5101", s.Cheapest.FlightNo)
	assert.Equal(t, "2025-03-10 07:30", s.Cheapest.DepTime)
	assert.Equal(t, "2025-03-10 09:55", s.Cheapest.ArrTime)
	require.NotNil(t, s.Cheapest.Price)
	assert.Equal(t, 450, *s.Cheapest.Price)
	require.NotNil(t, s.Cheapest.DurationMinutes)
	assert.Equal(t, 145, *s.Cheapest.DurationMinutes)

	require.NotNil(t, s.Fastest)
	assert.Equal(t, "CA1501", s.Fastest.FlightNo)
	require.NotNil(t, s.Fastest.Price)
	assert.Equal(t, 680, *s.Fastest.Price)
}

func TestParseFlightSummary_NoMatches(t *testing.T) {
	s := ParseFlightSummary("今日无可售航班。")

	assert.Nil(t, s.Count)
	assert.Nil(t, s.MinPrice)
	assert.Nil(t, s.MinDurationMinutes)
	assert.Empty(t, s.MinDurationText)
	assert.Nil(t, s.Cheapest)
	assert.Nil(t, s.Fastest)
}

func TestParseFlightSummary_PartialBlock(t *testing.T) {
	// A block without a flight number is dropped entirely rather than
	// half-filled.
	s := ParseFlightSummary("最低价航班为：\n价格：300 元\n")
	assert.Nil(t, s.Cheapest)
}

func TestDurationToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"2h 15m", intp(135)},
		{"2h15m", intp(135)},
		{"45m", intp(45)},
		{"3h", intp(180)},
		{"", nil},
		{"0h 0m", nil},
	}
	for _, tt := range tests {
		got := durationToMinutes(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, tt.in)
		} else {
			require.NotNil(t, got, tt.in)
			assert.Equal(t, *tt.want, *got, tt.in)
		}
	}
}

func intp(v int) *int { return &v }
