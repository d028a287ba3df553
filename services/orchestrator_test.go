package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRail struct {
	res      ProviderResult
	calls    int
	panicMsg string
}

func (f *fakeRail) QueryTrains(ctx context.Context, fromCity, toCity, date string) ProviderResult {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.res
}

type fakeFlight struct {
	res   ProviderResult
	calls int
}

func (f *fakeFlight) QueryFlights(ctx context.Context, fromCity, toCity, date string) ProviderResult {
	f.calls++
	return f.res
}

type fakeSummarizer struct {
	text  string
	err   error
	calls int
	last  SummaryInput
}

func (f *fakeSummarizer) Summarize(ctx context.Context, in SummaryInput) (string, error) {
	f.calls++
	f.last = in
	return f.text, f.err
}

func railResultWithTrains(n int) ProviderResult {
	trains := make([]Train, n)
	for i := range trains {
		trains[i] = Train{
			TrainNo: fmt.Sprintf("G%d", 100+i),
			Prices:  []TrainPrice{{SeatName: "二等座", Price: FlexFloat(500 + i), Num: "有"}},
		}
	}
	summary := SummarizeTrains(trains)
	return ProviderResult{OK: true, Source: railSource, Trains: trains, TrainSummary: &summary}
}

func flightResultWithCount(n int) ProviderResult {
	return ProviderResult{OK: true, Source: flightSource, Flight: &FlightData{
		RawText: "为您查询到了 12 条航班信息。",
		Summary: FlightSummary{Count: &n},
		Query:   FlightQuery{DepCityCode: "BJS", ArrCityCode: "SHA", DepDate: "2025-03-10"},
	}}
}

func legQuery() LegQuery {
	return LegQuery{Departure: "北京", Destination: "上海", Date: "2025-03-10"}
}

func TestRunLeg_BothProvidersHaveData(t *testing.T) {
	rail := &fakeRail{res: railResultWithTrains(3)}
	flight := &fakeFlight{res: flightResultWithCount(12)}
	sum := &fakeSummarizer{text: "【结论】推荐高铁出行。"}

	o := NewOrchestrator(rail, flight, sum)
	out, err := o.RunLeg(context.Background(), legQuery(), Profile{DepartCity: "北京", Destination: "上海"})
	require.NoError(t, err)

	assert.Equal(t, 1, rail.calls)
	assert.Equal(t, 1, flight.calls)
	assert.Equal(t, 1, sum.calls)
	assert.Equal(t, "【结论】推荐高铁出行。", out.SummaryText)
	assert.NotContains(t, out.SummaryText, "数据不足")

	require.NotNil(t, out.Debug)
	assert.True(t, out.Debug.RailOK)
	assert.True(t, out.Debug.FlightOK)
	assert.Equal(t, 3, out.Debug.RailRawLen)
	assert.Equal(t, 12, out.Debug.FlightRawLen)
	require.NotNil(t, out.Debug.FlightQuery)
	assert.Equal(t, "BJS", out.Debug.FlightQuery.DepCityCode)
}

func TestRunLeg_CompactsTrainsWithoutMutating(t *testing.T) {
	rail := &fakeRail{res: railResultWithTrains(15)}
	flight := &fakeFlight{res: flightResultWithCount(2)}
	sum := &fakeSummarizer{text: "ok"}

	o := NewOrchestrator(rail, flight, sum)
	out, err := o.RunLeg(context.Background(), legQuery(), Profile{})
	require.NoError(t, err)

	require.NotNil(t, sum.last.Rail)
	assert.Len(t, sum.last.Rail.Trains, maxSummaryItems)
	// The outcome still carries the full list.
	require.NotNil(t, out.Rail)
	assert.Len(t, out.Rail.Trains, 15)
}

func TestRunLeg_NoDataSkipsSummarizer(t *testing.T) {
	rail := &fakeRail{res: Failure(railSource, &ProviderError{Kind: ErrHTTP, Message: "HTTP 502", HTTPStatus: 502})}
	flight := &fakeFlight{res: ProviderResult{OK: true, Source: flightSource, Flight: &FlightData{RawText: "今日无可售航班。"}}}
	sum := &fakeSummarizer{text: "must not be used"}

	o := NewOrchestrator(rail, flight, sum)
	out, err := o.RunLeg(context.Background(), legQuery(), Profile{})
	require.NoError(t, err)

	assert.Equal(t, 0, sum.calls, "summarizer must not run without data")
	assert.True(t, strings.HasPrefix(out.SummaryText, "【数据不足】"))
	assert.Contains(t, out.SummaryText, "出发地：北京；目的地：上海；出发日期：2025-03-10")
	assert.Contains(t, out.SummaryText, "火车查询：失败（http_error (HTTP 502): HTTP 502）")
	assert.Contains(t, out.SummaryText, "航班查询：无返回数据")
	assert.Contains(t, out.SummaryText, "【下一步建议】")
	assert.NotContains(t, out.SummaryText, "返程日期", "no return-date follow-up without a valid return date")
}

func TestRunLeg_NoDataMentionsReturnDate(t *testing.T) {
	rail := &fakeRail{res: ProviderResult{OK: true, Source: railSource}}
	flight := &fakeFlight{res: Failure(flightSource, &ProviderError{Kind: ErrNetwork, Message: "timeout"})}
	sum := &fakeSummarizer{}

	o := NewOrchestrator(rail, flight, sum)
	out, err := o.RunLeg(context.Background(), legQuery(), Profile{ReturnDate: "2025-03-15"})
	require.NoError(t, err)

	assert.Contains(t, out.SummaryText, "火车查询：无返回数据（可能是接口暂时不可用或被限流）")
	assert.Contains(t, out.SummaryText, "航班查询：失败/无方案（network: timeout）")
	assert.Contains(t, out.SummaryText, "返程日期 2025-03-15")
}

func TestRunLeg_FailureIsolation(t *testing.T) {
	rail := &fakeRail{res: Failure(railSource, &ProviderError{Kind: ErrNetwork, Message: "connection reset"})}
	flight := &fakeFlight{res: flightResultWithCount(5)}
	sum := &fakeSummarizer{text: "航班可用。"}

	o := NewOrchestrator(rail, flight, sum)
	out, err := o.RunLeg(context.Background(), legQuery(), Profile{})
	require.NoError(t, err)

	// Flight data alone is enough to summarize.
	assert.Equal(t, 1, sum.calls)
	assert.Equal(t, "航班可用。", out.SummaryText)

	require.NotNil(t, out.Rail)
	assert.False(t, out.Rail.OK)
	assert.False(t, out.Debug.RailOK)
	assert.NotEmpty(t, out.Debug.RailError)
	assert.True(t, out.Debug.FlightOK)
}

func TestRunLeg_SummarizerFailureBecomesNotice(t *testing.T) {
	rail := &fakeRail{res: railResultWithTrains(1)}
	flight := &fakeFlight{res: flightResultWithCount(1)}
	sum := &fakeSummarizer{err: errors.New("model unavailable")}

	o := NewOrchestrator(rail, flight, sum)
	out, err := o.RunLeg(context.Background(), legQuery(), Profile{})
	require.NoError(t, err)
	assert.Equal(t, "分析失败：model unavailable", out.SummaryText)
}

func TestRunLeg_ProviderPanicBecomesFailure(t *testing.T) {
	rail := &fakeRail{panicMsg: "nil map write"}
	flight := &fakeFlight{res: flightResultWithCount(4)}
	sum := &fakeSummarizer{text: "ok"}

	o := NewOrchestrator(rail, flight, sum)
	out, err := o.RunLeg(context.Background(), legQuery(), Profile{})
	require.NoError(t, err)

	require.NotNil(t, out.Rail)
	assert.False(t, out.Rail.OK)
	require.NotNil(t, out.Rail.Err)
	assert.Equal(t, ErrUnknown, out.Rail.Err.Kind)
	assert.Equal(t, "panic: nil map write", out.Rail.Err.Message)

	// The sibling query is untouched.
	require.NotNil(t, out.Flight)
	assert.True(t, out.Flight.OK)
}

func TestRunLeg_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rail := &fakeRail{res: railResultWithTrains(1)}
	flight := &fakeFlight{res: flightResultWithCount(1)}
	sum := &fakeSummarizer{text: "ok"}

	o := NewOrchestrator(rail, flight, sum)
	_, err := o.RunLeg(ctx, legQuery(), Profile{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, sum.calls)
}

func TestRunLeg_RailOnlyMode(t *testing.T) {
	rail := &fakeRail{res: railResultWithTrains(2)}
	flight := &fakeFlight{res: flightResultWithCount(9)}
	sum := &fakeSummarizer{text: "ok"}

	q := legQuery()
	q.Modes = []string{ModeRail}

	o := NewOrchestrator(rail, flight, sum)
	out, err := o.RunLeg(context.Background(), q, Profile{})
	require.NoError(t, err)

	assert.Equal(t, 1, rail.calls)
	assert.Equal(t, 0, flight.calls)
	assert.Nil(t, out.Flight)
	require.NotNil(t, out.Rail)
	assert.True(t, out.Rail.OK)
}
