package scraper

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

// stubSource serves canned markup per region code and instruments how many
// fetches run concurrently.
type stubSource struct {
	responses map[string][]byte
	errs      map[string]error
	panics    map[string]bool
	delay     time.Duration

	current int64
	max     int64
}

func (s *stubSource) Name() string { return "stub" }
func (s *stubSource) Host() string { return "stub.example" }

func (s *stubSource) FetchRegion(ctx context.Context, code string) ([]byte, error) {
	cur := atomic.AddInt64(&s.current, 1)
	for {
		max := atomic.LoadInt64(&s.max)
		if cur <= max || atomic.CompareAndSwapInt64(&s.max, max, cur) {
			break
		}
	}
	defer atomic.AddInt64(&s.current, -1)

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.panics[code] {
		panic("stub exploded for " + code)
	}
	if err, ok := s.errs[code]; ok {
		return nil, err
	}
	return s.responses[code], nil
}

func validListing(price string) []byte {
	return []byte(fmt.Sprintf(`<html><body>
<div id="youjia"><dl><dt>92#汽油</dt><dd>%s元/升</dd></dl></div>
<div id="youjiaCont"><div>下次油价12月2日24时调整，目前预计上调油价幅度(0.10元/升)</div></div>
</body></html>`, price))
}

func newTestScraper(source *stubSource, cfg RunConfig) *Scraper {
	return New(source, nil, cfg, "", zerolog.Nop())
}

func parallelConfig() RunConfig {
	return RunConfig{Mode: ModeParallel, Concurrency: 5, PerHostLimit: 5}
}

func TestRun_Completeness(t *testing.T) {
	regions := map[string]string{"北京": "beijing", "上海": "shanghai", "天津": "tianjin"}
	source := &stubSource{
		responses: map[string][]byte{
			"beijing":  validListing("7.82"),
			"shanghai": validListing("7.88"),
			"tianjin":  validListing("7.85"),
		},
	}
	s := newTestScraper(source, parallelConfig())

	outcomes := s.Run(context.Background(), regions)

	require.Len(t, outcomes, len(regions))
	for name := range regions {
		outcome, ok := outcomes[name]
		require.True(t, ok, "missing outcome for %s", name)
		assert.True(t, outcome.IsSuccess())
		assert.Equal(t, name, outcome.Name)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	regions := map[string]string{"北京": "beijing", "上海": "shanghai", "天津": "tianjin"}
	source := &stubSource{
		responses: map[string][]byte{
			"beijing": validListing("7.82"),
			"tianjin": validListing("7.85"),
		},
		errs: map[string]error{
			"shanghai": models.NewHTTPStatusError(500),
		},
	}
	s := newTestScraper(source, parallelConfig())

	outcomes := s.Run(context.Background(), regions)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes["北京"].IsSuccess())
	assert.True(t, outcomes["天津"].IsSuccess())

	failed := outcomes["上海"]
	require.NotNil(t, failed.Error)
	assert.Equal(t, string(models.ErrKindHTTPStatus), failed.Error.Code)
	assert.Contains(t, failed.Error.Message, "500")
}

func TestRun_PanicContained(t *testing.T) {
	regions := map[string]string{"北京": "beijing", "上海": "shanghai"}
	source := &stubSource{
		responses: map[string][]byte{"beijing": validListing("7.82")},
		panics:    map[string]bool{"shanghai": true},
	}
	s := newTestScraper(source, parallelConfig())

	outcomes := s.Run(context.Background(), regions)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes["北京"].IsSuccess())

	failed := outcomes["上海"]
	require.NotNil(t, failed.Error)
	assert.Equal(t, string(models.ErrKindUnexpected), failed.Error.Code)
}

// A panicking fetch must hand its gate slot back, or every region queued
// behind it starves and Run never returns.
func TestRun_PanicReleasesGateSlot(t *testing.T) {
	regions := map[string]string{"北京": "beijing", "上海": "shanghai", "天津": "tianjin"}
	source := &stubSource{
		responses: map[string][]byte{
			"beijing": validListing("7.82"),
			"tianjin": validListing("7.85"),
		},
		panics: map[string]bool{"shanghai": true},
	}
	s := newTestScraper(source, RunConfig{Mode: ModeParallel, Concurrency: 1, PerHostLimit: 1})

	done := make(chan map[string]models.Outcome, 1)
	go func() {
		done <- s.Run(context.Background(), regions)
	}()

	var outcomes map[string]models.Outcome
	select {
	case outcomes = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("run did not finish; a panicking fetch starved the gate")
	}

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes["北京"].IsSuccess())
	assert.True(t, outcomes["天津"].IsSuccess())

	failed := outcomes["上海"]
	require.NotNil(t, failed.Error)
	assert.Equal(t, string(models.ErrKindUnexpected), failed.Error.Code)
}

func TestRun_ExtractionFailureClassified(t *testing.T) {
	regions := map[string]string{"北京": "beijing"}
	source := &stubSource{
		responses: map[string][]byte{"beijing": []byte("<html><body>nothing here</body></html>")},
	}
	s := newTestScraper(source, parallelConfig())

	outcomes := s.Run(context.Background(), regions)

	failed := outcomes["北京"]
	require.NotNil(t, failed.Error)
	assert.Equal(t, string(models.ErrKindExtraction), failed.Error.Code)
	assert.Equal(t, "no data parsed", failed.Error.Message)
}

func TestRun_ConcurrencyCapRespected(t *testing.T) {
	regions := make(map[string]string, 10)
	responses := make(map[string][]byte, 10)
	for i := 0; i < 10; i++ {
		code := fmt.Sprintf("region%d", i)
		regions[code] = code
		responses[code] = validListing("7.80")
	}
	source := &stubSource{responses: responses, delay: 10 * time.Millisecond}
	s := newTestScraper(source, RunConfig{Mode: ModeParallel, Concurrency: 2, PerHostLimit: 2})

	outcomes := s.Run(context.Background(), regions)

	require.Len(t, outcomes, 10)
	assert.LessOrEqual(t, atomic.LoadInt64(&source.max), int64(2))
}

func TestRun_SequentialMode(t *testing.T) {
	regions := map[string]string{"北京": "beijing", "上海": "shanghai", "天津": "tianjin"}
	source := &stubSource{
		responses: map[string][]byte{
			"beijing":  validListing("7.82"),
			"shanghai": validListing("7.88"),
			"tianjin":  validListing("7.85"),
		},
	}
	s := newTestScraper(source, RunConfig{Mode: ModeSequential, Delay: 10 * time.Millisecond})

	start := time.Now()
	outcomes := s.Run(context.Background(), regions)
	elapsed := time.Since(start)

	require.Len(t, outcomes, 3)
	for name := range regions {
		assert.True(t, outcomes[name].IsSuccess())
	}
	// One fetch at a time, never more.
	assert.Equal(t, int64(1), atomic.LoadInt64(&source.max))
	// Two inter-fetch delays for three regions.
	assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond)
}

func TestRunReport_PartialStatistics(t *testing.T) {
	regions := map[string]string{"北京": "beijing", "上海": "shanghai", "天津": "tianjin"}
	source := &stubSource{
		responses: map[string][]byte{
			"beijing": validListing("7.82"),
			"tianjin": validListing("7.85"),
		},
		errs: map[string]error{
			"shanghai": models.NewTimeoutError(),
		},
	}
	s := newTestScraper(source, parallelConfig())

	report := s.RunReport(context.Background(), regions)

	assert.Equal(t, models.ReportStatusPartial, report.Status)
	assert.Equal(t, models.Statistics{Total: 3, Success: 2, Error: 1, Rate: 66.7}, report.Statistics)
	require.Len(t, report.Data, 3)

	snapshot := s.Metrics().GetSnapshot()
	assert.EqualValues(t, 1, snapshot.TotalRuns)
	require.NotNil(t, snapshot.LastSummary)
	assert.Equal(t, models.ReportStatusPartial, snapshot.LastSummary.Status)
}

func TestRun_SuccessOutcomeShape(t *testing.T) {
	regions := map[string]string{"北京": "beijing"}
	source := &stubSource{responses: map[string][]byte{"beijing": validListing("7.82")}}
	s := newTestScraper(source, parallelConfig())

	outcomes := s.Run(context.Background(), regions)

	outcome := outcomes["北京"]
	require.True(t, outcome.IsSuccess())
	require.NotNil(t, outcome.Prices)
	require.NotNil(t, outcome.Prices.Gasoline92)
	assert.Equal(t, 7.82, *outcome.Prices.Gasoline92)
	require.NotNil(t, outcome.Trend)
	assert.Equal(t, models.TrendUp, outcome.Trend.Direction)
	assert.Equal(t, 0.1, outcome.Trend.Amount)
	require.NotNil(t, outcome.NextAdjustment)
	assert.Equal(t, "下次油价12月2日24时调整", *outcome.NextAdjustment)
	assert.NotEmpty(t, outcome.UpdateTime)
}
