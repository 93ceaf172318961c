// Package analysis explains why a keyword is trending. Explanations are
// cached per keyword; the search-volume series is always fetched fresh.
package analysis

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"trend-go/pkg/logger"
	"trend-go/pkg/metrics"
	"trend-go/pkg/model"
	"trend-go/pkg/utils"
)

// DegradedReason is returned when no explanation can be produced.
const DegradedReason = "AI 분석 서비스를 사용할 수 없어 임시 데이터를 반환합니다."

// WindowDays is the series window fetched for every analysis.
const WindowDays = 365

var errEmptyExplanation = errors.New("explainer returned no text")

// Explainer produces a free-text explanation for a keyword.
type Explainer interface {
	Explain(ctx context.Context, keyword, grounding string) (string, error)
}

// TimeSeries returns daily relative search volume.
type TimeSeries interface {
	Daily(ctx context.Context, keyword string, days int) ([]model.TimeSeriesPoint, error)
}

// Cache stores one explanation per keyword.
type Cache interface {
	GetAnalysis(ctx context.Context, keyword string) *model.AnalysisRecord
	SaveAnalysis(ctx context.Context, keyword, reason string) bool
}

type Result struct {
	Keyword   string                  `json:"keyword"`
	Reason    string                  `json:"reason"`
	ChartData []model.TimeSeriesPoint `json:"chart_data"`
}

type Config struct {
	SeriesTimeout  time.Duration
	ExplainTimeout time.Duration
	// MaxConcurrentExplains bounds explainer calls across keywords.
	MaxConcurrentExplains int
}

type Analyzer struct {
	cache     Cache
	series    TimeSeries
	explainer Explainer
	sanitizer *Sanitizer
	config    Config
	group     singleflight.Group
	slots     *semaphore.Weighted
	log       *logger.Logger
}

// NewAnalyzer builds an analyzer. A nil explainer puts it in degraded mode
// for keywords that are not cached yet.
func NewAnalyzer(cache Cache, series TimeSeries, explainer Explainer, config Config) *Analyzer {
	if config.SeriesTimeout <= 0 {
		config.SeriesTimeout = 5 * time.Second
	}
	if config.ExplainTimeout <= 0 {
		config.ExplainTimeout = 20 * time.Second
	}
	if config.MaxConcurrentExplains <= 0 {
		config.MaxConcurrentExplains = 4
	}
	return &Analyzer{
		cache:     cache,
		series:    series,
		explainer: explainer,
		sanitizer: NewSanitizer(),
		config:    config,
		slots:     semaphore.NewWeighted(int64(config.MaxConcurrentExplains)),
		log:       logger.Component("analyzer"),
	}
}

// Analyze returns the explanation of keyword with a fresh yearly series. It
// never fails: without an explanation the degraded text and an empty series
// are returned.
func (a *Analyzer) Analyze(ctx context.Context, keyword string) Result {
	keyword = utils.NormalizeKeyword(keyword)

	points, err := a.fetch(ctx, keyword, WindowDays)
	if err != nil {
		a.log.WithError(err).WithField("keyword", keyword).Warn("Failed to fetch search volume")
	}

	if record := a.cache.GetAnalysis(ctx, keyword); record != nil {
		metrics.RecordAnalysis("hit")
		return Result{Keyword: keyword, Reason: record.Reason, ChartData: points}
	}

	grounding := Grounding(points, err)
	value, err, shared := a.group.Do(keyword, func() (interface{}, error) {
		return a.explain(context.WithoutCancel(ctx), keyword, grounding)
	})
	if err != nil {
		metrics.RecordAnalysis("degraded")
		a.log.WithError(err).WithField("keyword", keyword).Warn("Serving degraded analysis")
		return Result{Keyword: keyword, Reason: DegradedReason, ChartData: []model.TimeSeriesPoint{}}
	}

	metrics.RecordAnalysis("generated")
	a.log.WithFields(map[string]interface{}{
		"keyword": keyword,
		"shared":  shared,
	}).Debug("Analysis generated")
	return Result{Keyword: keyword, Reason: value.(string), ChartData: points}
}

// Series returns days of search volume for keyword, or an empty series.
func (a *Analyzer) Series(ctx context.Context, keyword string, days int) []model.TimeSeriesPoint {
	keyword = utils.NormalizeKeyword(keyword)
	points, err := a.fetch(ctx, keyword, days)
	if err != nil {
		a.log.WithError(err).WithFields(map[string]interface{}{
			"keyword": keyword,
			"days":    days,
		}).Warn("Failed to fetch search volume")
	}
	return points
}

// fetch always returns a non-nil slice.
func (a *Analyzer) fetch(ctx context.Context, keyword string, days int) ([]model.TimeSeriesPoint, error) {
	if a.series == nil {
		return []model.TimeSeriesPoint{}, errors.New("no time series configured")
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.SeriesTimeout)
	defer cancel()

	points, err := a.series.Daily(ctx, keyword, days)
	if err != nil || points == nil {
		return []model.TimeSeriesPoint{}, err
	}
	return points, nil
}

// explain runs once per keyword at a time. It is detached from the caller's
// cancellation because other callers may be waiting on the same result.
func (a *Analyzer) explain(ctx context.Context, keyword, grounding string) (string, error) {
	if record := a.cache.GetAnalysis(ctx, keyword); record != nil {
		return record.Reason, nil
	}
	if a.explainer == nil {
		return "", errors.New("no explainer configured")
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.ExplainTimeout)
	defer cancel()

	if err := a.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer a.slots.Release(1)

	raw, err := a.explainer.Explain(ctx, keyword, grounding)
	if err != nil {
		return "", err
	}
	reason := a.sanitizer.Sanitize(raw)
	if reason == "" {
		return "", errEmptyExplanation
	}

	a.cache.SaveAnalysis(ctx, keyword, reason)
	return reason, nil
}
