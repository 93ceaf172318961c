package source

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"trend-go/pkg/logger"
	"trend-go/pkg/metrics"
	"trend-go/pkg/model"
)

// Aggregator fans out to every source and merges their output per
// category. A failing source never affects the others.
type Aggregator struct {
	sources      []Source
	perSourceCap int
	timeout      time.Duration
	log          *logger.Logger
}

type sourceResult struct {
	source model.Source
	items  []model.ScrapedItem
}

func NewAggregator(sources []Source, perSourceCap int, timeout time.Duration) *Aggregator {
	if perSourceCap <= 0 {
		perSourceCap = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Aggregator{
		sources:      sources,
		perSourceCap: perSourceCap,
		timeout:      timeout,
		log:          logger.Component("aggregator"),
	}
}

// Collect returns the merged items for category, or the Synthetic fallback
// when no source produced anything for it.
func (a *Aggregator) Collect(ctx context.Context, category string) []model.CollectedItem {
	return a.assemble(category, a.fetchAll(ctx, category))
}

// CollectCycle fetches every source once and assembles each of categories
// from that single fetch.
func (a *Aggregator) CollectCycle(ctx context.Context, categories []string) map[string][]model.CollectedItem {
	results := a.fetchAll(ctx, model.CategoryAll)

	collected := make(map[string][]model.CollectedItem, len(categories))
	for _, category := range categories {
		collected[category] = a.assemble(category, results)
	}
	return collected
}

func (a *Aggregator) fetchAll(ctx context.Context, categoryHint string) []sourceResult {
	results := make([]sourceResult, len(a.sources))
	errs := make([]error, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		i, src := i, src
		results[i].source = src.Name()
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			items, err := fetchSafely(fetchCtx, src, categoryHint)
			metrics.RecordSourceFetch(string(src.Name()), err)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				return nil
			}
			results[i].items = items
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr != nil {
		a.log.WithError(merr).WithFields(map[string]interface{}{
			"failed":  merr.Len(),
			"sources": len(a.sources),
		}).Warn("Some sources failed")
	}
	return results
}

// fetchSafely turns a panicking source into a failed one.
func fetchSafely(ctx context.Context, src Source, categoryHint string) (items []model.ScrapedItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	return src.Fetch(ctx, categoryHint)
}

// assemble concatenates results in source order. Named categories keep only
// items reporting that category; "all" keeps everything. Each source
// contributes at most perSourceCap items per reported category.
func (a *Aggregator) assemble(category string, results []sourceResult) []model.CollectedItem {
	var merged []model.CollectedItem
	for _, res := range results {
		taken := make(map[string]int)
		for _, item := range res.items {
			if category != model.CategoryAll && item.Category != category {
				continue
			}
			if taken[item.Category] >= a.perSourceCap {
				continue
			}
			taken[item.Category]++
			merged = append(merged, model.CollectedItem{
				Keyword:  item.Keyword,
				Source:   res.source,
				Category: item.Category,
			})
		}
	}

	if len(merged) == 0 {
		a.log.WithField("category", category).Warn("No source produced items, using synthetic fallback")
		return Fallback(category)
	}
	return merged
}
