package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"trend-go/pkg/logger"
	"trend-go/pkg/model"
)

type naverCategory struct {
	CID      string
	Category string
}

// naverCategoryIDs maps Shopping Insight category ids to categories, in
// collection order.
var naverCategoryIDs = []naverCategory{
	{"50000000", "Fashion"},
	{"50000003", "Digital"},
	{"50000006", "Food"},
	{"50000008", "Living"},
}

const naverRankSelector = ".rank_top1000_list li a"

var kst = time.FixedZone("KST", 9*60*60)

type NaverConfig struct {
	BaseURL string
	PageQPS float64
	TopN    int
}

// NaverShoppingSource reads the top keywords of each Shopping Insight
// category. When the page carries no rendered ranking it asks the ranking
// endpoint the page itself uses.
type NaverShoppingSource struct {
	config  NaverConfig
	pages   *PageClient
	limiter *rate.Limiter
	clock   clockwork.Clock
	log     *logger.Logger
}

func NewNaverShoppingSource(config NaverConfig, pages *PageClient, clock clockwork.Clock) *NaverShoppingSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.TopN <= 0 {
		config.TopN = 10
	}
	limit := rate.Inf
	if config.PageQPS > 0 {
		limit = rate.Limit(config.PageQPS)
	}
	return &NaverShoppingSource{
		config:  config,
		pages:   pages,
		limiter: rate.NewLimiter(limit, 1),
		clock:   clock,
		log:     logger.Component("naver_source"),
	}
}

func (s *NaverShoppingSource) Name() model.Source {
	return model.SourceNaverShopping
}

// Fetch collects the hinted category, or every category when the hint is
// "all", empty or unknown. Failed categories are skipped; an error is
// returned only when nothing was collected.
func (s *NaverShoppingSource) Fetch(ctx context.Context, categoryHint string) ([]model.ScrapedItem, error) {
	var items []model.ScrapedItem
	var errs *multierror.Error

	for _, c := range s.targets(categoryHint) {
		if err := s.limiter.Wait(ctx); err != nil {
			errs = multierror.Append(errs, err)
			break
		}

		keywords, err := s.fetchCategory(ctx, c.CID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", c.Category, err))
			s.log.WithError(err).WithField("category", c.Category).Warn("Naver category fetch failed")
			continue
		}
		for _, kw := range keywords {
			items = append(items, model.ScrapedItem{Keyword: kw, Category: c.Category})
		}
	}

	if len(items) == 0 && errs.ErrorOrNil() != nil {
		return nil, errs
	}
	return items, nil
}

func (s *NaverShoppingSource) targets(categoryHint string) []naverCategory {
	for _, c := range naverCategoryIDs {
		if c.Category == categoryHint {
			return []naverCategory{c}
		}
	}
	return naverCategoryIDs
}

func (s *NaverShoppingSource) fetchCategory(ctx context.Context, cid string) ([]string, error) {
	pageURL := s.config.BaseURL + "?cid=" + url.QueryEscape(cid)

	body, err := s.pages.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	keywords, err := parseNaverRankPage(body, s.config.TopN)
	if err != nil {
		return nil, err
	}
	if len(keywords) > 0 {
		return keywords, nil
	}

	return s.fetchRankEndpoint(ctx, pageURL, cid)
}

// fetchRankEndpoint asks the JSON ranking endpoint behind the page.
func (s *NaverShoppingSource) fetchRankEndpoint(ctx context.Context, pageURL, cid string) ([]string, error) {
	base, err := url.Parse(s.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	rankURL := base.ResolveReference(&url.URL{Path: "getCategoryKeywordRank.naver"})

	end := s.clock.Now().In(kst).AddDate(0, 0, -1)
	form := url.Values{
		"cid":       {cid},
		"timeUnit":  {"date"},
		"startDate": {end.AddDate(0, 0, -6).Format("2006-01-02")},
		"endDate":   {end.Format("2006-01-02")},
		"age":       {""},
		"gender":    {""},
		"device":    {""},
		"page":      {"1"},
		"count":     {fmt.Sprint(s.config.TopN)},
	}

	body, err := s.pages.PostForm(ctx, rankURL.String(), pageURL, form)
	if err != nil {
		return nil, fmt.Errorf("rank endpoint: %w", err)
	}
	return parseNaverRankJSON(body, s.config.TopN)
}

// parseNaverRankPage reads the rendered ranking list. Each anchor holds the
// rank number followed by the keyword.
func parseNaverRankPage(body []byte, topN int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var keywords []string
	doc.Find(naverRankSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		sel.Find(".rank_top1000_num").Remove()
		if kw := cleanKeyword(stripRankPrefix(sel.Text())); kw != "" {
			keywords = append(keywords, kw)
		}
		return len(keywords) < topN
	})
	return keywords, nil
}

// stripRankPrefix drops leading lines that only hold a rank number.
func stripRankPrefix(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for len(lines) > 1 && isDigits(strings.TrimSpace(lines[0])) {
		lines = lines[1:]
	}
	return strings.Join(lines, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseNaverRankJSON(body []byte, topN int) ([]string, error) {
	var decoded struct {
		Ranks []struct {
			Rank    int    `json:"rank"`
			Keyword string `json:"keyword"`
		} `json:"ranks"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode rank response: %w", err)
	}

	var keywords []string
	for _, r := range decoded.Ranks {
		if kw := cleanKeyword(r.Keyword); kw != "" {
			keywords = append(keywords, kw)
		}
		if len(keywords) == topN {
			break
		}
	}
	return keywords, nil
}
