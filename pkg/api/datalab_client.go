package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/valyala/fasthttp"

	"trend-go/pkg/logger"
	"trend-go/pkg/model"
)

// kst is the zone DataLab dates are expressed in.
var kst = time.FixedZone("KST", 9*60*60)

type DataLabConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// DataLabClient fetches daily relative search volume from the Naver DataLab
// search trend API.
type DataLabClient struct {
	config  DataLabConfig
	client  *fasthttp.Client
	retry   *SimpleRetry
	breaker *CircuitBreaker
	clock   clockwork.Clock
	log     *logger.Logger
}

func NewDataLabClient(config DataLabConfig, clock clockwork.Clock) *DataLabClient {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	connConfig := DefaultConnectionConfig()
	connConfig.RequestTimeout = config.Timeout

	return &DataLabClient{
		config:  config,
		client:  NewFastHTTPClient(connConfig),
		retry:   NewSimpleRetry(1, 200*time.Millisecond),
		breaker: NewCircuitBreaker(5, time.Minute, clock),
		clock:   clock,
		log:     logger.Component("datalab_client"),
	}
}

// Configured reports whether credentials are present.
func (c *DataLabClient) Configured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// Daily returns one point per day for the last days days, oldest first.
func (c *DataLabClient) Daily(ctx context.Context, keyword string, days int) ([]model.TimeSeriesPoint, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("datalab: %w", ErrNotConfigured)
	}
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("datalab: empty keyword")
	}

	end := c.clock.Now().In(kst)
	body, err := json.Marshal(dataLabRequest{
		StartDate: end.AddDate(0, 0, -days).Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
		TimeUnit:  "date",
		KeywordGroups: []dataLabKeywordGroup{
			{GroupName: keyword, Keywords: []string{keyword}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal datalab request: %w", err)
	}

	var points []model.TimeSeriesPoint
	err = c.breaker.Execute(func() error {
		return c.retry.Execute(ctx, func() error {
			var doErr error
			points, doErr = c.doRequest(ctx, body)
			return doErr
		})
	})
	if err != nil {
		c.log.WithError(err).WithField("keyword", keyword).Warn("DataLab request failed")
		return nil, fmt.Errorf("datalab: %w", err)
	}

	c.log.WithFields(map[string]interface{}{
		"keyword": keyword,
		"days":    days,
		"points":  len(points),
	}).Debug("DataLab series fetched")
	return points, nil
}

func (c *DataLabClient) doRequest(ctx context.Context, body []byte) ([]model.TimeSeriesPoint, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.Endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Naver-Client-Id", c.config.ClientID)
	req.Header.Set("X-Naver-Client-Secret", c.config.ClientSecret)
	req.SetBody(body)

	if err := DoContext(ctx, c.client, req, resp, c.config.Timeout); err != nil {
		return nil, err
	}

	var decoded dataLabResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode datalab response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return []model.TimeSeriesPoint{}, nil
	}

	data := decoded.Results[0].Data
	points := make([]model.TimeSeriesPoint, 0, len(data))
	for _, d := range data {
		points = append(points, model.TimeSeriesPoint{Date: d.Period, Ratio: d.Ratio})
	}
	return points, nil
}
