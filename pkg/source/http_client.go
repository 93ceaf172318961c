package source

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/text/encoding/htmlindex"

	"trend-go/pkg/api"
)

var metaCharset = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_-]+)`)

// PageClient downloads pages with browser-like headers and returns their
// bodies as UTF-8.
type PageClient struct {
	client     *fasthttp.Client
	userAgents []string
	timeout    time.Duration
}

// NewPageClient creates a page client whose requests time out after timeout
func NewPageClient(timeout time.Duration) *PageClient {
	config := api.ScraperConnectionConfig()
	if timeout > 0 {
		config.RequestTimeout = timeout
	}
	return &PageClient{
		client:  api.NewFastHTTPClient(config),
		timeout: config.RequestTimeout,
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		},
	}
}

// Get fetches targetURL.
func (p *PageClient) Get(ctx context.Context, targetURL string) ([]byte, error) {
	return p.do(ctx, fasthttp.MethodGet, targetURL, "", nil)
}

// PostForm posts form to targetURL with referer set, the way the page's own
// scripts do.
func (p *PageClient) PostForm(ctx context.Context, targetURL, referer string, form url.Values) ([]byte, error) {
	return p.do(ctx, fasthttp.MethodPost, targetURL, referer, form)
}

func (p *PageClient) do(ctx context.Context, method, targetURL, referer string, form url.Values) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(targetURL)
	req.Header.SetMethod(method)
	p.setRequestHeaders(req, targetURL, referer)
	if form != nil {
		req.Header.SetContentType("application/x-www-form-urlencoded; charset=UTF-8")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		req.SetBodyString(form.Encode())
	}

	if err := api.DoContext(ctx, p.client, req, resp, p.timeout); err != nil {
		return nil, err
	}

	// resp goes back to the pool on return, so the body must not alias it
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	if string(resp.Header.ContentEncoding()) == "gzip" {
		unzipped, err := resp.BodyGunzip()
		if err != nil {
			return nil, fmt.Errorf("failed to gunzip body: %w", err)
		}
		body = unzipped
	}

	return decodeBody(body, string(resp.Header.ContentType()))
}

// setRequestHeaders adds browser-like headers to avoid bot detection
func (p *PageClient) setRequestHeaders(req *fasthttp.Request, targetURL, referer string) {
	userAgent := p.userAgents[hash(targetURL)%uint32(len(p.userAgents))]
	req.Header.SetUserAgent(userAgent)

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")

	if referer == "" {
		if parsedURL, err := url.Parse(targetURL); err == nil {
			referer = fmt.Sprintf("%s://%s/", parsedURL.Scheme, parsedURL.Host)
		}
	}
	req.Header.Set("Referer", referer)
}

// decodeBody converts body to UTF-8 using the charset named by the
// Content-Type header or, failing that, a meta tag.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	name := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		name = params["charset"]
	}
	if name == "" {
		head := body
		if len(head) > 2048 {
			head = head[:2048]
		}
		if m := metaCharset.FindSubmatch(head); m != nil {
			name = string(m[1])
		}
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		// unknown label, hand the bytes through
		return body, nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return decoded, nil
}

// hash gives a stable user agent per URL
func hash(s string) uint32 {
	h := uint32(0)
	for _, c := range s {
		h = h*31 + uint32(c)
	}
	return h
}
