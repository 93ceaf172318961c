package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/encoding/korean"

	"trend-go/pkg/model"
)

const naverPage = `<html><body><ul class="rank_top1000_list">
<li><a href="#"><span class="rank_top1000_num">1</span>여성 패딩</a></li>
<li><a href="#"><span class="rank_top1000_num">2</span>롱부츠</a></li>
<li><a href="#">3
머플러</a></li>
</ul></body></html>`

func TestNaverShoppingSource_ParsesRenderedRanking(t *testing.T) {
	var mu sync.Mutex
	var cids []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cids = append(cids, r.URL.Query().Get("cid"))
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, naverPage)
	}))
	defer server.Close()

	src := NewNaverShoppingSource(NaverConfig{
		BaseURL: server.URL + "/shoppingInsight/sCategory.naver",
		TopN:    10,
	}, NewPageClient(time.Second), clockwork.NewFakeClock())

	items, err := src.Fetch(context.Background(), "Fashion")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(cids, []string{"50000000"}) {
		t.Errorf("expected only the Fashion page, got %v", cids)
	}
	want := scraped("Fashion", "여성 패딩", "롱부츠", "머플러")
	if !reflect.DeepEqual(items, want) {
		t.Errorf("unexpected items %+v", items)
	}
}

func TestNaverShoppingSource_AllCategoriesAndRankEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sCategory.naver"):
			io.WriteString(w, `<html><body><div id="loading"></div></body></html>`)
		case strings.HasSuffix(r.URL.Path, "/getCategoryKeywordRank.naver"):
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if !strings.Contains(r.Header.Get("Referer"), "sCategory.naver?cid=") {
				t.Errorf("expected page referer, got %q", r.Header.Get("Referer"))
			}
			r.ParseForm()
			io.WriteString(w, `{"ranks":[{"rank":1,"keyword":"kw-`+r.PostForm.Get("cid")+`"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src := NewNaverShoppingSource(NaverConfig{
		BaseURL: server.URL + "/shoppingInsight/sCategory.naver",
	}, NewPageClient(time.Second), clockwork.NewFakeClock())

	items, err := src.Fetch(context.Background(), model.CategoryAll)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected one item per category, got %+v", items)
	}
	if items[2] != (model.ScrapedItem{Keyword: "kw-50000006", Category: "Food"}) {
		t.Errorf("unexpected Food item %+v", items[2])
	}
}

func TestNaverShoppingSource_AllPagesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	src := NewNaverShoppingSource(NaverConfig{BaseURL: server.URL + "/s.naver"}, NewPageClient(time.Second), nil)
	if _, err := src.Fetch(context.Background(), "Food"); err == nil {
		t.Error("expected error when every page fails")
	}
}

func TestYouTubeSource_FallsBackToInitialData(t *testing.T) {
	page := `<html><head><script>var ytInitialData = {"contents":[` +
		`{"videoRenderer":{"title":{"runs":[{"text":"흑백요리사 \"최종화\""}]}}},` +
		`{"videoRenderer":{"title":{"runs":[{"text":"티니핑 극장판"}]}}},` +
		`{"videoRenderer":{"title":{"runs":[{"text":"티니핑 극장판"}]}}}` +
		`]};</script></head><body></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, page)
	}))
	defer server.Close()

	src := NewYouTubeSource(server.URL+"/feed/trending", 10, NewPageClient(time.Second))
	items, err := src.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	want := scraped(CategoryGeneral, `흑백요리사 "최종화"`, "티니핑 극장판")
	if !reflect.DeepEqual(items, want) {
		t.Errorf("unexpected items %+v", items)
	}
}

func TestYouTubeSource_RenderedTitles(t *testing.T) {
	titles, err := parseYouTubeTitles([]byte(`<a id="video-title"> 선재 업고 튀어 </a><a id="video-title">기아 타이거즈</a>`), 1)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !reflect.DeepEqual(titles, []string{"선재 업고 튀어"}) {
		t.Errorf("unexpected titles %v", titles)
	}
}

func TestGoogleTrendsSource_Feed(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Daily Search Trends</title>
<item><title>삼성전자</title></item>
<item><title>아이폰 16</title></item>
<item><title>  </title></item>
</channel></rss>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		io.WriteString(w, feed)
	}))
	defer server.Close()

	src := NewGoogleTrendsSource(server.URL+"/trending/rss?geo=KR", 10, NewPageClient(time.Second))
	items, err := src.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !reflect.DeepEqual(items, scraped(CategoryGeneral, "삼성전자", "아이폰 16")) {
		t.Errorf("unexpected items %+v", items)
	}
}

func TestDecodeBody_EUCKR(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte("<p>극세사 이불</p>"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := decodeBody(encoded, "text/html; charset=EUC-KR")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(decoded) != "<p>극세사 이불</p>" {
		t.Errorf("unexpected body %q", decoded)
	}

	meta := append([]byte(`<meta charset="euc-kr">`), encoded...)
	decoded, err = decodeBody(meta, "text/html")
	if err != nil || !strings.Contains(string(decoded), "극세사 이불") {
		t.Errorf("expected meta charset to be honoured, got %q, %v", decoded, err)
	}

	if got, _ := decodeBody([]byte("plain"), ""); string(got) != "plain" {
		t.Errorf("utf-8 body should pass through, got %q", got)
	}
}
