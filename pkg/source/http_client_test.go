package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPageClient_BodiesOutliveTheResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, strings.Repeat(r.URL.Query().Get("c"), 64))
	}))
	defer server.Close()

	pages := NewPageClient(time.Second)
	ctx := context.Background()

	first, err := pages.Get(ctx, server.URL+"/?c=A")
	if err != nil {
		t.Fatalf("first Get failed: %v", err)
	}
	want := string(first)

	second, err := pages.Get(ctx, server.URL+"/?c=B")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}

	if got := string(first); got != want {
		t.Errorf("first body changed after second request: was %q now %q", want[:8], got[:8])
	}
	if want != strings.Repeat("A", 64) {
		t.Errorf("unexpected first body %q", want)
	}
	if string(second) != strings.Repeat("B", 64) {
		t.Errorf("unexpected second body %q", second)
	}
}
