package source

import "trend-go/pkg/model"

var fallbackKeywords = map[string][]string{
	model.CategoryAll: {"두바이 초콜릿", "피스타치오", "아이폰 16", "선재 업고 튀어", "흑백요리사", "티니핑", "삼성전자", "기아 타이거즈"},
	"Fashion":         {"여성 패딩", "니트 조끼", "롱부츠", "숏패딩", "머플러", "바라클라바"},
	"Digital":         {"아이폰 16", "갤럭시 S24", "맥북 프로", "소니 헤드폰", "닌텐도 스위치", "로지텍 마우스"},
	"Food":            {"두바이 초콜릿", "피스타치오 스프레드", "샤인머스캣", "그릭요거트", "마라탕", "탕후루"},
	"Living":          {"크리스마스 트리", "가습기", "온수매트", "극세사 이불", "암막 커튼", "다이어리"},
}

// FallbackKeywords returns the curated list for category. Unknown
// categories get the "all" list.
func FallbackKeywords(category string) []string {
	keywords, ok := fallbackKeywords[category]
	if !ok {
		keywords = fallbackKeywords[model.CategoryAll]
	}
	return append([]string(nil), keywords...)
}

// Fallback returns the curated list for category tagged as Synthetic.
func Fallback(category string) []model.CollectedItem {
	keywords := FallbackKeywords(category)
	items := make([]model.CollectedItem, 0, len(keywords))
	for _, kw := range keywords {
		items = append(items, model.CollectedItem{
			Keyword:  kw,
			Source:   model.SourceSynthetic,
			Category: category,
		})
	}
	return items
}

// FallbackBatch returns the curated list as an unstamped batch, ranked by
// position.
func FallbackBatch(category string) *model.TrendBatch {
	items := Fallback(category)
	batch := &model.TrendBatch{Category: category, Items: make([]model.TrendItem, 0, len(items))}
	for i, item := range items {
		batch.Items = append(batch.Items, model.TrendItem{
			Keyword: item.Keyword,
			Source:  item.Source,
			Rank:    i + 1,
		})
	}
	return batch
}
