package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"trend-go/pkg/model"
)

const (
	groundingEmpty  = "네이버 검색량 데이터 없음."
	groundingFailed = "네이버 검색량 데이터 조회 실패."
)

// Grounding summarises a yearly series for the explainer: the window, the
// peak and the most recent point. The first maximum wins a tie.
func Grounding(points []model.TimeSeriesPoint, err error) string {
	if err != nil {
		return groundingFailed
	}
	if len(points) == 0 {
		return groundingEmpty
	}

	peak := points[0]
	for _, p := range points[1:] {
		if p.Ratio > peak.Ratio {
			peak = p
		}
	}
	first, recent := points[0], points[len(points)-1]

	return fmt.Sprintf("네이버 검색량 추이 (1년): %s~%s. 최고점: %s (%s). 최근: %s (%s).",
		first.Date, recent.Date, peak.Date, formatRatio(peak.Ratio), recent.Date, formatRatio(recent.Ratio))
}

// formatRatio always keeps a decimal point: 100 → "100.0", 15.3 → "15.3".
func formatRatio(ratio float64) string {
	s := strconv.FormatFloat(ratio, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
