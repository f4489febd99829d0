package source

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/strutil"
)

// parseHTMLPage HTML 형식의 목록 페이지 응답(지도 AJAX 응답 등)을 파싱합니다.
//
// 매물 링크로 보이는 모든 앵커 태그를 레코드 하나로 추출합니다.
// HTML 목록 페이지는 전체 페이지 수를 보고하지 않으므로 TotalPages는 항상 0이며,
// 페이지 순회 종료는 상위 추출기의 신규 레코드 중복 제거 로직이 담당합니다.
func (c *Client) parseHTMLPage(body []byte, req *http.Request) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "HTML 응답 파싱에 실패했습니다")
	}

	var baseURL *url.URL
	if req != nil {
		baseURL = req.URL
	}

	var records []contract.RawRecord
	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		href = normalizeListingURL(href, baseURL)
		if href == "" {
			return
		}

		// 링크 호스트 필터가 설정된 경우, 매물 상세 페이지로 연결되는 링크만 인정합니다.
		if c.settings.LinkHost != "" && !strings.Contains(href, c.settings.LinkHost) {
			return
		}

		record := contract.RawRecord{
			"url": href,
		}

		if title := anchorTitle(anchor); title != "" {
			record["title"] = title
		}
		if price := strutil.NormalizeSpaces(anchor.Find(".price").First().Text()); price != "" {
			record["price"] = price
		}
		if thumbnail, ok := anchor.Find("img[src]").First().Attr("src"); ok {
			record["thumbnail_url"] = thumbnail
		}

		// data-* 속성은 키에서 접두사를 제거하고 스네이크 케이스로 변환하여 그대로 전달합니다.
		// (예: data-price-eur -> price_eur) 해석은 정규화 단계의 책임입니다.
		for _, attr := range anchor.Nodes[0].Attr {
			if name, found := strings.CutPrefix(attr.Key, "data-"); found && attr.Val != "" {
				record[strings.ReplaceAll(name, "-", "_")] = attr.Val
			}
		}

		records = append(records, record)
	})

	return &Page{
		Records:    records,
		TotalPages: 0,
	}, nil
}

// anchorTitle 앵커에서 매물 제목으로 쓸 텍스트를 추출합니다.
// title 속성을 우선하고, 없으면 앵커 내부 텍스트를 사용합니다.
func anchorTitle(anchor *goquery.Selection) string {
	if title, ok := anchor.Attr("title"); ok {
		if title = strutil.NormalizeSpaces(title); title != "" {
			return title
		}
	}
	return strutil.NormalizeSpaces(anchor.Text())
}

// normalizeListingURL 업스트림 HTML에 흔한 이중 슬래시 등의 URL 오염을 정돈하고,
// 상대 경로를 기준 URL에 대한 절대 경로로 변환합니다.
func normalizeListingURL(href string, baseURL *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	// 프로토콜 상대 URL(//host/path)은 보존하면서 경로 내의 중복 슬래시를 제거합니다.
	if scheme, rest, found := strings.Cut(href, "://"); found {
		for strings.Contains(rest, "//") {
			rest = strings.ReplaceAll(rest, "//", "/")
		}
		href = scheme + "://" + rest
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if !parsed.IsAbs() {
		if baseURL == nil {
			return ""
		}
		parsed = baseURL.ResolveReference(parsed)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}

	return parsed.String()
}
