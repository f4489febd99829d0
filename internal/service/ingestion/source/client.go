// Package source 업스트림 매물 소스에서 목록 페이지 하나를 가져와 원시 레코드로
// 변환하는 소스 클라이언트를 제공합니다.
//
// 이 계층은 재시도를 수행하지 않습니다. 페이지 단위 실패는 에러로 반환되며,
// 경고 처리 및 계속 진행 여부는 상위의 페이지 추출기가 결정합니다.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// component 소스 클라이언트의 로깅용 컴포넌트 이름
const component = "ingestion.source"

// defaultMaxBodySize HTTP 응답 본문의 최대 읽기 크기입니다. (10MB)
// 이 값을 초과하는 응답은 파싱 무결성을 보장할 수 없으므로 에러로 처리됩니다.
const defaultMaxBodySize = 10 * 1024 * 1024

// Page 목록 페이지 하나의 파싱 결과입니다.
type Page struct {
	// Records 페이지에서 추출된 원시 레코드 목록 (정규화 전 단계)
	Records []contract.RawRecord

	// TotalPages 업스트림이 보고한 전체 페이지 수 (보고하지 않는 형식이면 0)
	TotalPages int
}

// PageFetcher 검색 URL과 페이지 번호로 목록 페이지 하나를 가져오는 계약입니다.
type PageFetcher interface {
	FetchPage(ctx context.Context, searchURL string, page int) (*Page, error)
}

// Client 설정된 형식(json/html)에 따라 업스트림 목록 페이지를 가져와 파싱하는 소스 클라이언트입니다.
type Client struct {
	id       contract.SourceID
	format   Format
	settings Settings

	fetcher     Fetcher
	maxBodySize int64
}

var _ PageFetcher = (*Client)(nil)

// NewClient 새로운 소스 클라이언트를 생성합니다.
// data는 소스별 자유 형식 설정이며, Settings로 디코딩할 수 없으면 에러를 반환합니다.
func NewClient(id contract.SourceID, format string, data map[string]any, fetcher Fetcher) (*Client, error) {
	if fetcher == nil {
		return nil, apperrors.New(apperrors.Internal, "Fetcher는 필수입니다")
	}

	f := Format(format)
	switch f {
	case FormatJSON, FormatHTML:
	default:
		return nil, apperrors.New(apperrors.InvalidInput, fmt.Sprintf("지원하지 않는 소스 형식입니다: '%s'", format))
	}

	settings, err := newSettings(data)
	if err != nil {
		return nil, err
	}

	return &Client{
		id:          id,
		format:      f,
		settings:    settings,
		fetcher:     fetcher,
		maxBodySize: defaultMaxBodySize,
	}, nil
}

// FetchPage 검색 URL의 지정된 페이지를 가져와 원시 레코드 목록으로 파싱합니다.
//
// 업스트림이 404를 반환하면 ErrPageNotFound를, 그 외 4xx/5xx 상태 코드는
// Unavailable 에러를 반환합니다. 타임아웃을 포함한 네트워크 오류는 ExecutionFailed로
// 래핑되며, 호출자는 모든 에러를 동일하게 페이지 단위 실패로 처리할 수 있습니다.
func (c *Client) FetchPage(ctx context.Context, searchURL string, page int) (*Page, error) {
	pageURL, err := c.buildPageURL(searchURL, page)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("검색 URL이 올바르지 않습니다: '%s'", searchURL))
	}

	logger := applog.WithComponentAndFields(component, applog.Fields{
		"source_id": c.id,
		"page":      page,
	})

	resp, err := Get(ctx, c.fetcher, pageURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ExecutionFailed, fmt.Sprintf("페이지 요청에 실패했습니다: '%s'", pageURL))
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPageNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.New(apperrors.Unavailable, fmt.Sprintf("업스트림이 비정상 상태 코드를 반환했습니다: %d (%s)", resp.StatusCode, pageURL))
	}

	// 응답 본문은 크기 제한을 두고 메모리로 읽어들입니다.
	// 제한 초과 여부를 판별하기 위해 1바이트를 더 읽습니다.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ExecutionFailed, fmt.Sprintf("응답 본문 읽기에 실패했습니다: '%s'", pageURL))
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, apperrors.New(apperrors.ExecutionFailed, fmt.Sprintf("응답 본문 크기가 제한(%d바이트)을 초과했습니다: '%s'", c.maxBodySize, pageURL))
	}

	// 불가리아 업스트림은 windows-1251 등 레거시 인코딩을 사용하는 경우가 있으므로
	// 파싱 전에 본문을 UTF-8로 변환합니다.
	body, err = c.decodeBody(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "응답 본문 인코딩 변환에 실패했습니다")
	}

	var result *Page
	switch c.format {
	case FormatJSON:
		result, err = c.parseJSONPage(body)
	case FormatHTML:
		result, err = c.parseHTMLPage(body, resp.Request)
	default:
		return nil, apperrors.New(apperrors.Internal, fmt.Sprintf("지원하지 않는 소스 형식입니다: '%s'", c.format))
	}
	if err != nil {
		return nil, err
	}

	logger.WithFields(applog.Fields{
		"status_code": resp.StatusCode,
		"records":     len(result.Records),
		"total_pages": result.TotalPages,
	}).Debug("목록 페이지 수신 및 파싱 완료")

	return result, nil
}

// buildPageURL 검색 URL에 페이지 번호 쿼리 파라미터를 설정합니다.
func (c *Client) buildPageURL(searchURL string, page int) (string, error) {
	u, err := url.Parse(searchURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set(c.settings.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// decodeBody 응답 본문을 UTF-8로 변환합니다.
//
// 설정에서 인코딩이 명시된 경우 해당 인코딩을 강제 적용하고,
// 명시되지 않은 경우 Content-Type 헤더와 본문 앞부분을 기반으로 자동 감지합니다.
func (c *Client) decodeBody(body []byte, contentType string) ([]byte, error) {
	var enc encoding.Encoding

	if c.settings.Charset != "" {
		if c.settings.Charset == "utf-8" {
			return body, nil
		}
		enc = lookupCharmap(c.settings.Charset)
		if enc == nil {
			return nil, apperrors.New(apperrors.InvalidInput, fmt.Sprintf("지원하지 않는 문자 인코딩입니다: '%s'", c.settings.Charset))
		}
	} else {
		// JSON은 사실상 UTF-8 고정이므로 자동 감지를 적용하지 않습니다.
		// (감지 실패 시의 기본값 windows-1252가 멀티바이트 UTF-8 본문을 깨뜨릴 수 있음)
		if c.format == FormatJSON {
			return body, nil
		}
		enc, _, _ = charset.DetermineEncoding(body, contentType)
	}

	if enc == nil {
		return body, nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// lookupCharmap 설정 문자열로 지정 가능한 레거시 인코딩을 해석합니다.
func lookupCharmap(name string) encoding.Encoding {
	switch name {
	case "windows-1251", "cp1251":
		return charmap.Windows1251
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	case "iso-8859-5":
		return charmap.ISO8859_5
	case "koi8-r":
		return charmap.KOI8R
	default:
		return nil
	}
}
