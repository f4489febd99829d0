package source

import (
	"fmt"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/maputil"
)

// Format 업스트림 페이지 응답의 형식입니다.
type Format string

const (
	// FormatJSON JSON API 형식의 목록 페이지
	FormatJSON Format = "json"

	// FormatHTML HTML 형식의 목록 페이지 (지도 AJAX 응답 등)
	FormatHTML Format = "html"
)

// Settings 소스별 자유 형식 설정(Data)에서 디코딩되는 페이지 파싱 설정입니다.
//
// 모든 필드는 선택 사항이며, 비어있는 경우 소스 형식에 맞는 기본값이 적용됩니다.
type Settings struct {
	// PageParam 페이지 번호를 전달할 쿼리 파라미터 이름 (기본값: "page")
	PageParam string `json:"page_param"`

	// RecordsPath JSON 응답에서 레코드 배열을 가리키는 gjson 경로 (기본값: "items")
	RecordsPath string `json:"records_path"`

	// TotalPagesPath JSON 응답에서 전체 페이지 수를 가리키는 gjson 경로 (기본값: "total_pages")
	TotalPagesPath string `json:"total_pages_path"`

	// LinkHost HTML 응답에서 매물 링크로 인정할 호스트 부분 문자열 (빈 값: 모든 링크 허용)
	LinkHost string `json:"link_host"`

	// Charset 응답 본문의 문자 인코딩 강제 지정 (예: "windows-1251", 빈 값: 자동 감지)
	Charset string `json:"charset"`
}

// newSettings 소스 설정의 Data 맵을 Settings로 디코딩하고 기본값을 채웁니다.
func newSettings(data map[string]any) (Settings, error) {
	var settings Settings
	if data != nil {
		decoded, err := maputil.Decode[Settings](data)
		if err != nil {
			return Settings{}, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("소스 설정(data) 디코딩에 실패했습니다: %v", data))
		}
		settings = *decoded
	}

	if settings.PageParam == "" {
		settings.PageParam = "page"
	}
	if settings.RecordsPath == "" {
		settings.RecordsPath = "items"
	}
	if settings.TotalPagesPath == "" {
		settings.TotalPagesPath = "total_pages"
	}

	return settings, nil
}
