package source

import (
	"fmt"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/tidwall/gjson"
)

// parseJSONPage JSON 형식의 목록 페이지 응답을 파싱합니다.
//
// 레코드 배열과 전체 페이지 수의 위치는 Settings의 gjson 경로로 지정됩니다.
// 전체 페이지 수 필드가 없는 응답은 TotalPages=0(미보고)으로 처리됩니다.
func (c *Client) parseJSONPage(body []byte) (*Page, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.New(apperrors.ParsingFailed, "응답 본문이 유효한 JSON 형식이 아닙니다")
	}

	root := gjson.ParseBytes(body)

	recordsResult := root.Get(c.settings.RecordsPath)
	if !recordsResult.Exists() {
		return nil, apperrors.New(apperrors.ParsingFailed, fmt.Sprintf("JSON 응답에서 레코드 배열을 찾을 수 없습니다 (경로: '%s')", c.settings.RecordsPath))
	}
	if !recordsResult.IsArray() {
		return nil, apperrors.New(apperrors.ParsingFailed, fmt.Sprintf("레코드 경로('%s')의 값이 배열이 아닙니다", c.settings.RecordsPath))
	}

	elements := recordsResult.Array()
	records := make([]contract.RawRecord, 0, len(elements))
	for _, element := range elements {
		// 배열 원소가 객체가 아닌 경우는 개별 레코드 단위로 건너뜁니다.
		// (정규화 단계의 필수 필드 검증에서 어차피 탈락하므로 여기서 전체를 실패시키지 않음)
		value, ok := element.Value().(map[string]any)
		if !ok {
			continue
		}
		records = append(records, contract.RawRecord(value))
	}

	totalPages := 0
	if totalResult := root.Get(c.settings.TotalPagesPath); totalResult.Exists() {
		totalPages = int(totalResult.Int())
		if totalPages < 0 {
			totalPages = 0
		}
	}

	return &Page{
		Records:    records,
		TotalPages: totalPages,
	}, nil
}
