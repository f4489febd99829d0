// Package strutil 문자열 처리를 위한 유틸리티 함수들을 제공합니다.
package strutil

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	// HTML 태그 제거에 사용하는 정규식
	// < 다음에 영문자가 오는 경우만 태그로 인식하여 수학 기호(<) 오탐지를 방지합니다.
	// 예: "3 < 5"는 유지되고, "<br>"이나 "<b>"는 제거됩니다.
	htmlTagRegexp = regexp.MustCompile(`</?([a-zA-Z]+)[^>]*>`)
)

// NormalizeSpaces 문자열의 앞뒤 공백을 제거하고 연속된 공백을 하나로 축약합니다.
// 예: "  гр. София,   Лозенец " -> "гр. София, Лозенец"
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

// StripHTML 문자열에서 HTML 태그를 제거하고 HTML 엔티티를 디코딩합니다.
// 업스트림이 검색어 강조 등을 위해 삽입한 태그(<b> 등)를 정리할 때 사용합니다.
func StripHTML(s string) string {
	stripped := htmlTagRegexp.ReplaceAllString(s, "")
	return html.UnescapeString(stripped)
}

// SplitClean 문자열을 구분자로 분리한 후 각 요소의 공백을 제거하고 빈 요소를 걸러냅니다.
func SplitClean(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// Integer 모든 정수 타입을 포괄하는 제네릭 인터페이스
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// FormatCommas 숫자를 천 단위 구분 기호(,)가 포함된 문자열로 변환합니다.
// 예: 1234567 -> "1,234,567"
func FormatCommas[T Integer](num T) string {
	str := fmt.Sprintf("%d", num)

	// 음수 처리 (문자열 기반으로 판단)
	negative := strings.HasPrefix(str, "-")
	if negative {
		str = str[1:]
	}

	var sb strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			sb.WriteRune(',')
		}
		sb.WriteRune(digit)
	}

	if negative {
		return "-" + sb.String()
	}
	return sb.String()
}

// ContainsFold 문자열 s가 substr을 대소문자 구분 없이 포함하는지 검사합니다.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	if len(s) < len(substr) {
		return false
	}

	// 문자열 s를 range로 순회하면 각 Rune의 시작 바이트 인덱스(i)를 얻을 수 있으므로,
	// 유효한 문자 경계에서만 strings.EqualFold 비교를 수행합니다.
	// 이 방식은 대소문자 변환 후에도 바이트 길이가 동일하다는 일반적인 가정에 의존합니다.
	for i := range s {
		if i+len(substr) > len(s) {
			break
		}
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return true
		}
	}
	return false
}

// EqualFold strings.EqualFold의 별칭입니다. 도시명 비교 등 완전 일치 검사에 사용합니다.
func EqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
