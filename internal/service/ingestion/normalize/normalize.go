// Package normalize 업스트림의 느슨한 원시 레코드를 정준(canonical) Listing 엔티티로
// 변환하는 정규화기를 제공합니다.
//
// 정규화기는 타입이 없는 원시 레코드가 강타입 도메인 모델로 바뀌는 유일한 경계입니다.
// 순수 함수이며 I/O를 수행하지 않습니다. 필수 필드가 결여된 레코드는 에러로 반환되고,
// 경고 처리 여부는 호출자(페이지 추출기)가 결정합니다.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/strutil"
)

var (
	// listingIDPatterns 매물 상세 URL에서 업스트림 고유 ID를 추출하기 위한 패턴 목록입니다.
	// (예: /sales/villa-in-sozopol-12345-en.html -> 12345, /offer-98765.html -> 98765)
	listingIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`-(\d+)-`),
		regexp.MustCompile(`-(\d+)\.`),
	}

	// nonDigitRegex 가격/면적 문자열에서 숫자 이외의 문자를 제거하기 위한 패턴입니다.
	nonDigitRegex = regexp.MustCompile(`[^\d]`)
)

// DefaultCurrency 업스트림이 통화를 명시하지 않은 경우 적용되는 기본 통화입니다.
const DefaultCurrency = "EUR"

// Normalize 원시 레코드 하나를 Listing으로 변환합니다.
//
// 필수 필드(externalId, price, city) 중 하나라도 확보할 수 없으면 InvalidInput 에러를
// 반환하며, 이 레코드는 절대 영속화되어서는 안 됩니다. firstSeenAt/lastSeenAt은
// 이 단계에서 설정하지 않습니다. (영속 상태와의 비교 결과에 따라 변경 감지기가 설정)
func Normalize(sourceID contract.SourceID, record contract.RawRecord) (*contract.Listing, error) {
	if len(record) == 0 {
		return nil, apperrors.New(apperrors.InvalidInput, "원시 레코드가 비어 있습니다")
	}

	listingURL := firstString(record, "url", "link", "href")

	externalID := firstString(record, "external_id", "id")
	if externalID == "" {
		externalID = externalIDFromURL(listingURL)
	}
	if externalID == "" {
		return nil, apperrors.New(apperrors.InvalidInput, fmt.Sprintf("업스트림 고유 ID(externalId)를 확보할 수 없습니다 (url: '%s')", listingURL))
	}

	price, currency, err := parsePrice(record)
	if err != nil {
		return nil, err
	}

	city := firstString(record, "city", "town")
	quarter := firstString(record, "quarter", "district", "neighbourhood")
	fullAddress := firstString(record, "full_address", "address", "location")
	if city == "" {
		city = cityFromAddress(fullAddress)
	}
	if city == "" {
		return nil, apperrors.New(apperrors.InvalidInput, fmt.Sprintf("도시(city) 필드를 확보할 수 없습니다 (externalId: '%s')", externalID))
	}
	if fullAddress == "" {
		fullAddress = city
	}

	listing := &contract.Listing{
		SourceID:     sourceID,
		ExternalID:   externalID,
		Price:        price,
		Currency:     currency,
		City:         city,
		Quarter:      quarter,
		FullAddress:  fullAddress,
		Title:        strutil.NormalizeSpaces(strutil.StripHTML(firstString(record, "title", "name"))),
		URL:          listingURL,
		ThumbnailURL: firstString(record, "thumbnail_url", "thumbnail", "image", "img"),
		IsTopOffer:   parseBool(record, "is_top_offer", "top_offer", "top"),
		IsVipOffer:   parseBool(record, "is_vip_offer", "vip_offer", "vip"),
		IsActive:     true,
	}

	// 면적은 선택 필드이며, 0 이하의 값은 결측으로 간주합니다.
	if area, ok := parseFloat(record, "area", "area_m2", "square", "size"); ok && area > 0 {
		listing.Area = &area
	}
	if rooms, ok := parseInt(record, "rooms", "bedrooms"); ok && rooms > 0 {
		listing.Rooms = &rooms
	}
	if floor, ok := parseInt(record, "floor"); ok {
		listing.Floor = &floor
	}
	if totalFloors, ok := parseInt(record, "total_floors", "floors"); ok && totalFloors > 0 {
		listing.TotalFloors = &totalFloors
	}

	if lat, okLat := parseFloat(record, "lat", "latitude"); okLat {
		if lon, okLon := parseFloat(record, "lon", "lng", "longitude"); okLon {
			listing.Coordinates = &contract.Coordinates{Lat: lat, Lon: lon}
		}
	}

	// 단위 면적당 가격은 업스트림 값을 신뢰하지 않고 항상 price/area로 재계산합니다.
	// (업스트림별로 계산 기준이 제각각이므로 내부 일관성을 우선함)
	if listing.Area != nil && *listing.Area > 0 {
		perArea := float64(listing.Price) / *listing.Area
		listing.PricePerArea = &perArea
	}

	return listing, nil
}

// externalIDFromURL 매물 상세 URL에서 업스트림 고유 ID를 추출합니다. 실패 시 빈 문자열을 반환합니다.
func externalIDFromURL(listingURL string) string {
	if listingURL == "" {
		return ""
	}
	for _, pattern := range listingIDPatterns {
		if match := pattern.FindStringSubmatch(listingURL); match != nil {
			return match[1]
		}
	}
	return ""
}

// parsePrice 레코드에서 가격과 통화를 해석합니다.
//
// 가격은 숫자 타입일 수도, "1 250 000 EUR" 같은 표시용 문자열일 수도 있습니다.
// 음수 가격은 허용하지 않습니다.
func parsePrice(record contract.RawRecord) (int64, string, error) {
	raw, exists := firstValue(record, "price", "price_eur", "amount")
	if !exists {
		return 0, "", apperrors.New(apperrors.InvalidInput, "가격(price) 필드가 존재하지 않습니다")
	}

	currency := strings.ToUpper(firstString(record, "currency"))

	var price int64
	switch v := raw.(type) {
	case float64:
		price = int64(v)
	case int:
		price = int64(v)
	case int64:
		price = v
	case string:
		parsed, parsedCurrency, err := parsePriceString(v)
		if err != nil {
			return 0, "", err
		}
		price = parsed
		if currency == "" {
			currency = parsedCurrency
		}
	default:
		return 0, "", apperrors.New(apperrors.InvalidInput, fmt.Sprintf("가격(price) 필드의 타입을 해석할 수 없습니다: %T", raw))
	}

	if price < 0 {
		return 0, "", apperrors.New(apperrors.InvalidInput, fmt.Sprintf("가격(price)은 음수일 수 없습니다: %d", price))
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	return price, currency, nil
}

// parsePriceString "1 250 000 EUR", "€250,000" 같은 표시용 가격 문자열을 해석합니다.
func parsePriceString(s string) (int64, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", apperrors.New(apperrors.InvalidInput, "가격(price) 필드가 비어 있습니다")
	}

	digits := nonDigitRegex.ReplaceAllString(s, "")
	if digits == "" {
		return 0, "", apperrors.New(apperrors.InvalidInput, fmt.Sprintf("가격 문자열에서 숫자를 찾을 수 없습니다: '%s'", s))
	}

	price, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, "", apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("가격 문자열 해석에 실패했습니다: '%s'", s))
	}

	return price, currencyFromString(s), nil
}

// currencyFromString 가격 문자열에 포함된 통화 표기를 해석합니다. 실패 시 빈 문자열을 반환합니다.
func currencyFromString(s string) string {
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(s, "€") || strings.Contains(upper, "EUR"):
		return "EUR"
	case strings.Contains(s, "лв") || strings.Contains(upper, "BGN"):
		return "BGN"
	case strings.Contains(s, "$") || strings.Contains(upper, "USD"):
		return "USD"
	case strings.Contains(s, "£") || strings.Contains(upper, "GBP"):
		return "GBP"
	default:
		return ""
	}
}

// cityFromAddress "Sozopol, Burgas Region" 같은 주소 문자열에서 도시명을 추출합니다.
func cityFromAddress(address string) string {
	if address == "" {
		return ""
	}
	parts := strutil.SplitClean(address, ",")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// --------------------------------------------------------------------------------
// 원시 레코드 필드 접근 헬퍼
// --------------------------------------------------------------------------------

func firstValue(record contract.RawRecord, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, exists := record[key]; exists && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(record contract.RawRecord, keys ...string) string {
	v, exists := firstValue(record, keys...)
	if !exists {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}

func parseFloat(record contract.RawRecord, keys ...string) (float64, bool) {
	v, exists := firstValue(record, keys...)
	if !exists {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		// "120 m2" 같은 단위 표기와 "1,250.5" 같은 천 단위 구분자를 허용합니다.
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if idx := strings.IndexFunc(s, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.' && r != '-'
		}); idx >= 0 {
			s = strings.TrimSpace(s[:idx])
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func parseInt(record contract.RawRecord, keys ...string) (int, bool) {
	f, ok := parseFloat(record, keys...)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func parseBool(record contract.RawRecord, keys ...string) bool {
	v, exists := firstValue(record, keys...)
	if !exists {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}
