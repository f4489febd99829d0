package contract

import (
	"time"
)

// SourceID 업스트림 매물 소스(피드)의 식별자입니다.
type SourceID string

// Coordinates 매물의 위경도 좌표입니다.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Listing 관측 시점의 매물 한 건에 대한 정규화된 스냅샷입니다.
//
// (SourceID, ExternalID) 쌍이 자연키이며, 내부 대리키(ID)는 최초 저장 시점에
// 저장소가 부여합니다. 가격은 통화 최소 단위가 아닌 정수 통화 단위(예: EUR 기준 1 = 1유로)입니다.
type Listing struct {
	// 식별자
	ID         int64    `json:"id"`          // 내부 대리키 (저장 전: 0)
	SourceID   SourceID `json:"source_id"`   // 수집 소스 식별자
	ExternalID string   `json:"external_id"` // 업스트림이 부여한 매물 고유 ID

	// 상업 정보
	Price        int64    `json:"price"`          // 정수 통화 단위 가격
	Currency     string   `json:"currency"`       // 통화 코드 (EUR, BGN 등)
	PricePerArea *float64 `json:"price_per_area"` // 면적당 가격 (price/area에서 재산출, 산출 불가 시 nil)

	// 물리 정보
	Area        *float64 `json:"area"`         // 면적 (m²)
	Rooms       *int     `json:"rooms"`        // 방 개수
	Floor       *int     `json:"floor"`        // 층
	TotalFloors *int     `json:"total_floors"` // 전체 층수

	// 위치 정보
	City        string       `json:"city"`
	Quarter     string       `json:"quarter,omitempty"` // 구역/동네 (없을 수 있음)
	FullAddress string       `json:"full_address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// 표시 정보
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`

	// 마케팅 플래그 (알림 우선순위에만 영향, 정합성과는 무관)
	IsTopOffer bool `json:"is_top_offer"`
	IsVipOffer bool `json:"is_vip_offer"`

	// 생명주기
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	IsActive    bool      `json:"is_active"`
}

// Key 매물의 자연키를 반환합니다.
func (l *Listing) Key() ListingKey {
	return ListingKey{SourceID: l.SourceID, ExternalID: l.ExternalID}
}

// ListingKey (SourceID, ExternalID) 자연키입니다.
type ListingKey struct {
	SourceID   SourceID
	ExternalID string
}

// RawRecord 업스트림에서 수집된 비정형 원본 레코드입니다.
//
// Normalizer가 강타입 Listing으로 변환하는 유일한 경계이며,
// 그 외의 컴포넌트는 RawRecord를 직접 다루지 않습니다.
type RawRecord map[string]any
