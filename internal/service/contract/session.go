package contract

import (
	"time"
)

// SessionID 수집 사이클(세션)의 고유 식별자입니다.
type SessionID string

// SessionStatus 수집 세션의 상태입니다.
type SessionStatus string

const (
	// SessionStatusRunning 사이클 실행 중
	SessionStatusRunning SessionStatus = "running"

	// SessionStatusCompleted 사이클 정상 완료
	SessionStatusCompleted SessionStatus = "completed"

	// SessionStatusFailed 사이클 실패 (취소 포함)
	SessionStatusFailed SessionStatus = "failed"
)

// RunBy 사이클 실행 주체입니다.
type RunBy string

const (
	// RunByScheduler 스케줄러의 정기 트리거에 의한 실행
	RunByScheduler RunBy = "scheduler"

	// RunByUser 운영자의 수동 요청(API 등)에 의한 실행
	RunByUser RunBy = "user"
)

// SourceProgress 한 세션 내에서 단일 소스의 처리 결과 카운터입니다.
// 세션 내에서 카운터는 단조 증가하며 감소하지 않습니다.
type SourceProgress struct {
	SourceID             SourceID `json:"source_id"`
	PagesProcessed       int      `json:"pages_processed"`
	ListingsSeen         int      `json:"listings_seen"`
	ListingsNew          int      `json:"listings_new"`
	ListingsPriceChanged int      `json:"listings_price_changed"`
	ErrorsCount          int      `json:"errors_count"`
}

// IngestionSession 스케줄러가 트리거한 수집 사이클 1회의 기록입니다.
//
// 사이클 시작 시점에 Running 상태로 생성되어 외부 관측자가 장기 실행 여부를
// 확인할 수 있으며, 종료 시점에 Finalize를 통해서만 터미널 상태로 전이됩니다.
// 세션 레코드는 엔진에 의해 삭제되지 않습니다.
type IngestionSession struct {
	ID          SessionID     `json:"id"`
	RunBy       RunBy         `json:"run_by"`
	TriggeredAt time.Time     `json:"triggered_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"` // 실행 중에는 nil
	Status      SessionStatus `json:"status"`

	// Sources 소스별 처리 카운터 (처리 완료된 소스부터 순차 기록)
	Sources []SourceProgress `json:"sources"`

	// Errors 사이클 중 수집된 비치명적 경고 목록입니다.
	// 비어 있다고 해서 성공을 의미하지 않습니다 (Status가 기준).
	Errors []string `json:"errors"`
}

// TotalListingsSeen 세션에서 관측된 전체 매물 수를 반환합니다.
func (s *IngestionSession) TotalListingsSeen() int {
	total := 0
	for _, sp := range s.Sources {
		total += sp.ListingsSeen
	}
	return total
}

// TotalChanges 세션에서 감지된 전체 변경(신규+가격변동) 수를 반환합니다.
func (s *IngestionSession) TotalChanges() int {
	total := 0
	for _, sp := range s.Sources {
		total += sp.ListingsNew + sp.ListingsPriceChanged
	}
	return total
}
