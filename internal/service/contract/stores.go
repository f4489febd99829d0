package contract

import (
	"context"
	"errors"
)

var (
	// ErrListingNotFound 자연키에 해당하는 매물이 저장소에 존재하지 않음을 나타내는 센티널 에러입니다.
	ErrListingNotFound = errors.New("저장된 매물을 찾을 수 없습니다")

	// ErrSessionNotFound 지정된 ID의 수집 세션이 존재하지 않음을 나타내는 센티널 에러입니다.
	ErrSessionNotFound = errors.New("수집 세션을 찾을 수 없습니다")
)

// ListingStore 영속화된 매물 상태에 대한 읽기/조건부 쓰기 계약입니다.
//
// 변경 감지기는 이 인터페이스를 통해서만 영속 상태에 접근하며, 삭제는 수행하지 않습니다.
// Upsert는 매물 단위로 원자적이어야 합니다 (사이클 단위 트랜잭션은 요구하지 않음).
type ListingStore interface {
	// FindListing 자연키로 매물을 조회합니다. 없으면 ErrListingNotFound를 반환합니다.
	FindListing(ctx context.Context, sourceID SourceID, externalID string) (*Listing, error)

	// UpsertListing 자연키 기준으로 매물을 삽입 또는 갱신합니다.
	// 신규 삽입 시 listing.ID에 대리키가 채워집니다.
	UpsertListing(ctx context.Context, listing *Listing) error
}

// SessionLedger 수집 사이클의 생명주기를 기록하는 원장 계약입니다.
//
// 생성 후 갱신만 가능하며(append-then-mutate), 삭제 연산은 제공하지 않습니다.
// 사이클이 실패로 끝나더라도 그때까지 기록된 소스별 카운터는 조회 가능해야 합니다.
type SessionLedger interface {
	// CreateSession 새로운 세션을 Running 상태로 생성하고 즉시 조회 가능하게 만듭니다.
	CreateSession(ctx context.Context, runBy RunBy) (*IngestionSession, error)

	// RecordSourceProgress 소스 하나의 처리 결과와 그 과정에서 수집된 경고를 세션에 누적합니다.
	RecordSourceProgress(ctx context.Context, id SessionID, progress SourceProgress, warnings []string) error

	// FinalizeSession 세션을 터미널 상태로 전이시키고 완료 시각을 기록합니다.
	// Finalize만이 CompletedAt과 터미널 상태를 설정할 수 있습니다.
	FinalizeSession(ctx context.Context, id SessionID, status SessionStatus, errs []string) error

	// FindSession ID로 세션을 조회합니다. 없으면 ErrSessionNotFound를 반환합니다.
	FindSession(ctx context.Context, id SessionID) (*IngestionSession, error)

	// LatestSession 가장 최근에 생성된 세션을 조회합니다. 없으면 ErrSessionNotFound를 반환합니다.
	LatestSession(ctx context.Context) (*IngestionSession, error)
}
