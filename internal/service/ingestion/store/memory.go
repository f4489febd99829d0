// Package store 영속화된 매물 상태에 대한 ListingStore 구현체들을 제공합니다.
//
// 메모리 구현은 테스트와 일회성 실행용, 파일 구현은 단일 노드 운영용,
// PostgreSQL 구현은 외부 애플리케이션과 저장소를 공유하는 운영용입니다.
package store

import (
	"context"
	"sync"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

// MemoryListingStore 메모리 기반의 ListingStore 구현체입니다.
// 프로세스 종료 시 모든 데이터가 사라지므로 테스트 용도로 주로 사용됩니다.
type MemoryListingStore struct {
	mu       sync.RWMutex
	listings map[contract.ListingKey]*contract.Listing
	nextID   int64
}

// 컴파일 타임에 인터페이스 구현 여부를 검증합니다.
var _ contract.ListingStore = (*MemoryListingStore)(nil)

// NewMemoryListingStore 새로운 메모리 기반 매물 저장소를 생성합니다.
func NewMemoryListingStore() *MemoryListingStore {
	return &MemoryListingStore{
		listings: make(map[contract.ListingKey]*contract.Listing),
		nextID:   1,
	}
}

// FindListing 자연키로 매물을 조회합니다. 없으면 contract.ErrListingNotFound를 반환합니다.
func (s *MemoryListingStore) FindListing(_ context.Context, sourceID contract.SourceID, externalID string) (*contract.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, exists := s.listings[contract.ListingKey{SourceID: sourceID, ExternalID: externalID}]
	if !exists {
		return nil, contract.ErrListingNotFound
	}

	// 호출자가 내부 상태를 변경하지 못하도록 복사본을 반환합니다.
	cloned := *listing
	return &cloned, nil
}

// UpsertListing 자연키 기준으로 매물을 삽입 또는 갱신합니다.
// 신규 삽입 시 listing.ID에 대리키가 채워집니다.
func (s *MemoryListingStore) UpsertListing(_ context.Context, listing *contract.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := listing.Key()
	if existing, exists := s.listings[key]; exists {
		listing.ID = existing.ID
	} else {
		listing.ID = s.nextID
		s.nextID++
	}

	cloned := *listing
	s.listings[key] = &cloned

	return nil
}

// Count 저장된 매물 수를 반환합니다. (테스트 검증용)
func (s *MemoryListingStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}
