package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/fsutil"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/concurrency"
)

// defaultDataDirectory 매물 스냅샷을 저장할 기본 디렉토리 이름입니다.
const defaultDataDirectory = "data"

// tempFilePattern 임시 파일 저장 시 사용되는 임시 파일의 이름 패턴입니다.
const tempFilePattern = "listing-store-*.tmp"

// listingsSnapshot 소스 하나의 매물 상태를 담는 파일 직렬화 형식입니다.
type listingsSnapshot struct {
	NextID   int64                        `json:"next_id"`
	Listings map[string]*contract.Listing `json:"listings"` // key: externalID
}

// FileListingStore 파일 시스템 기반의 ListingStore 구현체입니다.
//
// 소스별로 "listings-{source}-{hash}.json" 파일 하나에 전체 매물 상태를 저장하며,
// 쓰기는 임시 파일 작성 후 원자적 이름 변경(rename)으로 수행되어 프로세스가
// 저장 도중 종료되어도 파일이 반파손 상태로 남지 않습니다.
//
// 매물 상태는 최초 접근 시 파일에서 적재되어 메모리에 캐시되며,
// 이후의 조회는 캐시에서, 갱신은 캐시와 파일에 함께 반영됩니다.
type FileListingStore struct {
	baseDir string

	mu        sync.Mutex
	snapshots map[contract.SourceID]*listingsSnapshot

	// locks 동일한 파일에 대한 동시 쓰기를 방지하기 위한 파일별 뮤텍스입니다.
	locks *concurrency.KeyedMutex[string]
}

var _ contract.ListingStore = (*FileListingStore)(nil)

// NewFileListingStore 파일 시스템 기반의 매물 저장소를 생성합니다.
// dir이 빈 문자열이면 기본 디렉토리("data")를 사용하며, 상대 경로는 절대 경로로 변환됩니다.
func NewFileListingStore(dir string) (*FileListingStore, error) {
	if dir == "" {
		dir = defaultDataDirectory
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, NewErrDirectoryAccessFailed(err, dir)
	}

	// 초기화 시점에 디렉토리 생성과 접근 권한을 미리 확인합니다.
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, NewErrDirectoryAccessFailed(err, absDir)
	}

	return &FileListingStore{
		baseDir:   absDir,
		snapshots: make(map[contract.SourceID]*listingsSnapshot),
		locks:     concurrency.NewKeyedMutex[string](),
	}, nil
}

// FindListing 자연키로 매물을 조회합니다. 없으면 contract.ErrListingNotFound를 반환합니다.
func (s *FileListingStore) FindListing(_ context.Context, sourceID contract.SourceID, externalID string) (*contract.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.snapshotLocked(sourceID)
	if err != nil {
		return nil, err
	}

	listing, exists := snapshot.Listings[externalID]
	if !exists {
		return nil, contract.ErrListingNotFound
	}

	cloned := *listing
	return &cloned, nil
}

// UpsertListing 자연키 기준으로 매물을 삽입 또는 갱신하고, 소스 파일 전체를 원자적으로 다시 씁니다.
func (s *FileListingStore) UpsertListing(_ context.Context, listing *contract.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.snapshotLocked(listing.SourceID)
	if err != nil {
		return err
	}

	if existing, exists := snapshot.Listings[listing.ExternalID]; exists {
		listing.ID = existing.ID
	} else {
		listing.ID = snapshot.NextID
		snapshot.NextID++
	}

	cloned := *listing
	snapshot.Listings[listing.ExternalID] = &cloned

	return s.persistLocked(listing.SourceID, snapshot)
}

// snapshotLocked 소스의 매물 스냅샷을 반환합니다. 캐시에 없으면 파일에서 적재합니다.
// 호출 전 s.mu가 잠겨 있어야 합니다.
func (s *FileListingStore) snapshotLocked(sourceID contract.SourceID) (*listingsSnapshot, error) {
	if snapshot, exists := s.snapshots[sourceID]; exists {
		return snapshot, nil
	}

	snapshot := &listingsSnapshot{
		NextID:   1,
		Listings: make(map[string]*contract.Listing),
	}

	filename := filepath.Join(s.baseDir, listingsFilename(sourceID))
	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, NewErrFileReadFailed(err)
		}
		// 첫 실행 등 파일이 아직 없는 경우: 빈 스냅샷으로 시작합니다.
	} else {
		if err := json.Unmarshal(data, snapshot); err != nil {
			return nil, NewErrJSONUnmarshalFailed(err)
		}
		if snapshot.Listings == nil {
			snapshot.Listings = make(map[string]*contract.Listing)
		}
		if snapshot.NextID < 1 {
			snapshot.NextID = 1
		}
	}

	s.snapshots[sourceID] = snapshot
	return snapshot, nil
}

// persistLocked 소스의 매물 스냅샷을 파일에 원자적으로 저장합니다.
func (s *FileListingStore) persistLocked(sourceID contract.SourceID, snapshot *listingsSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "\t")
	if err != nil {
		return NewErrJSONMarshalFailed(err)
	}

	filename := filepath.Join(s.baseDir, listingsFilename(sourceID))

	// Windows 등 대소문자를 구분하지 않는 파일 시스템을 위해 Lock 키는 소문자로 정규화합니다.
	return s.locks.WithLock(strings.ToLower(filename), func() error {
		if err := fsutil.WriteAtomic(filename, data, tempFilePattern); err != nil {
			return NewErrFileWriteFailed(err)
		}
		return nil
	})
}
