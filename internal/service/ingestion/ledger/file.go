package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/fsutil"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/concurrency"
)

// sessionsFilename 세션 원장 파일의 이름입니다.
const sessionsFilename = "sessions.json"

// sessionsTempFilePattern 세션 원장 저장 시 사용되는 임시 파일의 이름 패턴입니다.
const sessionsTempFilePattern = "session-ledger-*.tmp"

// FileSessionLedger 파일 시스템 기반의 SessionLedger 구현체입니다.
//
// 모든 세션을 생성 순서대로 "sessions.json" 파일 하나에 저장하며,
// 매 기록마다 파일 전체를 원자적으로 다시 씁니다. 세션 레코드는 사이클당
// 1건에 소스별 카운터 몇 개 수준이므로 파일 전체 재작성 비용은 무시할 수 있습니다.
type FileSessionLedger struct {
	filename string

	mu       sync.Mutex
	sessions []*contract.IngestionSession
	index    map[contract.SessionID]*contract.IngestionSession
	loaded   bool

	locks *concurrency.KeyedMutex[string]
	idgen sessionIDGenerator

	now func() time.Time
}

var _ contract.SessionLedger = (*FileSessionLedger)(nil)

// NewFileSessionLedger 파일 시스템 기반의 세션 원장을 생성합니다.
// dir이 빈 문자열이면 기본 디렉토리("data")를 사용합니다.
func NewFileSessionLedger(dir string) (*FileSessionLedger, error) {
	if dir == "" {
		dir = "data"
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, NewErrLedgerWriteFailed(err)
	}

	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, NewErrLedgerWriteFailed(err)
	}

	return &FileSessionLedger{
		filename: filepath.Join(absDir, sessionsFilename),
		index:    make(map[contract.SessionID]*contract.IngestionSession),
		locks:    concurrency.NewKeyedMutex[string](),
		now:      time.Now,
	}, nil
}

// CreateSession 새로운 세션을 Running 상태로 생성하고 즉시 파일에 기록합니다.
func (l *FileSessionLedger) CreateSession(_ context.Context, runBy contract.RunBy) (*contract.IngestionSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(); err != nil {
		return nil, err
	}

	session := &contract.IngestionSession{
		ID:          l.idgen.New(),
		RunBy:       runBy,
		TriggeredAt: l.now(),
		Status:      contract.SessionStatusRunning,
		Sources:     []contract.SourceProgress{},
		Errors:      []string{},
	}

	l.sessions = append(l.sessions, session)
	l.index[session.ID] = session

	if err := l.persistLocked(); err != nil {
		return nil, err
	}

	return cloneSession(session), nil
}

// RecordSourceProgress 소스 하나의 처리 결과와 경고를 세션에 누적하고 파일에 반영합니다.
func (l *FileSessionLedger) RecordSourceProgress(_ context.Context, id contract.SessionID, progress contract.SourceProgress, warnings []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(); err != nil {
		return err
	}

	session, exists := l.index[id]
	if !exists {
		return contract.ErrSessionNotFound
	}
	if isTerminalStatus(session.Status) {
		return NewErrSessionAlreadyFinalized(id)
	}

	session.Sources = append(session.Sources, progress)
	session.Errors = append(session.Errors, warnings...)

	return l.persistLocked()
}

// FinalizeSession 세션을 터미널 상태로 전이시키고 완료 시각을 기록합니다.
func (l *FileSessionLedger) FinalizeSession(_ context.Context, id contract.SessionID, status contract.SessionStatus, errs []string) error {
	if !isTerminalStatus(status) {
		return NewErrInvalidTerminalStatus(status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(); err != nil {
		return err
	}

	session, exists := l.index[id]
	if !exists {
		return contract.ErrSessionNotFound
	}
	if isTerminalStatus(session.Status) {
		return NewErrSessionAlreadyFinalized(id)
	}

	completedAt := l.now()
	session.Status = status
	session.CompletedAt = &completedAt
	session.Errors = append(session.Errors, errs...)

	return l.persistLocked()
}

// FindSession ID로 세션을 조회합니다. 없으면 contract.ErrSessionNotFound를 반환합니다.
func (l *FileSessionLedger) FindSession(_ context.Context, id contract.SessionID) (*contract.IngestionSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(); err != nil {
		return nil, err
	}

	session, exists := l.index[id]
	if !exists {
		return nil, contract.ErrSessionNotFound
	}

	return cloneSession(session), nil
}

// LatestSession 가장 최근에 생성된 세션을 조회합니다. 없으면 contract.ErrSessionNotFound를 반환합니다.
func (l *FileSessionLedger) LatestSession(_ context.Context) (*contract.IngestionSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(); err != nil {
		return nil, err
	}

	if len(l.sessions) == 0 {
		return nil, contract.ErrSessionNotFound
	}

	return cloneSession(l.sessions[len(l.sessions)-1]), nil
}

// loadLocked 원장 파일을 최초 접근 시 한 번만 메모리에 적재합니다.
// 호출 전 l.mu가 잠겨 있어야 합니다.
func (l *FileSessionLedger) loadLocked() error {
	if l.loaded {
		return nil
	}

	data, err := os.ReadFile(l.filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return NewErrLedgerReadFailed(err)
		}
		// 첫 실행: 빈 원장으로 시작합니다.
		l.loaded = true
		return nil
	}

	var sessions []*contract.IngestionSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return NewErrLedgerReadFailed(err)
	}

	l.sessions = sessions
	for _, session := range sessions {
		l.index[session.ID] = session
	}
	l.loaded = true

	return nil
}

// persistLocked 원장 전체를 파일에 원자적으로 저장합니다.
func (l *FileSessionLedger) persistLocked() error {
	data, err := json.MarshalIndent(l.sessions, "", "\t")
	if err != nil {
		return NewErrLedgerWriteFailed(err)
	}

	return l.locks.WithLock(strings.ToLower(l.filename), func() error {
		if err := fsutil.WriteAtomic(l.filename, data, sessionsTempFilePattern); err != nil {
			return NewErrLedgerWriteFailed(err)
		}
		return nil
	})
}
