package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

// MemorySessionLedger 메모리 기반의 SessionLedger 구현체입니다.
// 프로세스 종료 시 기록이 사라지므로 테스트와 일회성 실행 용도로 사용됩니다.
type MemorySessionLedger struct {
	mu       sync.RWMutex
	sessions map[contract.SessionID]*contract.IngestionSession

	// order 생성 순서를 유지하여 LatestSession 조회에 사용합니다.
	order []contract.SessionID

	idgen sessionIDGenerator

	// now 테스트에서 시각을 고정할 수 있도록 주입 가능한 시계입니다.
	now func() time.Time
}

var _ contract.SessionLedger = (*MemorySessionLedger)(nil)

// NewMemorySessionLedger 새로운 메모리 기반 세션 원장을 생성합니다.
func NewMemorySessionLedger() *MemorySessionLedger {
	return &MemorySessionLedger{
		sessions: make(map[contract.SessionID]*contract.IngestionSession),
		now:      time.Now,
	}
}

// CreateSession 새로운 세션을 Running 상태로 생성하고 즉시 조회 가능하게 만듭니다.
func (l *MemorySessionLedger) CreateSession(_ context.Context, runBy contract.RunBy) (*contract.IngestionSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	session := &contract.IngestionSession{
		ID:          l.idgen.New(),
		RunBy:       runBy,
		TriggeredAt: l.now(),
		Status:      contract.SessionStatusRunning,
		Sources:     []contract.SourceProgress{},
		Errors:      []string{},
	}

	l.sessions[session.ID] = session
	l.order = append(l.order, session.ID)

	return cloneSession(session), nil
}

// RecordSourceProgress 소스 하나의 처리 결과와 경고를 세션에 누적합니다.
// 이미 종료된 세션에는 기록할 수 없습니다.
func (l *MemorySessionLedger) RecordSourceProgress(_ context.Context, id contract.SessionID, progress contract.SourceProgress, warnings []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	session, exists := l.sessions[id]
	if !exists {
		return contract.ErrSessionNotFound
	}
	if isTerminalStatus(session.Status) {
		return NewErrSessionAlreadyFinalized(id)
	}

	session.Sources = append(session.Sources, progress)
	session.Errors = append(session.Errors, warnings...)

	return nil
}

// FinalizeSession 세션을 터미널 상태로 전이시키고 완료 시각을 기록합니다.
func (l *MemorySessionLedger) FinalizeSession(_ context.Context, id contract.SessionID, status contract.SessionStatus, errs []string) error {
	if !isTerminalStatus(status) {
		return NewErrInvalidTerminalStatus(status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	session, exists := l.sessions[id]
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

	return nil
}

// FindSession ID로 세션을 조회합니다. 없으면 contract.ErrSessionNotFound를 반환합니다.
func (l *MemorySessionLedger) FindSession(_ context.Context, id contract.SessionID) (*contract.IngestionSession, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	session, exists := l.sessions[id]
	if !exists {
		return nil, contract.ErrSessionNotFound
	}

	return cloneSession(session), nil
}

// LatestSession 가장 최근에 생성된 세션을 조회합니다. 없으면 contract.ErrSessionNotFound를 반환합니다.
func (l *MemorySessionLedger) LatestSession(_ context.Context) (*contract.IngestionSession, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.order) == 0 {
		return nil, contract.ErrSessionNotFound
	}

	return cloneSession(l.sessions[l.order[len(l.order)-1]]), nil
}

// cloneSession 호출자가 원장 내부 상태를 변경하지 못하도록 세션의 깊은 복사본을 만듭니다.
func cloneSession(session *contract.IngestionSession) *contract.IngestionSession {
	cloned := *session

	cloned.Sources = make([]contract.SourceProgress, len(session.Sources))
	copy(cloned.Sources, session.Sources)

	cloned.Errors = make([]string, len(session.Errors))
	copy(cloned.Errors, session.Errors)

	if session.CompletedAt != nil {
		completedAt := *session.CompletedAt
		cloned.CompletedAt = &completedAt
	}

	return &cloned
}
