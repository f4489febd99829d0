package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	_ "github.com/lib/pq"
)

// PostgresSessionLedger PostgreSQL 기반의 SessionLedger 구현체입니다.
// 소스별 카운터와 경고 목록은 구조가 조회 조건으로 쓰이지 않으므로 JSONB 컬럼에 저장합니다.
type PostgresSessionLedger struct {
	db    *sql.DB
	idgen sessionIDGenerator
	now   func() time.Time
}

var _ contract.SessionLedger = (*PostgresSessionLedger)(nil)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS ingestion_sessions (
	id           TEXT PRIMARY KEY,
	run_by       TEXT        NOT NULL,
	triggered_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	status       TEXT        NOT NULL,
	sources      JSONB       NOT NULL DEFAULT '[]',
	errors       JSONB       NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_ingestion_sessions_triggered_at ON ingestion_sessions (triggered_at DESC);
`

// NewPostgresSessionLedger PostgreSQL 기반의 세션 원장을 생성합니다.
// 전달받은 연결 풀을 공유하므로 연결의 수명 관리는 호출자의 책임입니다.
func NewPostgresSessionLedger(ctx context.Context, db *sql.DB) (*PostgresSessionLedger, error) {
	ledger := &PostgresSessionLedger{db: db, now: time.Now}

	if _, err := db.ExecContext(ctx, sessionsSchema); err != nil {
		return nil, NewErrLedgerQueryFailed(err, "스키마 생성")
	}

	return ledger, nil
}

// CreateSession 새로운 세션을 Running 상태로 생성하고 즉시 조회 가능하게 만듭니다.
func (l *PostgresSessionLedger) CreateSession(ctx context.Context, runBy contract.RunBy) (*contract.IngestionSession, error) {
	session := &contract.IngestionSession{
		ID:          l.idgen.New(),
		RunBy:       runBy,
		TriggeredAt: l.now(),
		Status:      contract.SessionStatusRunning,
		Sources:     []contract.SourceProgress{},
		Errors:      []string{},
	}

	const query = `
		INSERT INTO ingestion_sessions (id, run_by, triggered_at, status, sources, errors)
		VALUES ($1, $2, $3, $4, '[]', '[]')`

	_, err := l.db.ExecContext(ctx, query,
		string(session.ID), string(session.RunBy), session.TriggeredAt, string(session.Status))
	if err != nil {
		return nil, NewErrLedgerQueryFailed(err, "세션 생성")
	}

	return session, nil
}

// RecordSourceProgress 소스 하나의 처리 결과와 경고를 세션에 누적합니다.
// JSONB 배열 연결 연산자(||)로 단일 UPDATE 안에서 원자적으로 누적됩니다.
func (l *PostgresSessionLedger) RecordSourceProgress(ctx context.Context, id contract.SessionID, progress contract.SourceProgress, warnings []string) error {
	progressRaw, err := json.Marshal(progress)
	if err != nil {
		return NewErrLedgerWriteFailed(err)
	}
	if warnings == nil {
		warnings = []string{}
	}
	warningsRaw, err := json.Marshal(warnings)
	if err != nil {
		return NewErrLedgerWriteFailed(err)
	}

	const query = `
		UPDATE ingestion_sessions
		   SET sources = sources || $2::jsonb,
		       errors  = errors  || $3::jsonb
		 WHERE id = $1 AND status = $4`

	result, err := l.db.ExecContext(ctx, query,
		string(id), progressRaw, warningsRaw, string(contract.SessionStatusRunning))
	if err != nil {
		return NewErrLedgerQueryFailed(err, "소스 진행 상황 기록")
	}

	return l.checkUpdated(ctx, result, id)
}

// FinalizeSession 세션을 터미널 상태로 전이시키고 완료 시각을 기록합니다.
func (l *PostgresSessionLedger) FinalizeSession(ctx context.Context, id contract.SessionID, status contract.SessionStatus, errs []string) error {
	if !isTerminalStatus(status) {
		return NewErrInvalidTerminalStatus(status)
	}

	if errs == nil {
		errs = []string{}
	}
	errsRaw, err := json.Marshal(errs)
	if err != nil {
		return NewErrLedgerWriteFailed(err)
	}

	const query = `
		UPDATE ingestion_sessions
		   SET status = $2, completed_at = $3, errors = errors || $4::jsonb
		 WHERE id = $1 AND status = $5`

	result, err := l.db.ExecContext(ctx, query,
		string(id), string(status), l.now(), errsRaw, string(contract.SessionStatusRunning))
	if err != nil {
		return NewErrLedgerQueryFailed(err, "세션 종료 처리")
	}

	return l.checkUpdated(ctx, result, id)
}

// checkUpdated UPDATE가 적용되지 않은 원인을 세션 부재와 이미 종료된 세션으로 구분합니다.
func (l *PostgresSessionLedger) checkUpdated(ctx context.Context, result sql.Result, id contract.SessionID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return NewErrLedgerQueryFailed(err, "갱신 결과 확인")
	}
	if affected > 0 {
		return nil
	}

	if _, err := l.FindSession(ctx, id); err != nil {
		return err
	}
	return NewErrSessionAlreadyFinalized(id)
}

// FindSession ID로 세션을 조회합니다. 없으면 contract.ErrSessionNotFound를 반환합니다.
func (l *PostgresSessionLedger) FindSession(ctx context.Context, id contract.SessionID) (*contract.IngestionSession, error) {
	const query = `
		SELECT id, run_by, triggered_at, completed_at, status, sources, errors
		  FROM ingestion_sessions
		 WHERE id = $1`

	return l.scanSession(l.db.QueryRowContext(ctx, query, string(id)))
}

// LatestSession 가장 최근에 생성된 세션을 조회합니다. 없으면 contract.ErrSessionNotFound를 반환합니다.
func (l *PostgresSessionLedger) LatestSession(ctx context.Context) (*contract.IngestionSession, error) {
	const query = `
		SELECT id, run_by, triggered_at, completed_at, status, sources, errors
		  FROM ingestion_sessions
		 ORDER BY triggered_at DESC, id DESC
		 LIMIT 1`

	return l.scanSession(l.db.QueryRowContext(ctx, query))
}

func (l *PostgresSessionLedger) scanSession(row *sql.Row) (*contract.IngestionSession, error) {
	var (
		session     contract.IngestionSession
		completedAt sql.NullTime
		sourcesRaw  []byte
		errorsRaw   []byte
	)

	err := row.Scan(&session.ID, &session.RunBy, &session.TriggeredAt, &completedAt,
		&session.Status, &sourcesRaw, &errorsRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrSessionNotFound
		}
		return nil, NewErrLedgerQueryFailed(err, "세션 조회")
	}

	if completedAt.Valid {
		t := completedAt.Time
		session.CompletedAt = &t
	}
	if err := json.Unmarshal(sourcesRaw, &session.Sources); err != nil {
		return nil, NewErrLedgerReadFailed(err)
	}
	if err := json.Unmarshal(errorsRaw, &session.Errors); err != nil {
		return nil, NewErrLedgerReadFailed(err)
	}

	return &session, nil
}
