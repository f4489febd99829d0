package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/version"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCycleRunner 테스트 시나리오별로 동작을 지정할 수 있는 CycleRunner입니다.
type stubCycleRunner struct {
	err   error
	delay time.Duration
}

var _ contract.CycleRunner = (*stubCycleRunner)(nil)

func (r *stubCycleRunner) RunCycle(ctx context.Context, runBy contract.RunBy) (*contract.IngestionSession, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &contract.IngestionSession{
		ID:     "session-1",
		RunBy:  runBy,
		Status: contract.SessionStatusCompleted,
	}, nil
}

// newTestServer 라우트가 등록된 테스트용 Echo 인스턴스를 생성합니다.
func newTestServer(runner contract.CycleRunner, sessionLedger contract.SessionLedger) http.Handler {
	e := NewHTTPServer(false)
	SetupRoutes(e, NewHandler(runner, sessionLedger, version.Info{Version: "v1.0.0-test"}, context.Background(), &sync.WaitGroup{}))
	return e
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler(t *testing.T) {
	t.Parallel()

	t.Run("헬스체크는 healthy 상태를 반환한다", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(&stubCycleRunner{}, ledger.NewMemorySessionLedger())

		rec := doRequest(t, server, http.MethodGet, "/healthz")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
	})

	t.Run("버전 엔드포인트는 빌드 정보를 반환한다", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(&stubCycleRunner{}, ledger.NewMemorySessionLedger())

		rec := doRequest(t, server, http.MethodGet, "/api/v1/version")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp VersionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "v1.0.0-test", resp.Version)
	})

	t.Run("수동 트리거는 즉시 완료되면 200을 반환한다", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(&stubCycleRunner{}, ledger.NewMemorySessionLedger())

		rec := doRequest(t, server, http.MethodPost, "/api/v1/ingestion/run")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("수동 트리거는 장기 실행 사이클에 대해 202를 반환한다", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(&stubCycleRunner{delay: 2 * time.Second}, ledger.NewMemorySessionLedger())

		rec := doRequest(t, server, http.MethodPost, "/api/v1/ingestion/run")
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("이미 실행 중인 사이클이 있으면 409를 반환한다", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(&stubCycleRunner{err: ingestion.ErrCycleAlreadyRunning}, ledger.NewMemorySessionLedger())

		rec := doRequest(t, server, http.MethodPost, "/api/v1/ingestion/run")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("세션이 없으면 최근 세션 조회는 404를 반환한다", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(&stubCycleRunner{}, ledger.NewMemorySessionLedger())

		rec := doRequest(t, server, http.MethodGet, "/api/v1/ingestion/sessions/latest")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("최근 세션과 세션 단건을 조회할 수 있다", func(t *testing.T) {
		t.Parallel()

		sessionLedger := ledger.NewMemorySessionLedger()
		session, err := sessionLedger.CreateSession(context.Background(), contract.RunByScheduler)
		require.NoError(t, err)

		server := newTestServer(&stubCycleRunner{}, sessionLedger)

		rec := doRequest(t, server, http.MethodGet, "/api/v1/ingestion/sessions/latest")
		require.Equal(t, http.StatusOK, rec.Code)

		var latest contract.IngestionSession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
		assert.Equal(t, session.ID, latest.ID)
		assert.Equal(t, contract.SessionStatusRunning, latest.Status)

		rec = doRequest(t, server, http.MethodGet, "/api/v1/ingestion/sessions/"+string(session.ID))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, server, http.MethodGet, "/api/v1/ingestion/sessions/unknown-id")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
