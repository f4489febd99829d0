package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/dispatch"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/ledger"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listingPayload 테스트 업스트림이 반환하는 매물 레코드입니다.
type listingPayload struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
	City  string  `json:"city"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
}

// fakeUpstream 매물 목록 JSON API를 흉내내는 테스트 서버입니다.
// listings를 교체하여 사이클 간 업스트림 상태 변화를 모사할 수 있습니다.
type fakeUpstream struct {
	server *httptest.Server

	mu       sync.Mutex
	listings []listingPayload
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()

	upstream := &fakeUpstream{}
	upstream.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		upstream.mu.Lock()
		defer upstream.mu.Unlock()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items":       upstream.listings,
			"total_pages": 1,
		})
	}))
	t.Cleanup(upstream.server.Close)

	return upstream
}

func (u *fakeUpstream) setListings(listings ...listingPayload) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listings = listings
}

func payload(id string, price float64, city string) listingPayload {
	return listingPayload{
		ID:    id,
		Price: price,
		City:  city,
		Title: "Апартамент " + id,
		URL:   fmt.Sprintf("https://www.luximmo.com/sales/listing-%s-en.html", id),
	}
}

// recordingChannel 전달받은 배치를 기록하는 테스트용 알림 채널입니다.
type recordingChannel struct {
	mu      sync.Mutex
	batches []contract.ChangeBatch
}

var _ contract.NotificationChannel = (*recordingChannel)(nil)

func (c *recordingChannel) ID() contract.ChannelID { return "recording" }
func (c *recordingChannel) Enabled() bool          { return true }

func (c *recordingChannel) Deliver(_ context.Context, batch contract.ChangeBatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
	return nil
}

func (c *recordingChannel) received() []contract.ChangeBatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

// ctxAwareLedger 컨텍스트 취소를 존중하는 원장 데코레이터입니다.
// database/sql 기반 원장처럼 취소된 컨텍스트로는 어떤 연산도 수행하지 않습니다.
type ctxAwareLedger struct {
	inner contract.SessionLedger
}

var _ contract.SessionLedger = (*ctxAwareLedger)(nil)

func (l *ctxAwareLedger) CreateSession(ctx context.Context, runBy contract.RunBy) (*contract.IngestionSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.inner.CreateSession(ctx, runBy)
}

func (l *ctxAwareLedger) RecordSourceProgress(ctx context.Context, id contract.SessionID, progress contract.SourceProgress, warnings []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.inner.RecordSourceProgress(ctx, id, progress, warnings)
}

func (l *ctxAwareLedger) FinalizeSession(ctx context.Context, id contract.SessionID, status contract.SessionStatus, errs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.inner.FinalizeSession(ctx, id, status, errs)
}

func (l *ctxAwareLedger) FindSession(ctx context.Context, id contract.SessionID) (*contract.IngestionSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.inner.FindSession(ctx, id)
}

func (l *ctxAwareLedger) LatestSession(ctx context.Context) (*contract.IngestionSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.inner.LatestSession(ctx)
}

// ctxAwareStore 컨텍스트 취소를 존중하는 매물 저장소 데코레이터입니다.
type ctxAwareStore struct {
	inner *store.MemoryListingStore
}

var _ contract.ListingStore = (*ctxAwareStore)(nil)

func (s *ctxAwareStore) FindListing(ctx context.Context, sourceID contract.SourceID, externalID string) (*contract.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.inner.FindListing(ctx, sourceID, externalID)
}

func (s *ctxAwareStore) UpsertListing(ctx context.Context, listing *contract.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.inner.UpsertListing(ctx, listing)
}

func newTestConfig(serverURL string) *config.IngestionConfig {
	return &config.IngestionConfig{
		PriceChangeThreshold: 1,
		FetchTimeoutMS:       5000,
		Sources: []config.SourceConfig{
			{
				ID:         "luximmo",
				Name:       "LUXIMMO",
				Format:     "json",
				SearchURLs: []string{serverURL + "/search"},
				MaxPages:   5,
			},
		},
	}
}

// newTestService 테스트용 수집 서비스와 그 협력 객체들을 생성합니다.
func newTestService(t *testing.T, cfg *config.IngestionConfig) (*Service, contract.SessionLedger, *recordingChannel) {
	t.Helper()

	sessionLedger := ledger.NewMemorySessionLedger()
	channel := &recordingChannel{}

	svc, err := NewService(cfg, store.NewMemoryListingStore(), sessionLedger, dispatch.New(channel))
	require.NoError(t, err)

	return svc, sessionLedger, channel
}

func TestService_RunCycle(t *testing.T) {
	t.Parallel()

	t.Run("사이클 1회가 수집부터 알림 발송까지 수행된다", func(t *testing.T) {
		t.Parallel()

		upstream := newFakeUpstream(t)
		upstream.setListings(payload("100", 250000, "Sofia"), payload("101", 180000, "Plovdiv"))

		svc, _, channel := newTestService(t, newTestConfig(upstream.server.URL))

		session, err := svc.RunCycle(context.Background(), contract.RunByUser)
		require.NoError(t, err)

		assert.Equal(t, contract.SessionStatusCompleted, session.Status)
		assert.Equal(t, contract.RunByUser, session.RunBy)
		require.NotNil(t, session.CompletedAt)
		require.Len(t, session.Sources, 1)
		assert.Equal(t, contract.SourceID("luximmo"), session.Sources[0].SourceID)
		assert.Equal(t, 1, session.Sources[0].PagesProcessed)
		assert.Equal(t, 2, session.Sources[0].ListingsSeen)
		assert.Equal(t, 2, session.Sources[0].ListingsNew)

		batches := channel.received()
		require.Len(t, batches, 1)
		assert.Equal(t, contract.ChangeKindNew, batches[0].Kind)
		assert.Len(t, batches[0].Events, 2)
	})

	t.Run("두 번째 사이클은 신규 매물과 가격 변동을 별도 배치로 알린다", func(t *testing.T) {
		t.Parallel()

		upstream := newFakeUpstream(t)
		upstream.setListings(payload("100", 800, "Sofia"))

		svc, _, channel := newTestService(t, newTestConfig(upstream.server.URL))

		_, err := svc.RunCycle(context.Background(), contract.RunByScheduler)
		require.NoError(t, err)

		// 업스트림 상태 변화: 기존 매물 가격 인하 + 신규 매물 등장
		upstream.setListings(payload("100", 750, "Sofia"), payload("200", 300000, "Varna"))

		session, err := svc.RunCycle(context.Background(), contract.RunByScheduler)
		require.NoError(t, err)

		require.Len(t, session.Sources, 1)
		assert.Equal(t, 2, session.Sources[0].ListingsSeen)
		assert.Equal(t, 1, session.Sources[0].ListingsNew)
		assert.Equal(t, 1, session.Sources[0].ListingsPriceChanged)

		batches := channel.received()
		require.Len(t, batches, 3, "1사이클의 New 배치 + 2사이클의 New/PriceChanged 배치")

		newBatch := batches[1]
		require.Equal(t, contract.ChangeKindNew, newBatch.Kind)
		require.Len(t, newBatch.Events, 1)
		assert.Equal(t, "200", newBatch.Events[0].Listing.ExternalID)

		priceBatch := batches[2]
		require.Equal(t, contract.ChangeKindPriceChanged, priceBatch.Kind)
		require.Len(t, priceBatch.Events, 1)
		assert.Equal(t, "100", priceBatch.Events[0].Listing.ExternalID)
		assert.Equal(t, int64(750), priceBatch.Events[0].Listing.Price)
		require.NotNil(t, priceBatch.Events[0].PreviousPrice)
		assert.Equal(t, int64(800), *priceBatch.Events[0].PreviousPrice)
	})

	t.Run("실행 중인 사이클이 있으면 새 트리거를 거부한다", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			select {
			case <-release:
			case <-r.Context().Done():
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items": [], "total_pages": 1}`))
		}))
		defer server.Close()

		svc, _, _ := newTestService(t, newTestConfig(server.URL))

		firstDone := make(chan error, 1)
		go func() {
			_, err := svc.RunCycle(context.Background(), contract.RunByScheduler)
			firstDone <- err
		}()

		<-started

		_, err := svc.RunCycle(context.Background(), contract.RunByUser)
		require.ErrorIs(t, err, ErrCycleAlreadyRunning)
		assert.True(t, apperrors.Is(err, apperrors.Conflict))

		close(release)
		require.NoError(t, <-firstDone)

		// 기존 사이클 종료 후에는 새 사이클이 정상 실행되어야 합니다.
		_, err = svc.RunCycle(context.Background(), contract.RunByUser)
		require.NoError(t, err)
	})

	t.Run("취소된 사이클은 Failed로 확정되고 알림을 발송하지 않는다", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 취소 시그널이 올 때까지 응답을 지연시킵니다.
			<-r.Context().Done()
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		svc, _, channel := newTestService(t, newTestConfig(server.URL))

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		session, err := svc.RunCycle(ctx, contract.RunByScheduler)
		require.NoError(t, err)

		assert.Equal(t, contract.SessionStatusFailed, session.Status)
		require.NotNil(t, session.CompletedAt)
		assert.Contains(t, session.Errors, cancellationMarker)
		assert.Empty(t, channel.received(), "취소된 사이클은 알림을 발송하지 않아야 한다")
	})

	t.Run("컨텍스트를 존중하는 원장에서도 취소된 사이클이 Failed로 확정된다", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		sessionLedger := &ctxAwareLedger{inner: ledger.NewMemorySessionLedger()}
		channel := &recordingChannel{}

		svc, err := NewService(newTestConfig(server.URL), store.NewMemoryListingStore(), sessionLedger, dispatch.New(channel))
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		session, err := svc.RunCycle(ctx, contract.RunByScheduler)
		require.NoError(t, err, "취소 이후에도 원장 확정은 성공해야 한다")

		assert.Equal(t, contract.SessionStatusFailed, session.Status)
		require.NotNil(t, session.CompletedAt)
		assert.Contains(t, session.Errors, cancellationMarker)
		require.Len(t, session.Sources, 1, "취소 전까지의 소스 진행 상황이 기록되어야 한다")

		// 취소된 컨텍스트와 무관하게 원장에서 확정된 세션이 조회되어야 합니다.
		latest, err := sessionLedger.LatestSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, contract.SessionStatusFailed, latest.Status)
		assert.Empty(t, channel.received())
	})

	t.Run("취소 전까지 수집된 부분 결과는 영속화된다", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		upstream := newFakeUpstream(t)
		upstream.setListings(payload("100", 250000, "Sofia"))

		// 두 번째 검색 URL은 취소 시그널이 올 때까지 응답을 지연시킵니다.
		blocking := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cancel()
			<-r.Context().Done()
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer blocking.Close()

		cfg := newTestConfig(upstream.server.URL)
		cfg.Sources[0].SearchURLs = append(cfg.Sources[0].SearchURLs, blocking.URL+"/search")

		memStore := store.NewMemoryListingStore()
		sessionLedger := &ctxAwareLedger{inner: ledger.NewMemorySessionLedger()}
		channel := &recordingChannel{}

		svc, err := NewService(cfg, &ctxAwareStore{inner: memStore}, sessionLedger, dispatch.New(channel))
		require.NoError(t, err)

		session, err := svc.RunCycle(ctx, contract.RunByScheduler)
		require.NoError(t, err)

		assert.Equal(t, contract.SessionStatusFailed, session.Status)
		require.Len(t, session.Sources, 1)
		assert.Equal(t, 1, session.Sources[0].ListingsSeen)
		assert.Equal(t, 1, session.Sources[0].ListingsNew, "첫 URL의 매물은 취소와 무관하게 분류되어야 한다")
		assert.Equal(t, 1, memStore.Count(), "취소 전 수집된 매물은 저장소에 반영되어야 한다")
		assert.Empty(t, channel.received(), "취소된 사이클은 알림을 발송하지 않아야 한다")
	})

	t.Run("가격 필터에 걸린 이벤트는 알림에서 제외되지만 분류와 기록은 수행된다", func(t *testing.T) {
		t.Parallel()

		upstream := newFakeUpstream(t)
		upstream.setListings(payload("100", 50000, "Sofia"), payload("101", 500000, "Sofia"))

		cfg := newTestConfig(upstream.server.URL)
		cfg.Filters = config.FilterConfig{MinPrice: 100000}

		svc, _, channel := newTestService(t, cfg)

		session, err := svc.RunCycle(context.Background(), contract.RunByScheduler)
		require.NoError(t, err)

		assert.Equal(t, 2, session.Sources[0].ListingsNew, "필터는 분류 카운터에 영향을 주지 않아야 한다")

		batches := channel.received()
		require.Len(t, batches, 1)
		require.Len(t, batches[0].Events, 1)
		assert.Equal(t, "101", batches[0].Events[0].Listing.ExternalID)
	})

	t.Run("도시 필터는 대소문자를 구분하지 않는다", func(t *testing.T) {
		t.Parallel()

		upstream := newFakeUpstream(t)
		upstream.setListings(payload("100", 250000, "Sofia"), payload("101", 250000, "Varna"))

		cfg := newTestConfig(upstream.server.URL)
		cfg.Filters = config.FilterConfig{Cities: []string{"sofia"}}

		svc, _, channel := newTestService(t, cfg)

		_, err := svc.RunCycle(context.Background(), contract.RunByScheduler)
		require.NoError(t, err)

		batches := channel.received()
		require.Len(t, batches, 1)
		require.Len(t, batches[0].Events, 1)
		assert.Equal(t, "Sofia", batches[0].Events[0].Listing.City)
	})

	t.Run("업스트림 전체 실패 시에도 세션은 경고와 함께 Completed로 확정된다", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		svc, _, channel := newTestService(t, newTestConfig(server.URL))

		session, err := svc.RunCycle(context.Background(), contract.RunByScheduler)
		require.NoError(t, err)

		assert.Equal(t, contract.SessionStatusCompleted, session.Status)
		require.Len(t, session.Sources, 1)
		assert.Equal(t, 0, session.Sources[0].ListingsSeen)
		assert.NotEmpty(t, session.Errors, "페이지 수집 실패가 세션 에러 목록에 기록되어야 한다")
		assert.Empty(t, channel.received())
	})

	t.Run("소스 하나의 실패가 다른 소스의 처리를 막지 않는다", func(t *testing.T) {
		t.Parallel()

		upstream := newFakeUpstream(t)
		upstream.setListings(payload("100", 250000, "Sofia"))

		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer failing.Close()

		cfg := newTestConfig(upstream.server.URL)
		cfg.Sources = append([]config.SourceConfig{
			{
				ID:         "broken-source",
				Format:     "json",
				SearchURLs: []string{failing.URL + "/search"},
				MaxPages:   2,
			},
		}, cfg.Sources...)

		svc, _, _ := newTestService(t, cfg)

		session, err := svc.RunCycle(context.Background(), contract.RunByScheduler)
		require.NoError(t, err)

		assert.Equal(t, contract.SessionStatusCompleted, session.Status)
		require.Len(t, session.Sources, 2)
		assert.Equal(t, contract.SourceID("broken-source"), session.Sources[0].SourceID)
		assert.Equal(t, 0, session.Sources[0].ListingsSeen)
		assert.Equal(t, contract.SourceID("luximmo"), session.Sources[1].SourceID)
		assert.Equal(t, 1, session.Sources[1].ListingsNew)
	})
}
