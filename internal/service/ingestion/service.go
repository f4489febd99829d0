// Package ingestion 매물 수집 사이클의 실행을 총괄하는 수집 서비스를 제공합니다.
//
// 사이클 1회는 "소스 순회 → 페이지 수집 → 정규화 → 변경 감지 → 원장 기록 → 알림 발송"의
// 순차 파이프라인이며, 스케줄러의 정기 트리거 또는 운영 API의 수동 트리거로 시작됩니다.
package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/detect"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/dispatch"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/extract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/source"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/strutil"
)

// component 수집 서비스의 로깅용 컴포넌트 이름
const component = "ingestion.service"

// cancellationMarker 취소로 실패한 세션의 에러 목록에 기록되는 식별 문구입니다.
const cancellationMarker = "사이클이 취소되었습니다"

// ErrCycleAlreadyRunning 이미 실행 중인 사이클이 있어 새 사이클을 시작할 수 없음을 나타냅니다.
var ErrCycleAlreadyRunning = apperrors.New(apperrors.Conflict, "이미 실행 중인 수집 사이클이 있습니다")

// sourceRunner 설정된 소스 하나와 그 수집기를 묶습니다.
type sourceRunner struct {
	cfg       config.SourceConfig
	extractor *extract.Extractor
}

// Service 수집 사이클을 실행하는 수집 서비스입니다.
//
// 사이클은 한 번에 최대 하나만 실행됩니다. 실행 중에 새 트리거가 들어오면
// 새 사이클을 만들지 않고 ErrCycleAlreadyRunning을 반환합니다.
type Service struct {
	cfg *config.IngestionConfig

	sources    []sourceRunner
	detector   *detect.Detector
	ledger     contract.SessionLedger
	dispatcher *dispatch.Dispatcher

	cycleRunning bool
	cycleMu      sync.Mutex

	running   bool
	runningMu sync.Mutex
}

var _ contract.CycleRunner = (*Service)(nil)

// NewService 수집 서비스를 생성합니다.
// 설정된 모든 소스에 대해 소스 클라이언트와 수집기를 초기화하며, 소스 설정이 잘못된 경우 에러를 반환합니다.
func NewService(cfg *config.IngestionConfig, store contract.ListingStore, ledger contract.SessionLedger, dispatcher *dispatch.Dispatcher) (*Service, error) {
	fetcher := source.NewHTTPFetcher(cfg.FetchTimeout())

	sources := make([]sourceRunner, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		client, err := source.NewClient(contract.SourceID(src.ID), src.Format, src.Data, fetcher)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("소스 초기화에 실패했습니다. (SourceID: %s)", src.ID))
		}

		sources = append(sources, sourceRunner{
			cfg:       src,
			extractor: extract.New(contract.SourceID(src.ID), client, cfg.InterPageDelay()),
		})
	}

	return &Service{
		cfg:        cfg,
		sources:    sources,
		detector:   detect.New(store, cfg.PriceChangeThreshold),
		ledger:     ledger,
		dispatcher: dispatcher,
	}, nil
}

// Start 수집 서비스를 시작합니다.
//
// 사이클 실행은 트리거(스케줄러/API) 기반이므로 별도의 이벤트 루프는 없으며,
// 종료 신호를 감시하는 고루틴만 유지합니다. 이미 실행 중이면 경고 로그만 남기고 정상 반환합니다.
func (s *Service) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if s.running {
		defer serviceStopWG.Done()
		applog.WithComponent(component).Warn("수집 서비스가 이미 실행 중입니다 (중복 호출)")
		return nil
	}

	s.running = true

	go func() {
		defer serviceStopWG.Done()

		<-serviceStopCtx.Done()

		s.runningMu.Lock()
		s.running = false
		s.runningMu.Unlock()

		applog.WithComponent(component).Info("서비스 종료: 수집 서비스가 중지되었습니다.")
	}()

	applog.WithComponentAndFields(component, applog.Fields{
		"sources":   len(s.sources),
		"threshold": s.cfg.PriceChangeThreshold,
	}).Info("서비스 시작: 수집 서비스가 초기화되었습니다.")

	return nil
}

// Running 현재 사이클이 실행 중인지 여부를 반환합니다.
func (s *Service) Running() bool {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	return s.cycleRunning
}

// RunCycle 수집 사이클 1회를 동기적으로 실행하고 확정된 세션을 반환합니다.
//
// 이미 실행 중인 사이클이 있으면 ErrCycleAlreadyRunning을 반환하며 기존 사이클에는
// 영향을 주지 않습니다. 소스 하나의 실패는 경고로 기록되고 다음 소스 처리는 계속됩니다.
// 컨텍스트가 취소되면 진행 중인 페이지 요청까지만 마치고 세션을 Failed로 확정합니다.
func (s *Service) RunCycle(ctx context.Context, runBy contract.RunBy) (*contract.IngestionSession, error) {
	s.cycleMu.Lock()
	if s.cycleRunning {
		s.cycleMu.Unlock()
		applog.WithComponent(component).Warn("실행 중인 사이클이 있어 새 사이클 트리거를 거부합니다.")
		return nil, ErrCycleAlreadyRunning
	}
	s.cycleRunning = true
	s.cycleMu.Unlock()

	defer func() {
		s.cycleMu.Lock()
		s.cycleRunning = false
		s.cycleMu.Unlock()
	}()

	// 원장 기록과 변경 영속화는 사이클 취소와 무관하게 완료되어야 합니다.
	// 취소된 사이클도 Failed로 확정되어야 운영자가 원장을 통해 결과를 관측할 수 있습니다.
	// 취소는 페이지 수집과 알림 발송에만 적용됩니다.
	ledgerCtx := context.WithoutCancel(ctx)

	session, err := s.ledger.CreateSession(ledgerCtx, runBy)
	if err != nil {
		return nil, err
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"session_id": session.ID,
		"run_by":     runBy,
	}).Info("수집 사이클을 시작합니다.")

	events, cycleErrs, cancelled := s.runSources(ctx, ledgerCtx, session.ID)

	// 알림은 사이클 완주 시에만 발송합니다. 취소된 사이클의 변경 사항은
	// 저장소에 이미 반영되어 있으므로 다음 사이클에서 중복 알림이 발생하지 않습니다.
	if !cancelled {
		s.dispatcher.Dispatch(ctx, s.filterEvents(events))
	}

	status := contract.SessionStatusCompleted
	if cancelled {
		status = contract.SessionStatusFailed
		cycleErrs = append(cycleErrs, cancellationMarker)
	}

	if err := s.ledger.FinalizeSession(ledgerCtx, session.ID, status, cycleErrs); err != nil {
		return nil, err
	}

	finalized, err := s.ledger.FindSession(ledgerCtx, session.ID)
	if err != nil {
		return nil, err
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"session_id":    finalized.ID,
		"status":        finalized.Status,
		"listings_seen": finalized.TotalListingsSeen(),
		"changes":       finalized.TotalChanges(),
	}).Info("수집 사이클이 종료되었습니다.")

	return finalized, nil
}

// runSources 설정된 소스들을 순차 처리하고 알림 대상 이벤트와 사이클 수준 경고를 수집합니다.
// ctx는 페이지 수집에만 적용되고, 원장 기록과 변경 영속화는 ledgerCtx로 수행됩니다.
func (s *Service) runSources(ctx, ledgerCtx context.Context, sessionID contract.SessionID) (events []contract.ChangeEvent, cycleErrs []string, cancelled bool) {
	for i, src := range s.sources {
		// 소스 경계에서 취소를 확인합니다. 처리 완료된 소스의 기록은 유지됩니다.
		if ctx.Err() != nil {
			return events, cycleErrs, true
		}

		if i > 0 && s.cfg.InterSourceDelay() > 0 {
			select {
			case <-time.After(s.cfg.InterSourceDelay()):
			case <-ctx.Done():
				return events, cycleErrs, true
			}
		}

		sourceEvents, progress, warnings, sourceCancelled := s.runSource(ctx, ledgerCtx, src)

		if err := s.ledger.RecordSourceProgress(ledgerCtx, sessionID, progress, warnings); err != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"session_id": sessionID,
				"source_id":  progress.SourceID,
				"error":      err,
			}).Error("소스 진행 상황 기록에 실패했습니다.")
			cycleErrs = append(cycleErrs, fmt.Sprintf("소스 진행 상황 기록에 실패했습니다. (SourceID: %s): %v", progress.SourceID, err))
		}

		events = append(events, sourceEvents...)

		if sourceCancelled {
			return events, cycleErrs, true
		}
	}

	return events, cycleErrs, false
}

// runSource 소스 하나의 검색 URL들을 수집하고 변경을 감지합니다.
// 동일 소스의 여러 검색 URL에서 중복 관측된 매물은 한 번만 처리합니다.
func (s *Service) runSource(ctx, ledgerCtx context.Context, src sourceRunner) (events []contract.ChangeEvent, progress contract.SourceProgress, warnings []string, cancelled bool) {
	progress.SourceID = contract.SourceID(src.cfg.ID)

	var listings []*contract.Listing
	seen := make(map[string]bool)

	for _, searchURL := range src.cfg.SearchURLs {
		result, err := src.extractor.Extract(ctx, searchURL, src.cfg.MaxPages)
		if result != nil {
			progress.PagesProcessed += result.PagesProcessed
			warnings = append(warnings, result.Warnings...)

			for _, listing := range result.Listings {
				if seen[listing.ExternalID] {
					continue
				}
				seen[listing.ExternalID] = true
				listings = append(listings, listing)
			}
		}

		if err != nil {
			// 수집기는 취소 시에만 에러를 반환합니다. 부분 결과까지는 반영합니다.
			cancelled = true
			break
		}
	}

	// 취소 시에도 이미 수집된 부분 결과는 분류/영속화까지 마칩니다.
	// 저장소에 반영된 변경만이 확정된 것으로 간주되어 다음 사이클에서 재알림되지 않습니다.
	outcome := s.detector.Classify(ledgerCtx, listings)
	warnings = append(warnings, outcome.Warnings...)

	progress.ListingsSeen = len(listings)
	progress.ListingsNew = outcome.New
	progress.ListingsPriceChanged = outcome.PriceChanged
	progress.ErrorsCount = len(warnings)

	return outcome.Events, progress, warnings, cancelled
}

// filterEvents 관심 조건 필터를 통과한 이벤트만 남깁니다.
// 필터는 알림 발송에만 영향을 주며, 분류와 영속화는 필터와 무관하게 전체 매물에 대해 수행됩니다.
func (s *Service) filterEvents(events []contract.ChangeEvent) []contract.ChangeEvent {
	filters := s.cfg.Filters
	if filters.MinPrice == 0 && filters.MaxPrice == 0 && len(filters.Cities) == 0 {
		return events
	}

	filtered := make([]contract.ChangeEvent, 0, len(events))
	for _, event := range events {
		if matchesFilters(event.Listing, filters) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func matchesFilters(listing *contract.Listing, filters config.FilterConfig) bool {
	if filters.MinPrice > 0 && listing.Price < filters.MinPrice {
		return false
	}
	if filters.MaxPrice > 0 && listing.Price > filters.MaxPrice {
		return false
	}

	if len(filters.Cities) > 0 {
		matched := false
		for _, city := range filters.Cities {
			if strutil.ContainsFold(listing.City, city) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}
