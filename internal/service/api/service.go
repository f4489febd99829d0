// Package api 수집 엔진의 운영용 REST API 서버를 제공합니다.
//
// 수동 사이클 트리거와 세션 조회, 헬스체크 등 운영자가 엔진의 상태를 관측하고
// 제어하는 데 필요한 최소한의 엔드포인트를 노출합니다.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/version"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"
)

// component API 서비스의 로깅용 컴포넌트 이름
const component = "api.service"

// shutdownTimeout Graceful Shutdown 시 최대 대기 시간
const shutdownTimeout = 5 * time.Second

// Service 운영 API 서버의 생명주기를 관리하는 서비스입니다.
type Service struct {
	apiConfig config.APIConfig
	debug     bool

	cycleRunner contract.CycleRunner
	ledger      contract.SessionLedger
	buildInfo   version.Info

	// cycleWG 수동 트리거로 실행 중인 사이클들의 종료 대기용 WaitGroup
	cycleWG sync.WaitGroup

	running   bool
	runningMu sync.Mutex
}

// NewService API 서비스 인스턴스를 생성합니다.
func NewService(apiConfig config.APIConfig, debug bool, cycleRunner contract.CycleRunner, ledger contract.SessionLedger, buildInfo version.Info) *Service {
	if cycleRunner == nil {
		panic("CycleRunner는 필수입니다")
	}
	if ledger == nil {
		panic("SessionLedger는 필수입니다")
	}

	return &Service{
		apiConfig: apiConfig,
		debug:     debug,

		cycleRunner: cycleRunner,
		ledger:      ledger,
		buildInfo:   buildInfo,
	}
}

// Start API 서비스를 시작합니다.
//
// HTTP 서버는 별도의 고루틴에서 실행되며, serviceStopCtx가 취소되면
// Graceful Shutdown(5초 타임아웃)을 수행한 후 serviceStopWG.Done()을 호출합니다.
// 설정이 비활성(Runnable=false)이면 서버를 기동하지 않고 정상 반환합니다.
func (s *Service) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	applog.WithComponent(component).Info("서비스 시작 진입: API 서비스 초기화 프로세스를 시작합니다")

	if s.running {
		defer serviceStopWG.Done()
		applog.WithComponent(component).Warn("API 서비스가 이미 실행 중입니다 (중복 호출)")
		return nil
	}

	if !s.apiConfig.Runnable {
		defer serviceStopWG.Done()
		applog.WithComponent(component).Info("API 서비스가 비활성화되어 있어 서버를 기동하지 않습니다")
		return nil
	}

	s.running = true

	go s.runServiceLoop(serviceStopCtx, serviceStopWG)

	applog.WithComponent(component).Info("서비스 시작 완료: API 서비스가 정상적으로 초기화되었습니다")

	return nil
}

// runServiceLoop 서버 설정, HTTP 서버 시작, Shutdown 대기를 순차적으로 수행합니다.
func (s *Service) runServiceLoop(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) {
	defer serviceStopWG.Done()

	e := s.setupServer(serviceStopCtx)

	httpServerDone := make(chan struct{})
	go s.startHTTPServer(e, httpServerDone)

	s.waitForShutdown(serviceStopCtx, e, httpServerDone)
}

// setupServer Echo 서버 인스턴스를 생성하고 핸들러와 라우트를 등록합니다.
// 수동 트리거 사이클은 serviceStopCtx에 연동되어 서비스 종료 시 함께 취소됩니다.
func (s *Service) setupServer(serviceStopCtx context.Context) *echo.Echo {
	e := NewHTTPServer(s.debug)

	SetupRoutes(e, NewHandler(s.cycleRunner, s.ledger, s.buildInfo, serviceStopCtx, &s.cycleWG))

	return e
}

// startHTTPServer HTTP 서버를 시작합니다. 서버가 종료되면 done 채널을 닫습니다.
func (s *Service) startHTTPServer(e *echo.Echo, done chan struct{}) {
	defer close(done)

	applog.WithComponentAndFields(component, applog.Fields{
		"port": s.apiConfig.ListenPort,
	}).Debug("HTTP 서버를 시작합니다")

	err := e.Start(fmt.Sprintf(":%d", s.apiConfig.ListenPort))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.WithComponentAndFields(component, applog.Fields{
			"port":  s.apiConfig.ListenPort,
			"error": err,
		}).Error("HTTP 서버가 비정상적으로 종료되었습니다")
	}
}

// waitForShutdown 종료 신호를 대기하고 Graceful Shutdown을 수행합니다.
func (s *Service) waitForShutdown(serviceStopCtx context.Context, e *echo.Echo, httpServerDone chan struct{}) {
	select {
	case <-serviceStopCtx.Done():
		applog.WithComponent(component).Info("종료 절차 진입: API 서비스 중지 시그널을 수신했습니다")
	case <-httpServerDone:
		// 포트 바인딩 실패 등으로 서버가 조기 종료된 경우: 실행 중인 사이클만 기다리고 정리합니다.
		s.cycleWG.Wait()
		s.cleanup()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"error": err,
		}).Error("HTTP 서버 Shutdown 중 오류가 발생했습니다")
	}

	<-httpServerDone

	// 수동 트리거로 실행 중인 사이클이 마무리될 때까지 기다립니다.
	// 사이클 자체는 serviceStopCtx 취소로 중단되며, 원장 확정까지 마친 후 종료됩니다.
	s.cycleWG.Wait()

	s.cleanup()

	applog.WithComponent(component).Info("API 서비스 종료 완료: 모든 리소스가 정리되었습니다")
}

func (s *Service) cleanup() {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	s.running = false
}
