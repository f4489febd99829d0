// Package scheduler 수집 사이클의 정기 트리거를 담당하는 스케줄러 서비스를 제공합니다.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/cronx"
	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"
)

// component Scheduler 서비스의 로깅용 컴포넌트 이름
const component = "scheduler.service"

// Scheduler 설정된 Cron 스케줄에 맞춰 수집 사이클을 자동으로 트리거하는 서비스입니다.
//
// 사이클 실행의 직렬화는 CycleRunner가 보장하므로, 스케줄러는 직전 사이클이 아직
// 실행 중인 시점에 다음 트리거가 도래하면 해당 회차를 건너뛰고 로그만 남깁니다.
type Scheduler struct {
	schedule config.ScheduleConfig

	cron *cron.Cron

	// cycleRunner 사이클 실행을 요청하는 인터페이스입니다.
	cycleRunner contract.CycleRunner

	running   bool
	runningMu sync.Mutex
}

// NewService 새로운 Scheduler 서비스 인스턴스를 생성합니다.
func NewService(schedule config.ScheduleConfig, cycleRunner contract.CycleRunner) *Scheduler {
	if cycleRunner == nil {
		panic("CycleRunner는 필수입니다")
	}

	return &Scheduler{
		schedule:    schedule,
		cycleRunner: cycleRunner,
	}
}

// Start 스케줄러를 시작하고 수집 스케줄을 Cron 엔진에 등록합니다.
// 스케줄이 비활성(Runnable=false)이면 Cron 엔진을 기동하지 않고 정상 반환합니다.
func (s *Scheduler) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	applog.WithComponent(component).Info("서비스 시작 진입: Scheduler 서비스 초기화 프로세스를 시작합니다")

	if s.running {
		serviceStopWG.Done()
		applog.WithComponent(component).Warn("Scheduler 서비스가 이미 실행 중입니다 (중복 호출)")
		return nil
	}

	if !s.schedule.Runnable {
		serviceStopWG.Done()
		applog.WithComponent(component).Info("수집 스케줄이 비활성화되어 있어 Scheduler를 기동하지 않습니다")
		return nil
	}

	// Cron 엔진 초기화
	// - StandardParser: 초 단위 스케줄링 지원 (6개 필드: 초 분 시 일 월 요일)
	// - Recover: Panic 발생 시 복구하여 스케줄러 전체가 중단되지 않도록 함
	// - SkipIfStillRunning: 이전 트리거의 처리가 끝나지 않았으면 다음 트리거를 건너뜀
	s.cron = cron.New(
		cron.WithParser(cronx.StandardParser()),
		cron.WithLogger(cron.VerbosePrintfLogger(applog.StandardLogger())),
		cron.WithChain(
			cron.Recover(cron.VerbosePrintfLogger(applog.StandardLogger())),
			cron.SkipIfStillRunning(cron.VerbosePrintfLogger(applog.StandardLogger())),
		),
	)

	if _, err := s.cron.AddFunc(s.schedule.TimeSpec, func() {
		s.triggerCycle(serviceStopCtx)
	}); err != nil {
		serviceStopWG.Done()
		return err
	}

	s.cron.Start()
	s.running = true

	applog.WithComponentAndFields(component, applog.Fields{
		"time_spec": s.schedule.TimeSpec,
	}).Info("서비스 시작 완료: Scheduler 서비스가 정상적으로 초기화되었습니다")

	// 종료 신호 대기 (고루틴)
	go func() {
		defer serviceStopWG.Done()

		<-serviceStopCtx.Done()

		s.Stop()
	}()

	return nil
}

// Stop 실행 중인 스케줄러를 안전하게 중지합니다.
// Cron 엔진이 중지될 때 실행 중인 사이클의 완료를 대기합니다.
func (s *Scheduler) Stop() {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if !s.running {
		return
	}

	applog.WithComponent(component).Info("종료 절차 진입: Scheduler 서비스 중지 시그널을 수신했습니다")

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}

	s.cron = nil
	s.running = false

	applog.WithComponent(component).Info("Scheduler 서비스 종료 완료: 모든 리소스가 정리되었습니다")
}

// triggerCycle 수집 사이클 1회를 트리거합니다.
//
// 이미 실행 중인 사이클이 있어 거부되는 경우는 장기 실행 사이클과 트리거가 겹친
// 정상 상황이므로 경고 로그만 남깁니다. 서비스 종료 컨텍스트를 사이클에 전달하여
// 종료 시그널 수신 시 실행 중인 사이클이 페이지 경계에서 중단되도록 합니다.
func (s *Scheduler) triggerCycle(serviceStopCtx context.Context) {
	session, err := s.cycleRunner.RunCycle(serviceStopCtx, contract.RunByScheduler)
	if err != nil {
		if errors.Is(err, ingestion.ErrCycleAlreadyRunning) {
			applog.WithComponent(component).Warn("직전 수집 사이클이 아직 실행 중이므로 이번 트리거를 건너뜁니다")
			return
		}

		applog.WithComponentAndFields(component, applog.Fields{
			"error": err,
		}).Error("수집 사이클 트리거에 실패했습니다")
		return
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"session_id": session.ID,
		"status":     session.Status,
	}).Info("스케줄된 수집 사이클이 종료되었습니다")
}
