package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/version"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/api"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/dispatch"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/ledger"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/store"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/scheduler"
	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"
)

// 빌드 정보 변수 (Dockerfile의 ldflags로 주입됨)
var (
	Version     = "dev"     // Git 커밋 해시
	BuildDate   = "unknown" // 빌드 날짜
	BuildNumber = "0"       // 빌드 번호
)

const (
	banner = `
  _____  _             _
 |  ___|(_) _ __    __| |  ___  _ __
 | |_   | || '_ \  / _' | / _ \| '__|
 |  _|  | || | | || (_| ||  __/| |
 |_|    |_||_| |_| \__,_| \___||_|
                                      %s
--------------------------------------------------------------------------------
`
)

func main() {
	// 1. 환경변수 파일 로드 (DSN, 봇 토큰 등 민감 정보는 .env로 주입 가능)
	_ = godotenv.Load()

	// 2. 환경설정 로드 (로그 설정에 필요하므로 가장 먼저 수행한다)
	appConfig, err := config.Load()
	if err != nil {
		// 로거 초기화 전이므로 표준 에러에 출력
		fmt.Fprintf(os.Stderr, "[FATAL] 환경설정 로드 실패: %v\n", err)
		os.Exit(1)
	}

	// 3. 로그 시스템 초기화
	var logOpts applog.Options
	if appConfig.Debug {
		logOpts = applog.NewDevelopmentOptions(config.AppName)
	} else {
		logOpts = applog.NewProductionOptions(config.AppName)
	}

	appLogCloser, err := applog.Setup(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] 로그 시스템 초기화 실패. 서버 구동을 중단합니다. (Cause: %v)\n", err)
		os.Exit(1)
	}
	defer appLogCloser.Close()

	// 4. 로그 레벨 최종 확정
	applog.SetDebugMode(appConfig.Debug)

	// 아스키아트 출력(https://ko.rakko.tools/tools/68/, 폰트:standard)
	fmt.Printf(banner, Version)

	// 빌드 정보 설정 (전역 싱글톤 등록)
	buildInfo := version.Info{
		Version:     Version,
		BuildDate:   BuildDate,
		BuildNumber: BuildNumber,
		GoVersion:   runtime.Version(),
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
	}
	version.Set(buildInfo)

	// 빌드 정보 출력
	applog.WithComponentAndFields("main", log.Fields{
		"version": buildInfo.String(),
		"env":     map[bool]string{true: "development", false: "production"}[appConfig.Debug],
	}).Info("수집 엔진 초기화 시작")

	// 저장소 백엔드(매물 저장소 + 세션 원장)를 생성한다.
	listingStore, sessionLedger, storageCloser, err := setupStorage(context.Background(), appConfig.Storage)
	if err != nil {
		applog.WithComponentAndFields("main", log.Fields{
			"driver": appConfig.Storage.Driver,
			"error":  err,
		}).Error("저장소 초기화 실패")

		log.Fatal("저장소 초기화 실패로 프로그램을 종료합니다")
	}
	if storageCloser != nil {
		defer storageCloser.Close()
	}

	// 알림 채널을 생성하고 디스패처를 구성한다.
	dispatcher := dispatch.New(setupChannels(appConfig.Notifiers)...)

	// 서비스를 생성하고 초기화한다.
	ingestionService, err := ingestion.NewService(&appConfig.Ingestion, listingStore, sessionLedger, dispatcher)
	if err != nil {
		applog.WithComponentAndFields("main", log.Fields{
			"error": err,
		}).Error("수집 서비스 생성 실패")

		log.Fatal("수집 서비스 생성 실패로 프로그램을 종료합니다")
	}
	schedulerService := scheduler.NewService(appConfig.Ingestion.Schedule, ingestionService)
	apiService := api.NewService(appConfig.API, appConfig.Debug, ingestionService, sessionLedger, buildInfo)

	// Set up cancellation context and waitgroup
	serviceStopCtx, cancel := context.WithCancel(context.Background())
	serviceStopWG := &sync.WaitGroup{}

	// 서비스를 시작한다.
	services := []service.Service{ingestionService, schedulerService, apiService}
	for _, s := range services {
		serviceStopWG.Add(1)
		if err := s.Start(serviceStopCtx, serviceStopWG); err != nil {
			applog.WithComponentAndFields("main", log.Fields{
				"error": err,
			}).Error("서비스 초기화 실패")

			cancel() // 다른 서비스들도 종료
			serviceStopWG.Wait()

			log.Fatal("서비스 초기화 실패로 프로그램을 종료합니다")
		}
	}

	// Handle sigterm and await termC signal
	termC := make(chan os.Signal, 1)
	signal.Notify(termC, syscall.SIGINT, syscall.SIGTERM)

	applog.WithComponent("main").Info("수집 엔진 가동 완료")

	<-termC // Blocks here until interrupted

	// Handle shutdown
	applog.WithComponent("main").Info("Shutdown signal received")
	cancel()             // Signal cancellation to context.Context
	serviceStopWG.Wait() // Block here until are workers are done
}

// setupStorage 설정된 드라이버에 따라 매물 저장소와 세션 원장을 생성합니다.
//
// PostgreSQL 드라이버는 두 컴포넌트가 하나의 커넥션 풀을 공유하며,
// 반환된 io.Closer를 닫으면 풀 전체가 정리됩니다. 파일 드라이버는 닫을 리소스가 없습니다.
func setupStorage(ctx context.Context, cfg config.StorageConfig) (contract.ListingStore, contract.SessionLedger, io.Closer, error) {
	switch cfg.Driver {
	case "postgres":
		listingStore, err := store.NewPostgresListingStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, nil, err
		}

		sessionLedger, err := ledger.NewPostgresSessionLedger(ctx, listingStore.DB())
		if err != nil {
			listingStore.Close()
			return nil, nil, nil, err
		}

		return listingStore, sessionLedger, listingStore, nil

	default: // file
		listingStore, err := store.NewFileListingStore(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}

		sessionLedger, err := ledger.NewFileSessionLedger(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}

		return listingStore, sessionLedger, nil, nil
	}
}

// setupChannels 설정에서 활성화된 알림 채널들을 생성합니다.
//
// 텔레그램 채널은 생성 시점에 봇 인증을 수행하므로, 실패한 채널은 건너뛰고
// 나머지 채널로 계속 진행합니다. 알림 채널 부재는 수집 자체를 막지 않습니다.
func setupChannels(cfg config.NotifierConfig) []contract.NotificationChannel {
	var channels []contract.NotificationChannel

	for _, telegramConfig := range cfg.Telegrams {
		if !telegramConfig.Enabled {
			continue
		}

		channel, err := dispatch.NewTelegramChannel(telegramConfig)
		if err != nil {
			applog.WithComponentAndFields("main", log.Fields{
				"notifier_id": telegramConfig.ID,
				"error":       err,
			}).Error("텔레그램 알림 채널 초기화 실패")
			continue
		}
		channels = append(channels, channel)
	}

	for _, webhookConfig := range cfg.Webhooks {
		if !webhookConfig.Enabled {
			continue
		}
		channels = append(channels, dispatch.NewWebhookChannel(webhookConfig))
	}

	for _, emailConfig := range cfg.Emails {
		if !emailConfig.Enabled {
			continue
		}
		channels = append(channels, dispatch.NewEmailChannel(emailConfig))
	}

	if cfg.Desktop.Enabled {
		channels = append(channels, dispatch.NewDesktopChannel(cfg.Desktop))
	}

	return channels
}
