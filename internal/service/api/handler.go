package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/version"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion"
	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"
)

// handlerComponent API 핸들러의 로깅용 컴포넌트 이름
const handlerComponent = "api.handler"

// triggerConfirmWindow 수동 트리거 직후 사이클이 즉시 거부되는지 확인하는 대기 시간입니다.
const triggerConfirmWindow = 250 * time.Millisecond

// ErrorResponse API 에러 응답 본문입니다.
type ErrorResponse struct {
	Message string `json:"message"`
}

// HealthResponse 헬스체크 응답 본문입니다.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime"` // 서버 가동 시간(초)
}

// VersionResponse 버전 정보 응답 본문입니다.
type VersionResponse struct {
	Version     string `json:"version"`
	BuildDate   string `json:"build_date,omitempty"`
	BuildNumber string `json:"build_number,omitempty"`
	GoVersion   string `json:"go_version,omitempty"`
}

// TriggerResponse 수동 사이클 트리거 응답 본문입니다.
type TriggerResponse struct {
	Message string `json:"message"`
}

// Handler 운영 API의 엔드포인트 핸들러입니다.
type Handler struct {
	cycleRunner contract.CycleRunner
	ledger      contract.SessionLedger
	buildInfo   version.Info

	// cycleCtx 수동 트리거된 사이클의 기반 컨텍스트입니다. HTTP 요청이 아닌
	// 서비스 종료 신호에 연동되며, 종료 시 실행 중인 사이클이 함께 취소됩니다.
	cycleCtx context.Context

	// cycleWG 수동 트리거된 사이클 고루틴의 종료 대기용 WaitGroup입니다.
	cycleWG *sync.WaitGroup

	serverStartTime time.Time
}

// NewHandler Handler 인스턴스를 생성합니다.
// cycleCtx가 nil이면 수동 트리거 사이클은 종료 신호와 연동되지 않습니다.
func NewHandler(cycleRunner contract.CycleRunner, ledger contract.SessionLedger, buildInfo version.Info, cycleCtx context.Context, cycleWG *sync.WaitGroup) *Handler {
	if cycleCtx == nil {
		cycleCtx = context.Background()
	}
	if cycleWG == nil {
		cycleWG = &sync.WaitGroup{}
	}

	return &Handler{
		cycleRunner: cycleRunner,
		ledger:      ledger,
		buildInfo:   buildInfo,

		cycleCtx: cycleCtx,
		cycleWG:  cycleWG,

		serverStartTime: time.Now(),
	}
}

// HealthCheckHandler 서버의 동작 상태를 반환합니다. 모니터링 시스템에서 사용됩니다.
func (h *Handler) HealthCheckHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Uptime: int64(time.Since(h.serverStartTime).Seconds()),
	})
}

// VersionHandler 빌드 버전 정보를 반환합니다.
func (h *Handler) VersionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, VersionResponse{
		Version:     h.buildInfo.Version,
		BuildDate:   h.buildInfo.BuildDate,
		BuildNumber: h.buildInfo.BuildNumber,
		GoVersion:   h.buildInfo.GoVersion,
	})
}

// TriggerCycleHandler 수집 사이클을 수동으로 트리거합니다.
//
// 사이클은 수 분까지 걸릴 수 있으므로 완료를 기다리지 않고 202(Accepted)를 반환하며,
// 운영자는 세션 조회 엔드포인트로 진행 상황을 확인합니다. 이미 실행 중인 사이클이
// 있으면 409(Conflict)를 반환하고 새 사이클은 시작되지 않습니다.
func (h *Handler) TriggerCycleHandler(c echo.Context) error {
	applog.WithComponentAndFields(handlerComponent, applog.Fields{
		"remote_ip": c.RealIP(),
	}).Info("수동 사이클 트리거 요청을 수신했습니다")

	// 사이클의 생명주기를 HTTP 요청과 분리합니다. 요청 종료가 사이클을 취소하면 안 됩니다.
	// 단, 서비스 종료 신호(cycleCtx)는 사이클까지 전파되며, 종료 절차는 cycleWG로
	// 실행 중인 사이클의 종료를 기다립니다.
	errC := make(chan error, 1)
	h.cycleWG.Add(1)
	go func() {
		defer h.cycleWG.Done()
		_, err := h.cycleRunner.RunCycle(h.cycleCtx, contract.RunByUser)
		errC <- err
	}()

	select {
	case err := <-errC:
		if err != nil {
			if errors.Is(err, ingestion.ErrCycleAlreadyRunning) {
				return c.JSON(http.StatusConflict, ErrorResponse{Message: "이미 실행 중인 수집 사이클이 있습니다."})
			}
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: err.Error()})
		}
		// 업스트림이 없거나 작은 설정에서는 사이클이 즉시 끝날 수 있습니다.
		return c.JSON(http.StatusOK, TriggerResponse{Message: "수집 사이클이 완료되었습니다."})

	case <-time.After(triggerConfirmWindow):
		return c.JSON(http.StatusAccepted, TriggerResponse{Message: "수집 사이클이 시작되었습니다."})
	}
}

// LatestSessionHandler 가장 최근에 생성된 수집 세션을 반환합니다.
func (h *Handler) LatestSessionHandler(c echo.Context) error {
	session, err := h.ledger.LatestSession(c.Request().Context())
	if err != nil {
		return h.sessionError(c, err)
	}

	return c.JSON(http.StatusOK, session)
}

// FindSessionHandler ID로 수집 세션을 조회하여 반환합니다.
func (h *Handler) FindSessionHandler(c echo.Context) error {
	id := contract.SessionID(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "세션 ID가 필요합니다."})
	}

	session, err := h.ledger.FindSession(c.Request().Context(), id)
	if err != nil {
		return h.sessionError(c, err)
	}

	return c.JSON(http.StatusOK, session)
}

func (h *Handler) sessionError(c echo.Context, err error) error {
	if errors.Is(err, contract.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: "수집 세션을 찾을 수 없습니다."})
	}

	applog.WithComponentAndFields(handlerComponent, applog.Fields{
		"error": err,
	}).Error("세션 조회 중 오류가 발생했습니다")

	return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "세션 조회 중 오류가 발생했습니다."})
}
