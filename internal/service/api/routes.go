package api

import (
	"github.com/labstack/echo/v4"
)

// SetupRoutes API 서비스의 모든 라우트를 등록합니다.
//
// 엔드포인트 구성:
//   - GET  /healthz                        : 헬스체크 (모니터링용)
//   - GET  /api/v1/version                 : 빌드 버전 정보
//   - POST /api/v1/ingestion/run           : 수집 사이클 수동 트리거
//   - GET  /api/v1/ingestion/sessions/latest : 최근 세션 조회
//   - GET  /api/v1/ingestion/sessions/:id  : 세션 단건 조회
func SetupRoutes(e *echo.Echo, h *Handler) {
	e.GET("/healthz", h.HealthCheckHandler)

	v1 := e.Group("/api/v1")
	v1.GET("/version", h.VersionHandler)

	ingestionGroup := v1.Group("/ingestion")
	ingestionGroup.POST("/run", h.TriggerCycleHandler)
	ingestionGroup.GET("/sessions/latest", h.LatestSessionHandler)
	ingestionGroup.GET("/sessions/:id", h.FindSessionHandler)
}
