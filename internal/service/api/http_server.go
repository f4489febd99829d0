package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	defaultReadTimeout       = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second

	// defaultBodyLimit 요청 본문 크기 제한입니다. 운영 API는 본문이 거의 없으므로 작게 유지합니다.
	defaultBodyLimit = "64K"
)

// NewHTTPServer 미들웨어가 설정된 Echo 인스턴스를 생성합니다.
//
// 미들웨어 적용 순서:
//  1. Recover - 핸들러 패닉 복구 (서버 다운 방지)
//  2. RequestID - 요청별 고유 ID 부여 (로그 추적용)
//  3. BodyLimit - 요청 본문 크기 제한
//
// 라우트 설정은 포함되지 않으며, 반환된 Echo 인스턴스에 별도로 설정해야 합니다.
func NewHTTPServer(debug bool) *echo.Echo {
	e := echo.New()

	e.Debug = debug
	e.HideBanner = true

	// 비정상 클라이언트의 연결 점유를 방지하기 위한 서버 타임아웃 설정
	e.Server.ReadTimeout = defaultReadTimeout
	e.Server.ReadHeaderTimeout = defaultReadHeaderTimeout
	e.Server.WriteTimeout = defaultWriteTimeout
	e.Server.IdleTimeout = defaultIdleTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(defaultBodyLimit))

	return e
}
