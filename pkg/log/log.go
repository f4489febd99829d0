// Package log logrus 기반의 전역 로깅 시스템을 제공합니다.
//
// 애플리케이션의 모든 컴포넌트는 WithComponent 계열 함수를 통해 컴포넌트 이름이
// 태깅된 구조화 로그를 남깁니다. 파일 출력은 lumberjack을 통해 로테이션됩니다.
package log

import (
	log "github.com/sirupsen/logrus"
)

// SetDebugMode 디버그 모드 여부에 따라 전역 로그 레벨을 조정합니다.
// 환경설정 로드 후 최종 로그 레벨을 확정할 때 사용합니다.
func SetDebugMode(debug bool) {
	if debug {
		log.SetLevel(log.TraceLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// StandardLogger 전역 logrus 로거를 반환합니다.
// 외부 라이브러리(cron 등)에 로거를 주입할 때 사용합니다.
func StandardLogger() *log.Logger {
	return log.StandardLogger()
}

// WithComponent 컴포넌트 이름이 태깅된 로그 Entry를 반환합니다.
func WithComponent(component string) *log.Entry {
	return log.WithField("component", component)
}

// WithComponentAndFields 컴포넌트 이름과 추가 필드가 태깅된 로그 Entry를 반환합니다.
func WithComponentAndFields(component string, fields log.Fields) *log.Entry {
	return log.WithField("component", component).WithFields(fields)
}

// WithError 에러가 태깅된 로그 Entry를 반환합니다.
func WithError(err error) *log.Entry {
	return log.WithError(err)
}
