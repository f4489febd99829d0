// Package service 애플리케이션을 구성하는 장기 실행 서비스들의 공통 생명주기를 정의합니다.
package service

import (
	"context"
	"sync"
)

// Service 애플리케이션에서 실행되는 장기 실행 서비스의 공통 인터페이스입니다.
//
// Start는 서비스를 시작한 후 즉시 반환해야 하며, serviceStopCtx가 취소되면
// 내부 리소스를 정리한 후 serviceStopWG.Done()을 호출하여 종료 완료를 알려야 합니다.
type Service interface {
	Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error
}
