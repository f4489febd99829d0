package contract

import (
	"context"
)

// ChannelID 알림 채널의 식별자입니다.
type ChannelID string

// NotificationChannel 변경 이벤트 배치를 전달받는 알림 채널의 공통 계약입니다.
//
// 디스패처는 모든 채널을 이 인터페이스를 통해 동일하게 취급하며,
// 채널 하나의 실패가 다른 채널이나 호출 사이클로 전파되지 않도록 격리합니다.
// 전달은 최선 노력(best-effort), 최소 1회(at-least-once)이며 수신 확인은 추적하지 않습니다.
type NotificationChannel interface {
	// ID 채널의 고유 식별자를 반환합니다.
	ID() ChannelID

	// Enabled 채널의 활성화 여부를 반환합니다. 비활성 채널은 디스패처가 건너뜁니다.
	Enabled() bool

	// Deliver 한 사이클에서 발생한 동일 종류의 이벤트 배치를 전달합니다.
	Deliver(ctx context.Context, batch ChangeBatch) error
}

// CycleRunner 수집 사이클 1회를 동기적으로 실행하는 계약입니다.
// 스케줄러와 운영 API가 이 인터페이스를 통해 사이클을 트리거합니다.
type CycleRunner interface {
	// RunCycle 사이클을 실행하고 확정된 세션을 반환합니다.
	//
	// 이미 실행 중인 사이클이 있으면 새 사이클을 만들지 않고 에러를 반환합니다.
	// 정상 운영 중 발생하는 에러는 세션 상태로 변환되며, RunCycle 밖으로
	// 전파되는 에러는 중복 실행 거부 또는 원장 기록 실패 같은 예외 상황뿐입니다.
	RunCycle(ctx context.Context, runBy RunBy) (*IngestionSession, error)
}
