package dispatch

import (
	"context"

	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

// defaultDesktopChannelID 설정에 ID가 지정되지 않았을 때 사용하는 채널 식별자입니다.
const defaultDesktopChannelID = "desktop"

// DesktopChannel 변경 이벤트 배치를 애플리케이션 로그로 출력하는 알림 채널입니다.
// 외부 연동 없이 로컬 실행만으로 변경 내역을 확인하는 개발/검증 용도입니다.
type DesktopChannel struct {
	id      contract.ChannelID
	enabled bool
}

var _ contract.NotificationChannel = (*DesktopChannel)(nil)

// NewDesktopChannel 데스크톱(로그) 알림 채널을 생성합니다.
func NewDesktopChannel(cfg config.DesktopChannelConfig) *DesktopChannel {
	id := cfg.ID
	if id == "" {
		id = defaultDesktopChannelID
	}
	return &DesktopChannel{
		id:      contract.ChannelID(id),
		enabled: cfg.Enabled,
	}
}

// ID 채널의 고유 식별자를 반환합니다.
func (c *DesktopChannel) ID() contract.ChannelID {
	return c.id
}

// Enabled 채널의 활성화 여부를 반환합니다.
func (c *DesktopChannel) Enabled() bool {
	return c.enabled
}

// Deliver 배치 내용을 Info 레벨 로그로 출력합니다.
func (c *DesktopChannel) Deliver(_ context.Context, batch contract.ChangeBatch) error {
	applog.WithComponentAndFields(component, applog.Fields{
		"channel_id": c.id,
		"kind":       batch.Kind,
		"events":     len(batch.Events),
	}).Info(BuildPlainMessage(batch))

	return nil
}
