// Package dispatch 변경 이벤트 배치를 알림 채널들로 전달하는 디스패처를 제공합니다.
package dispatch

import (
	"context"

	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

const component = "ingestion.dispatch"

// Dispatcher 변경 이벤트를 종류별 배치로 묶어 등록된 모든 알림 채널에 전달합니다.
//
// 전달은 최선 노력(best-effort)입니다. 채널 하나의 실패나 패닉은 해당 채널에만
// 격리되어 로그로 기록되고, 다른 채널과 수집 사이클에는 영향을 주지 않습니다.
// 따라서 Dispatch는 에러를 반환하지 않습니다.
type Dispatcher struct {
	channels []contract.NotificationChannel
}

// New 새로운 디스패처를 생성합니다. nil 채널은 무시됩니다.
func New(channels ...contract.NotificationChannel) *Dispatcher {
	d := &Dispatcher{}
	for _, channel := range channels {
		if channel != nil {
			d.channels = append(d.channels, channel)
		}
	}
	return d
}

// Dispatch 이벤트들을 종류별 배치로 묶어 모든 활성 채널에 전달합니다.
// 이벤트가 없으면 아무 채널도 호출하지 않습니다.
func (d *Dispatcher) Dispatch(ctx context.Context, events []contract.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	for _, batch := range batchByKind(events) {
		for _, channel := range d.channels {
			if !channel.Enabled() {
				continue
			}
			d.deliverIsolated(ctx, channel, batch)
		}
	}
}

// deliverIsolated 단일 채널로의 전달을 수행하며, 에러와 패닉을 채널 내부로 격리합니다.
func (d *Dispatcher) deliverIsolated(ctx context.Context, channel contract.NotificationChannel, batch contract.ChangeBatch) {
	defer func() {
		if r := recover(); r != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"channel_id": channel.ID(),
				"kind":       batch.Kind,
				"panic":      r,
			}).Error("알림 전달 중 패닉이 발생하여 복구되었습니다.")
		}
	}()

	if err := channel.Deliver(ctx, batch); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"channel_id": channel.ID(),
			"kind":       batch.Kind,
			"events":     len(batch.Events),
			"error":      err,
		}).Error("알림 전달에 실패했습니다.")
		return
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"channel_id": channel.ID(),
		"kind":       batch.Kind,
		"events":     len(batch.Events),
	}).Debug("알림 전달이 완료되었습니다.")
}

// batchByKind 이벤트들을 종류별 배치로 묶습니다. 신규 매물 배치가 가격 변동 배치보다 먼저 옵니다.
func batchByKind(events []contract.ChangeEvent) []contract.ChangeBatch {
	grouped := make(map[contract.ChangeKind][]contract.ChangeEvent)
	for _, event := range events {
		grouped[event.Kind] = append(grouped[event.Kind], event)
	}

	batches := make([]contract.ChangeBatch, 0, len(grouped))
	for _, kind := range []contract.ChangeKind{contract.ChangeKindNew, contract.ChangeKindPriceChanged} {
		if kindEvents, exists := grouped[kind]; exists {
			batches = append(batches, contract.ChangeBatch{Kind: kind, Events: kindEvents})
		}
	}

	return batches
}
