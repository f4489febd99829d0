package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

// WebhookChannel 변경 이벤트 배치를 JSON으로 POST하는 알림 채널입니다.
// 수신 측 통합(Slack 브리지, 자체 대시보드 등)을 위한 범용 연동 지점입니다.
type WebhookChannel struct {
	id      contract.ChannelID
	enabled bool
	url     string
	client  *http.Client
}

var _ contract.NotificationChannel = (*WebhookChannel)(nil)

// NewWebhookChannel 웹훅 알림 채널을 생성합니다.
func NewWebhookChannel(cfg config.WebhookChannelConfig) *WebhookChannel {
	return &WebhookChannel{
		id:      contract.ChannelID(cfg.ID),
		enabled: cfg.Enabled,
		url:     cfg.URL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ID 채널의 고유 식별자를 반환합니다.
func (c *WebhookChannel) ID() contract.ChannelID {
	return c.id
}

// Enabled 채널의 활성화 여부를 반환합니다.
func (c *WebhookChannel) Enabled() bool {
	return c.enabled
}

// Deliver 배치 전체를 JSON 본문으로 엔드포인트에 POST합니다.
// 2xx 이외의 응답은 실패로 취급합니다.
func (c *WebhookChannel) Deliver(ctx context.Context, batch contract.ChangeBatch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "웹훅 페이로드 직렬화에 실패했습니다")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "웹훅 요청 생성에 실패했습니다")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "웹훅 요청 전송에 실패했습니다")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))
		resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apperrors.New(apperrors.Unavailable,
			fmt.Sprintf("웹훅 엔드포인트가 실패 응답을 반환했습니다. (StatusCode: %d)", resp.StatusCode))
	}

	return nil
}
