package dispatch

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

// telegramSendLimit 텔레그램 메시지 전송 Rate Limit입니다.
// 텔레그램 API의 초당 전송 제한보다 보수적인 값을 사용합니다.
const telegramSendLimit = rate.Limit(1)

// telegramSendBurst Rate Limiter의 버스트 허용량입니다.
const telegramSendBurst = 3

// telegramMaxRetries 텔레그램 API 호출 최대 시도 횟수입니다.
const telegramMaxRetries = 3

// telegramSender 텔레그램 메시지 전송 클라이언트의 최소 계약입니다. (테스트 대체용)
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel 텔레그램 봇을 통해 변경 이벤트 배치를 전달하는 알림 채널입니다.
type TelegramChannel struct {
	id      contract.ChannelID
	enabled bool
	chatID  int64

	client  telegramSender
	limiter *rate.Limiter
}

var _ contract.NotificationChannel = (*TelegramChannel)(nil)

// NewTelegramChannel 텔레그램 알림 채널을 생성합니다.
// 생성 시점에 봇 토큰으로 텔레그램 API 인증을 수행하므로 네트워크 접근이 필요합니다.
func NewTelegramChannel(cfg config.TelegramChannelConfig) (*TelegramChannel, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	botAPI, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "텔레그램 봇 초기화에 실패했습니다")
	}

	return &TelegramChannel{
		id:      contract.ChannelID(cfg.ID),
		enabled: cfg.Enabled,
		chatID:  cfg.ChatID,
		client:  botAPI,
		limiter: rate.NewLimiter(telegramSendLimit, telegramSendBurst),
	}, nil
}

// ID 채널의 고유 식별자를 반환합니다.
func (c *TelegramChannel) ID() contract.ChannelID {
	return c.id
}

// Enabled 채널의 활성화 여부를 반환합니다.
func (c *TelegramChannel) Enabled() bool {
	return c.enabled
}

// Deliver 배치를 HTML 메시지로 변환하여 전송합니다.
//
// 일시적 오류에 대비해 최대 3회 시도하며, HTML 파싱 오류(400)가 발생하면
// 일반 텍스트로 전환하여 한 번 더 시도합니다.
func (c *TelegramChannel) Deliver(ctx context.Context, batch contract.ChangeBatch) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := c.sendWithRetry(ctx, BuildHTMLMessage(batch), tgbotapi.ModeHTML); err != nil {
		if !isParseError(err) {
			return err
		}

		applog.WithComponentAndFields(component, applog.Fields{
			"channel_id": c.id,
			"error":      err,
		}).Warn("HTML 메시지 전송에 실패하여 일반 텍스트로 재시도합니다.")

		return c.sendWithRetry(ctx, BuildPlainMessage(batch), "")
	}

	return nil
}

func (c *TelegramChannel) sendWithRetry(ctx context.Context, message, parseMode string) error {
	messageConfig := tgbotapi.NewMessage(c.chatID, message)
	messageConfig.ParseMode = parseMode
	messageConfig.DisableWebPagePreview = true

	var lastErr error
	for attempt := 1; attempt <= telegramMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := c.client.Send(messageConfig)
		if err == nil {
			return nil
		}
		lastErr = err

		// 파싱 오류는 재시도해도 동일하게 실패하므로 즉시 호출자에게 넘깁니다.
		if isParseError(err) {
			return err
		}

		applog.WithComponentAndFields(component, applog.Fields{
			"channel_id": c.id,
			"attempt":    attempt,
			"error":      err,
		}).Warn("텔레그램 메시지 전송에 실패했습니다.")
	}

	return apperrors.Wrap(lastErr, apperrors.Unavailable, "텔레그램 메시지 전송이 모든 재시도에서 실패했습니다")
}

// isParseError 텔레그램 API의 메시지 파싱 오류(400 Bad Request) 여부를 판별합니다.
func isParseError(err error) bool {
	if apiErr, ok := err.(*tgbotapi.Error); ok {
		return apiErr.Code == http.StatusBadRequest
	}
	if apiErr, ok := err.(tgbotapi.Error); ok {
		return apiErr.Code == http.StatusBadRequest
	}
	return false
}
