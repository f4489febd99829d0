package dispatch

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

// EmailChannel SMTP를 통해 변경 이벤트 배치를 전달하는 알림 채널입니다.
type EmailChannel struct {
	id      contract.ChannelID
	enabled bool

	host     string
	port     int
	username string
	password string
	from     string
	to       []string

	// send 테스트에서 실제 SMTP 호출을 대체할 수 있도록 주입 가능한 전송 함수입니다.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

var _ contract.NotificationChannel = (*EmailChannel)(nil)

// NewEmailChannel 이메일 알림 채널을 생성합니다.
func NewEmailChannel(cfg config.EmailChannelConfig) *EmailChannel {
	return &EmailChannel{
		id:       contract.ChannelID(cfg.ID),
		enabled:  cfg.Enabled,
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		to:       cfg.To,
		send:     smtp.SendMail,
	}
}

// ID 채널의 고유 식별자를 반환합니다.
func (c *EmailChannel) ID() contract.ChannelID {
	return c.id
}

// Enabled 채널의 활성화 여부를 반환합니다.
func (c *EmailChannel) Enabled() bool {
	return c.enabled
}

// Deliver 배치를 일반 텍스트 이메일로 전송합니다.
func (c *EmailChannel) Deliver(ctx context.Context, batch contract.ChangeBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if c.username != "" {
		auth = smtp.PlainAuth("", c.username, c.password, c.host)
	}

	message := buildMIMEMessage(c.from, c.to, batchTitle(batch), BuildPlainMessage(batch))

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	if err := c.send(addr, auth, c.from, c.to, message); err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "이메일 전송에 실패했습니다")
	}

	return nil
}

// buildMIMEMessage RFC 5322 형식의 이메일 본문을 생성합니다.
func buildMIMEMessage(from string, to []string, subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(sb.String())
}
