package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/cronx"
)

// AppConfig 애플리케이션의 모든 설정을 관장하는 최상위 루트 구조체
type AppConfig struct {
	Debug     bool            `json:"debug"`
	Ingestion IngestionConfig `json:"ingestion"`
	Storage   StorageConfig   `json:"storage"`
	Notifiers NotifierConfig  `json:"notifiers"`
	API       APIConfig       `json:"api"`
}

// validate 설정 파일 로드 직후, 각 설정 항목의 정합성과 필수 값의 유효성을 검증합니다.
func (c *AppConfig) validate() error {
	if err := c.Ingestion.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if err := c.Notifiers.validate(); err != nil {
		return err
	}
	if err := c.API.validate(); err != nil {
		return err
	}
	return nil
}

// IngestionConfig 수집 엔진의 동작을 정의하는 설정 구조체
type IngestionConfig struct {
	Schedule ScheduleConfig `json:"schedule"`

	// PriceChangeThreshold 가격 변동으로 분류할 최소 가격 차이(통화 단위)입니다.
	// 기본값 1은 1 통화 단위 이상의 모든 차이를 변동으로 간주합니다.
	PriceChangeThreshold int64 `json:"price_change_threshold" validate:"min=1"`

	InterSourceDelayMS int `json:"inter_source_delay_ms" validate:"min=0"` // 소스 간 고정 대기 시간
	InterPageDelayMS   int `json:"inter_page_delay_ms" validate:"min=0"`   // 페이지 간 고정 대기 시간 (업스트림 부하 방지 계약)
	FetchTimeoutMS     int `json:"fetch_timeout_ms" validate:"min=1"`      // 페이지 요청 1회의 최대 허용 시간

	// Filters 알림 억제용 필터입니다. 분류나 영속화에는 영향을 주지 않습니다.
	Filters FilterConfig `json:"filters"`

	Sources []SourceConfig `json:"sources" validate:"unique=ID"`
}

func (c *IngestionConfig) validate() error {
	if err := validateStruct(c, "Ingestion"); err != nil {
		return err
	}

	if c.Schedule.Runnable {
		if err := cronx.Validate(c.Schedule.TimeSpec); err != nil {
			return apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("수집 스케줄(time_spec) 설정이 유효하지 않습니다: '%s'", c.Schedule.TimeSpec))
		}
	}

	if err := checkUniqueField(c.Sources, "ID", "Source"); err != nil {
		return err
	}

	for _, src := range c.Sources {
		if err := validateStruct(src, fmt.Sprintf("Source['%s']", src.ID)); err != nil {
			return err
		}

		for _, rawURL := range src.SearchURLs {
			u, err := url.Parse(rawURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("Source['%s']의 검색 URL이 올바르지 않습니다: '%s'", src.ID, rawURL))
			}
		}
	}

	return nil
}

// InterSourceDelay 소스 간 대기 시간을 Duration으로 반환합니다.
func (c *IngestionConfig) InterSourceDelay() time.Duration {
	return time.Duration(c.InterSourceDelayMS) * time.Millisecond
}

// InterPageDelay 페이지 간 대기 시간을 Duration으로 반환합니다.
func (c *IngestionConfig) InterPageDelay() time.Duration {
	return time.Duration(c.InterPageDelayMS) * time.Millisecond
}

// FetchTimeout 페이지 요청 타임아웃을 Duration으로 반환합니다.
func (c *IngestionConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// ScheduleConfig 수집 사이클의 정기 실행 스케줄을 정의하는 구조체
type ScheduleConfig struct {
	Runnable bool   `json:"runnable"`
	TimeSpec string `json:"time_spec"`
}

// FilterConfig 알림 발송 전 적용되는 관심 조건 필터 (0 또는 빈 값: 제한 없음)
type FilterConfig struct {
	MinPrice int64    `json:"min_price" validate:"min=0"`
	MaxPrice int64    `json:"max_price" validate:"min=0"`
	Cities   []string `json:"cities"`
}

// SourceConfig 업스트림 매물 소스 하나를 정의하는 구조체
type SourceConfig struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`

	// Format 업스트림 페이지 응답의 형식입니다. (json: JSON API, html: HTML 목록 페이지)
	Format string `json:"format" validate:"required,oneof=json html"`

	SearchURLs []string `json:"search_urls" validate:"required,min=1"`
	MaxPages   int      `json:"max_pages" validate:"min=1"`

	// Data 소스별 자유 형식 추가 설정 (maputil.Decode로 타입 변환하여 사용)
	Data map[string]any `json:"data"`
}

// StorageConfig 매물 저장소와 세션 원장의 백엔드를 정의하는 구조체
type StorageConfig struct {
	// Driver 저장소 드라이버입니다. (postgres: PostgreSQL, file: 로컬 JSON 파일)
	Driver string `json:"driver" validate:"required,oneof=postgres file"`

	// DSN PostgreSQL 연결 문자열 (driver=postgres일 때 필수)
	DSN string `json:"dsn"`

	// DataDir 파일 저장소의 기반 디렉토리 (driver=file일 때 사용, 빈 문자열: "data")
	DataDir string `json:"data_dir"`
}

func (c *StorageConfig) validate() error {
	if err := validateStruct(c, "Storage"); err != nil {
		return err
	}

	if c.Driver == "postgres" && strings.TrimSpace(c.DSN) == "" {
		return apperrors.New(apperrors.InvalidInput, "PostgreSQL 저장소 사용 시 연결 문자열(dsn)은 필수입니다")
	}

	return nil
}

// NotifierConfig 사이클 결과를 전달할 알림 채널들을 정의하는 설정 구조체
type NotifierConfig struct {
	Telegrams []TelegramChannelConfig `json:"telegrams" validate:"unique=ID"`
	Webhooks  []WebhookChannelConfig  `json:"webhooks" validate:"unique=ID"`
	Emails    []EmailChannelConfig    `json:"emails" validate:"unique=ID"`
	Desktop   DesktopChannelConfig    `json:"desktop"`
}

func (c *NotifierConfig) validate() error {
	if err := checkUniqueField(c.Telegrams, "ID", "Telegram Notifier"); err != nil {
		return err
	}
	if err := checkUniqueField(c.Webhooks, "ID", "Webhook Notifier"); err != nil {
		return err
	}
	if err := checkUniqueField(c.Emails, "ID", "Email Notifier"); err != nil {
		return err
	}

	for _, telegram := range c.Telegrams {
		if err := validateStruct(telegram, fmt.Sprintf("Telegram Notifier['%s']", telegram.ID)); err != nil {
			return err
		}
	}
	for _, webhook := range c.Webhooks {
		if err := validateStruct(webhook, fmt.Sprintf("Webhook Notifier['%s']", webhook.ID)); err != nil {
			return err
		}
	}
	for _, email := range c.Emails {
		if err := validateStruct(email, fmt.Sprintf("Email Notifier['%s']", email.ID)); err != nil {
			return err
		}
	}

	return nil
}

// TelegramChannelConfig 텔레그램 봇 토큰 및 채팅 ID 정보를 담는 설정 구조체
type TelegramChannelConfig struct {
	ID       string `json:"id" validate:"required"`
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token" validate:"required,telegram_bot_token"`
	ChatID   int64  `json:"chat_id" validate:"required"`
}

// WebhookChannelConfig 변경 이벤트 배치를 JSON으로 POST할 웹훅 엔드포인트 설정 구조체
type WebhookChannelConfig struct {
	ID      string `json:"id" validate:"required"`
	Enabled bool   `json:"enabled"`
	URL     string `json:"url" validate:"required,url"`
}

// EmailChannelConfig SMTP 기반 이메일 알림 채널 설정 구조체
type EmailChannelConfig struct {
	ID       string   `json:"id" validate:"required"`
	Enabled  bool     `json:"enabled"`
	SMTPHost string   `json:"smtp_host" validate:"required"`
	SMTPPort int      `json:"smtp_port" validate:"min=1,max=65535"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from" validate:"required,email"`
	To       []string `json:"to" validate:"required,min=1,dive,email"`
}

// DesktopChannelConfig 데스크톱(로그) 알림 채널 설정 구조체
type DesktopChannelConfig struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// APIConfig 운영용 REST API 서버 설정 구조체
type APIConfig struct {
	Runnable   bool `json:"runnable"`
	ListenPort int  `json:"listen_port" validate:"min=1,max=65535"`
}

func (c *APIConfig) validate() error {
	if !c.Runnable {
		return nil
	}
	return validateStruct(c, "API")
}
