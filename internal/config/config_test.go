package config

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Unit Tests: Validation Logic (AppConfig.validate)
// =============================================================================

func TestAppConfig_Validate_TableDriven(t *testing.T) {
	t.Parallel()

	// 1. Base Valid Configuration Factory
	baseConfig := func() *AppConfig {
		return &AppConfig{
			Debug: true,
			Ingestion: IngestionConfig{
				Schedule:             ScheduleConfig{Runnable: true, TimeSpec: "0 0 * * * *"},
				PriceChangeThreshold: 1,
				InterSourceDelayMS:   2000,
				InterPageDelayMS:     1000,
				FetchTimeoutMS:       30000,
				Sources: []SourceConfig{
					{
						ID:         "luximmo",
						Name:       "LUXIMMO",
						Format:     "html",
						SearchURLs: []string{"https://www.luximmo.com/ajax/map-searched-estates.php?page=1"},
						MaxPages:   30,
					},
				},
			},
			Storage: StorageConfig{Driver: "file", DataDir: "data"},
			Notifiers: NotifierConfig{
				Telegrams: []TelegramChannelConfig{
					{ID: "telegram-1", Enabled: true, BotToken: "123456789:ABC-DEF1234ghIkl-zyx57W2v1u123ew11", ChatID: 12345},
				},
				Webhooks: []WebhookChannelConfig{
					{ID: "webhook-1", Enabled: true, URL: "https://hooks.example.com/listings"},
				},
				Emails: []EmailChannelConfig{
					{ID: "email-1", Enabled: false, SMTPHost: "smtp.example.com", SMTPPort: 587, From: "bot@example.com", To: []string{"me@example.com"}},
				},
			},
			API: APIConfig{Runnable: true, ListenPort: 8080},
		}
	}

	tests := []struct {
		name        string
		modifier    func(*AppConfig) // Config을 망가뜨리는 함수
		expectError bool
		errorMsg    string
	}{
		// Happy Path
		{
			name:        "Valid Configuration",
			modifier:    func(c *AppConfig) {},
			expectError: false,
		},
		// Ingestion
		{
			name:        "Ingestion: Zero Price Change Threshold",
			modifier:    func(c *AppConfig) { c.Ingestion.PriceChangeThreshold = 0 },
			expectError: true,
			errorMsg:    "가격 변동 임계값(price_change_threshold)은 1 이상이어야 합니다",
		},
		{
			name:        "Ingestion: Zero Fetch Timeout",
			modifier:    func(c *AppConfig) { c.Ingestion.FetchTimeoutMS = 0 },
			expectError: true,
			errorMsg:    "페이지 요청 타임아웃(fetch_timeout_ms)은 0보다 커야 합니다",
		},
		{
			name:        "Ingestion: Invalid Cron Spec",
			modifier:    func(c *AppConfig) { c.Ingestion.Schedule.TimeSpec = "invalid-cron" },
			expectError: true,
			errorMsg:    "수집 스케줄(time_spec) 설정이 유효하지 않습니다",
		},
		{
			name: "Ingestion: Invalid Cron Spec Ignored When Not Runnable",
			modifier: func(c *AppConfig) {
				c.Ingestion.Schedule.Runnable = false
				c.Ingestion.Schedule.TimeSpec = "invalid-cron"
			},
			expectError: false,
		},
		// Sources
		{
			name: "Source: Duplicate ID",
			modifier: func(c *AppConfig) {
				c.Ingestion.Sources = append(c.Ingestion.Sources, c.Ingestion.Sources[0])
			},
			expectError: true,
			errorMsg:    "중복된 Source ID가 존재합니다",
		},
		{
			name:        "Source: Unknown Format",
			modifier:    func(c *AppConfig) { c.Ingestion.Sources[0].Format = "xml" },
			expectError: true,
			errorMsg:    "응답 형식(format)은 'json' 또는 'html'이어야 합니다",
		},
		{
			name:        "Source: No Search URLs",
			modifier:    func(c *AppConfig) { c.Ingestion.Sources[0].SearchURLs = nil },
			expectError: true,
			errorMsg:    "최소 1개 이상의 검색 URL(search_urls)을 포함해야 합니다",
		},
		{
			name:        "Source: Malformed Search URL",
			modifier:    func(c *AppConfig) { c.Ingestion.Sources[0].SearchURLs = []string{"ftp://bad-scheme.com"} },
			expectError: true,
			errorMsg:    "검색 URL이 올바르지 않습니다",
		},
		// Storage
		{
			name:        "Storage: Unknown Driver",
			modifier:    func(c *AppConfig) { c.Storage.Driver = "mysql" },
			expectError: true,
			errorMsg:    "저장소 드라이버(driver)는 'postgres' 또는 'file'이어야 합니다",
		},
		{
			name: "Storage: Postgres Without DSN",
			modifier: func(c *AppConfig) {
				c.Storage.Driver = "postgres"
				c.Storage.DSN = "  "
			},
			expectError: true,
			errorMsg:    "연결 문자열(dsn)은 필수입니다",
		},
		// Notifiers
		{
			name: "Notifier: Duplicate Telegram ID",
			modifier: func(c *AppConfig) {
				c.Notifiers.Telegrams = append(c.Notifiers.Telegrams, TelegramChannelConfig{
					ID: "telegram-1", BotToken: "987654321:XYZ-DEF1234ghIkl-zyx57W2v1u123ew11", ChatID: 999,
				})
			},
			expectError: true,
			errorMsg:    "중복된 Telegram Notifier ID가 존재합니다",
		},
		{
			name: "Notifier: Invalid Bot Token",
			modifier: func(c *AppConfig) {
				c.Notifiers.Telegrams[0].BotToken = "invalid-token"
			},
			expectError: true,
			errorMsg:    "텔레그램 BotToken 형식이 올바르지 않습니다",
		},
		{
			name: "Notifier: Invalid Webhook URL",
			modifier: func(c *AppConfig) {
				c.Notifiers.Webhooks[0].URL = "not-a-url"
			},
			expectError: true,
			errorMsg:    "url",
		},
		{
			name: "Notifier: Email Without Recipients",
			modifier: func(c *AppConfig) {
				c.Notifiers.Emails[0].To = nil
			},
			expectError: true,
			errorMsg:    "to",
		},
		// API
		{
			name:        "API: Invalid Listen Port",
			modifier:    func(c *AppConfig) { c.API.ListenPort = -1 },
			expectError: true,
			errorMsg:    "운영 API 포트(listen_port)는 1에서 65535 사이의 값이어야 합니다",
		},
		{
			name: "API: Invalid Port Ignored When Not Runnable",
			modifier: func(c *AppConfig) {
				c.API.Runnable = false
				c.API.ListenPort = -1
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		tt := tt // Capture range variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := baseConfig()
			tt.modifier(cfg)

			err := cfg.validate()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIngestionConfig_Durations(t *testing.T) {
	t.Parallel()

	cfg := IngestionConfig{InterSourceDelayMS: 2000, InterPageDelayMS: 1500, FetchTimeoutMS: 30000}

	assert.Equal(t, "2s", cfg.InterSourceDelay().String())
	assert.Equal(t, "1.5s", cfg.InterPageDelay().String())
	assert.Equal(t, "30s", cfg.FetchTimeout().String())
}

// =============================================================================
// Integration Tests: Load Logic
// =============================================================================

func TestLoad_Integration(t *testing.T) {
	// t.Setenv를 사용하는 테스트는 병렬 실행 시 간섭이 발생할 수 있으므로 순차 실행합니다.

	createTempConfig := func(t *testing.T, content string) string {
		t.Helper()
		dir := t.TempDir()
		path := filepath.Join(dir, "config.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	validJSON := `{
		"ingestion": {
			"schedule": {"runnable": false, "time_spec": ""},
			"sources": [{
				"id": "luximmo",
				"name": "LUXIMMO",
				"format": "html",
				"search_urls": ["https://www.luximmo.com/ajax/map-searched-estates.php"],
				"max_pages": 30
			}]
		},
		"storage": {"driver": "file"},
		"notifiers": {},
		"api": {"runnable": false}
	}`

	t.Run("Priority: Env > File > Defaults", func(t *testing.T) {
		jsonContent := `{
			"ingestion": {
				"inter_page_delay_ms": 500,
				"sources": [{
					"id": "luximmo",
					"format": "html",
					"search_urls": ["https://www.luximmo.com/ajax/map-searched-estates.php"],
					"max_pages": 30
				}]
			}
		}`
		path := createTempConfig(t, jsonContent)

		// Env Config (Overrides File)
		t.Setenv("FINDER_INGESTION__INTER_PAGE_DELAY_MS", "250")

		cfg, err := LoadWithFile(path)
		require.NoError(t, err)

		assert.Equal(t, 250, cfg.Ingestion.InterPageDelayMS, "Environment variable should take precedence over file")
		assert.Equal(t, int64(DefaultPriceChangeThreshold), cfg.Ingestion.PriceChangeThreshold, "Default value should persist if not overridden")
		assert.Equal(t, DefaultFetchTimeoutMS, cfg.Ingestion.FetchTimeoutMS)
		assert.Equal(t, "file", cfg.Storage.Driver)
		assert.Equal(t, "data", cfg.Storage.DataDir)
	})

	t.Run("Valid Full Configuration", func(t *testing.T) {
		path := createTempConfig(t, validJSON)

		cfg, err := LoadWithFile(path)
		require.NoError(t, err)
		require.Len(t, cfg.Ingestion.Sources, 1)
		assert.Equal(t, "luximmo", cfg.Ingestion.Sources[0].ID)
		assert.Equal(t, DefaultListenPort, cfg.API.ListenPort)
	})

	t.Run("Error: File Not Found", func(t *testing.T) {
		cfg, err := LoadWithFile("non-existent-config.json")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.True(t, apperrors.Is(err, apperrors.System))
		assert.Contains(t, err.Error(), "설정 파일을 찾을 수 없습니다")
	})

	t.Run("Error: Malformed JSON", func(t *testing.T) {
		path := createTempConfig(t, "{ invalid_json: ... }")
		cfg, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "설정 파일 로드 중 오류")
	})

	t.Run("Error: Unknown Fields (Strict Unmarshal)", func(t *testing.T) {
		path := createTempConfig(t, `{"unknown_field": "oops", "debug": true}`)
		cfg, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "구조체로 변환하는데 실패했습니다")
	})

	t.Run("Error: Validation Failure After Load", func(t *testing.T) {
		jsonContent := `{
			"ingestion": {
				"sources": [{
					"id": "luximmo",
					"format": "pdf",
					"search_urls": ["https://www.luximmo.com/"],
					"max_pages": 30
				}]
			}
		}`
		path := createTempConfig(t, jsonContent)
		cfg, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
		assert.Contains(t, err.Error(), "응답 형식(format)은 'json' 또는 'html'이어야 합니다")
	})
}
