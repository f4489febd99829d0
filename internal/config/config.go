package config

import (
	"fmt"
	"os"
	"strings"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// AppName 애플리케이션의 전역 고유 식별자입니다.
	AppName string = "realestate-finder"

	// DefaultFilename 애플리케이션 초기화 시 참조하는 기본 설정 파일명입니다.
	// 실행 인자를 통해 명시적인 경로가 제공되지 않을 경우, 시스템은 이 파일을 탐색하여 구성을 로드합니다.
	DefaultFilename = AppName + ".json"

	// ------------------------------------------------------------------------------------------------
	// 수집 정책 기본값
	// ------------------------------------------------------------------------------------------------

	// DefaultPriceChangeThreshold 가격 변동으로 분류할 최소 가격 차이 기본값 (1: 모든 차이를 변동으로 간주)
	DefaultPriceChangeThreshold = 1

	// DefaultInterSourceDelayMS 소스 간 대기 시간 기본값
	DefaultInterSourceDelayMS = 2000

	// DefaultInterPageDelayMS 페이지 간 대기 시간 기본값
	DefaultInterPageDelayMS = 1000

	// DefaultFetchTimeoutMS 업스트림 페이지 요청 1회의 타임아웃 기본값
	DefaultFetchTimeoutMS = 30000

	// DefaultListenPort 운영 API 서버의 기본 포트
	DefaultListenPort = 8080
)

// Load 기본 설정 파일을 읽어 애플리케이션 설정을 로드합니다.
func Load() (*AppConfig, error) {
	return LoadWithFile(DefaultFilename)
}

// LoadWithFile 지정된 경로의 설정 파일을 읽어 AppConfig 객체를 생성합니다.
func LoadWithFile(filename string) (*AppConfig, error) {
	k := koanf.New(".")

	// 1. 기본값 로드 (가장 낮은 우선순위)
	err := k.Load(confmap.Provider(map[string]interface{}{
		"ingestion.price_change_threshold": DefaultPriceChangeThreshold,
		"ingestion.inter_source_delay_ms":  DefaultInterSourceDelayMS,
		"ingestion.inter_page_delay_ms":    DefaultInterPageDelayMS,
		"ingestion.fetch_timeout_ms":       DefaultFetchTimeoutMS,
		"storage.driver":                   "file",
		"storage.data_dir":                 "data",
		"api.listen_port":                  DefaultListenPort,
	}, "."), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "애플리케이션 기본 설정 로드에 실패했습니다")
	}

	// 2. JSON 설정 파일 로드 (기본값 덮어쓰기)
	if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(err, apperrors.System, fmt.Sprintf("설정 파일을 찾을 수 없습니다: '%s'", filename))
		}
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일 로드 중 오류가 발생했습니다: '%s'", filename))
	}

	// 3. 환경 변수 로드 (최우선 순위, JSON 설정 덮어쓰기)
	// 접두사: FINDER_
	// 구분자: 이중 언더스코어(__)를 점(.)으로 변환 (계층 구조 표현)
	// 예: FINDER_STORAGE__DSN -> storage.dsn
	if err := k.Load(env.Provider("FINDER_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "FINDER_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "환경 변수 로드에 실패했습니다")
	}

	// 4. 구조체 언마샬링 (Strict Validation 적용)
	var appConfig AppConfig
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			ErrorUnused:      true, // 파일에 존재하지만 구조체에 없는 필드가 있을 경우 에러를 발생시킴
			WeaklyTypedInput: true,
			Result:           &appConfig,
		},
	}
	if err := k.UnmarshalWithConf("", &appConfig, unmarshalConf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "설정 데이터를 애플리케이션 구조체로 변환하는데 실패했습니다")
	}

	// 5. 유효성 검사 수행 (정합성 체크)
	if err := appConfig.validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일('%s')의 유효성 검증에 실패했습니다", filename))
	}

	return &appConfig, nil
}
