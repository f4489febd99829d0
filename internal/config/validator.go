package config

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var (
	// 텔레그램 봇 토큰 검증을 위한 정규식 (예: 123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11)
	telegramBotTokenRegex = regexp.MustCompile(`^\d{3,20}:[a-zA-Z0-9_-]{30,50}$`)

	// defaultValidator 설정 검증 전반에서 공유되는 Validator 인스턴스
	defaultValidator = newValidator()
)

// newValidator 새로운 Validator 인스턴스를 생성하고 커스텀 유효성 검사 함수를 등록합니다.
func newValidator() *validator.Validate {
	v := validator.New()

	// 검증 에러가 났을 때, 에러 메시지에 Go 구조체 필드명(예: SearchURLs) 대신 JSON 이름(예: search_urls)을 보여주도록 설정합니다.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// 커스텀 유효성 검사 함수 등록
	if err := v.RegisterValidation("telegram_bot_token", validateTelegramBotToken); err != nil {
		panic(fmt.Sprintf("초기화 치명적 오류: 'telegram_bot_token' 커스텀 유효성 검사 함수 등록에 실패했습니다: %v", err))
	}

	return v
}

// validateTelegramBotToken 입력된 문자열이 유효한 텔레그램 봇 토큰 형식인지 검증합니다.
//
// 텔레그램 봇 토큰은 식별자(숫자)와 비밀키(문자열)가 콜론(:)으로 구분된 형태여야 합니다.
// 예: "123456789:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"
func validateTelegramBotToken(fl validator.FieldLevel) bool {
	return telegramBotTokenRegex.MatchString(fl.Field().String())
}

// validateStruct 구조체 인스턴스의 유효성을 태그 규칙에 따라 검증하고, 발생한 오류를 사용자 친화적인 도메인 에러로 변환합니다.
func validateStruct(s interface{}, contextName string) error {
	if err := defaultValidator.Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			// 첫 번째 에러만 상세히 보고
			firstErr := validationErrors[0]

			// 필드별(Field) 커스텀 에러 처리
			switch firstErr.StructField() {
			case "PriceChangeThreshold":
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("가격 변동 임계값(price_change_threshold)은 1 이상이어야 합니다: '%v'", firstErr.Value()))
			case "FetchTimeoutMS":
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("페이지 요청 타임아웃(fetch_timeout_ms)은 0보다 커야 합니다: '%v'", firstErr.Value()))
			case "ListenPort":
				return apperrors.New(apperrors.InvalidInput, "운영 API 포트(listen_port)는 1에서 65535 사이의 값이어야 합니다")
			case "Format":
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s의 응답 형식(format)은 'json' 또는 'html'이어야 합니다: '%v'", contextName, firstErr.Value()))
			case "Driver":
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("저장소 드라이버(driver)는 'postgres' 또는 'file'이어야 합니다: '%v'", firstErr.Value()))
			case "SearchURLs":
				if firstErr.Tag() == "required" || firstErr.Tag() == "min" {
					return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s는 최소 1개 이상의 검색 URL(search_urls)을 포함해야 합니다", contextName))
				}
			}

			// 태그별(Tag) 커스텀 에러 처리 (범용)
			switch firstErr.Tag() {
			case "unique":
				// unique 태그 에러는 "중복된 ID가 존재합니다" 형태로 통일 (전체 슬라이스 덤프 방지)
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s 내에 중복된 %s ID가 존재합니다 (설정 값을 확인해주세요)", contextName, firstErr.Field()))

			case "telegram_bot_token":
				return apperrors.New(apperrors.InvalidInput, "텔레그램 BotToken 형식이 올바르지 않습니다 (올바른 형식: 123456:ABC-DEF...)")
			}

			return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s의 설정이 올바르지 않습니다: %s (조건: %s)", contextName, firstErr.Field(), firstErr.Tag()))
		}
		return apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("%s 유효성 검증에 실패했습니다", contextName))
	}
	return nil
}

// checkUniqueField 슬라이스 내의 특정 필드 값이 유일한지 검사합니다.
func checkUniqueField(data interface{}, fieldName, contextName string) error {
	if err := defaultValidator.Var(data, "unique="+fieldName); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range validationErrors {
				if fieldErr.Tag() == "unique" {
					return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("중복된 %s ID가 존재합니다: '%v'", contextName, fieldErr.Value()))
				}
			}
		}
		return apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("%s 유일성 검증에 실패했습니다", contextName))
	}
	return nil
}
