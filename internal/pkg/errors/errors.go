// Package errors 애플리케이션 전용 에러 처리 시스템을 제공합니다.
//
// 표준 errors 패키지를 확장하여 타입 기반 에러 분류와 에러 체이닝을 지원합니다.
// 모든 에러는 ErrorType으로 분류되며, Wrap 함수를 통해 컨텍스트를 누적할 수 있습니다.
//
// 기본 사용법:
//
//	err := errors.New(errors.NotFound, "매물을 찾을 수 없습니다")
//
//	if err != nil {
//	    return errors.Wrap(err, errors.System, "데이터베이스 조회 실패")
//	}
//
//	if errors.Is(err, errors.NotFound) {
//	    // NotFound 타입 에러 처리
//	}
package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError 애플리케이션에서 발생하는 모든 에러를 표준화하여 표현하는 구조체입니다.
type AppError struct {
	errType ErrorType // 에러의 종류
	message string    // 사용자에게 보여줄 메시지
	cause   error     // 이 에러가 발생하게 된 근본 원인 (에러 체이닝)
}

// Type 에러의 타입을 반환합니다.
func (e *AppError) Type() ErrorType {
	return e.errType
}

// Message 에러 메시지를 반환합니다.
func (e *AppError) Message() string {
	return e.message
}

// Error 표준 errors.Error 인터페이스를 구현합니다.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.errType, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.errType, e.message)
}

// Unwrap 표준 errors.Unwrap 인터페이스를 구현합니다.
func (e *AppError) Unwrap() error {
	return e.cause
}

// New 지정된 타입과 메시지로 새로운 AppError를 생성합니다.
func New(errType ErrorType, message string) error {
	return &AppError{
		errType: errType,
		message: message,
	}
}

// Newf 지정된 타입과 포맷 문자열로 새로운 AppError를 생성합니다.
func Newf(errType ErrorType, format string, args ...any) error {
	return &AppError{
		errType: errType,
		message: fmt.Sprintf(format, args...),
	}
}

// Wrap 기존 에러를 원인(cause)으로 보존하면서 새로운 컨텍스트를 추가한 AppError를 생성합니다.
// err이 nil이면 nil을 반환하므로 호출부에서 별도의 nil 검사 없이 사용할 수 있습니다.
func Wrap(err error, errType ErrorType, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		errType: errType,
		message: message,
		cause:   err,
	}
}

// Wrapf 기존 에러를 원인으로 보존하면서 포맷 문자열로 컨텍스트를 추가합니다.
func Wrapf(err error, errType ErrorType, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &AppError{
		errType: errType,
		message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

// Is 에러 체인 안에 지정된 타입의 AppError가 존재하는지 검사합니다.
//
// 표준 errors.Is와 혼동하지 않도록 주의하십시오. 이 함수는 센티널 에러가 아닌
// ErrorType 단위의 분류를 검사합니다. 센티널 비교가 필요하면 IsError를 사용하십시오.
func Is(err error, errType ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if stderrors.As(err, &appErr) {
			if appErr.errType == errType {
				return true
			}
			err = appErr.cause
			continue
		}
		return false
	}
	return false
}

// IsError 표준 errors.Is의 별칭입니다. 센티널 에러 비교에 사용합니다.
func IsError(err, target error) bool {
	return stderrors.Is(err, target)
}

// TypeOf 에러 체인의 최상위 AppError 타입을 반환합니다.
// AppError가 아닌 에러는 Unknown으로 분류됩니다.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.errType
	}
	return Unknown
}

// RootCause 에러 체인을 끝까지 탐색하여 근본 원인 에러를 반환합니다.
func RootCause(err error) error {
	for {
		unwrapped := stderrors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
