package store

import (
	"fmt"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
)

// NewErrDirectoryAccessFailed 저장소 초기화 시 디렉토리 생성 또는 접근 권한 확인에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrDirectoryAccessFailed(err error, dir string) error {
	return apperrors.Wrap(err, apperrors.Internal, fmt.Sprintf("저장소 초기화 실패: 디렉토리 접근 불가 (%s)", dir))
}

// NewErrJSONMarshalFailed 매물 데이터를 JSON으로 직렬화하는 데 실패했을 때 반환하는 에러를 생성합니다.
func NewErrJSONMarshalFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "데이터 처리 실패: 매물 데이터 직렬화(JSON Marshal) 중 오류가 발생했습니다")
}

// NewErrJSONUnmarshalFailed 매물 데이터를 JSON에서 역직렬화하는 데 실패했을 때 반환하는 에러를 생성합니다.
func NewErrJSONUnmarshalFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "데이터 처리 실패: 매물 데이터 역직렬화(JSON Unmarshal) 중 오류가 발생했습니다")
}

// NewErrFileReadFailed 매물 데이터 파일을 읽는 데 실패했을 때 반환하는 에러를 생성합니다.
func NewErrFileReadFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "매물 조회 실패: 저장된 매물 데이터 파일 읽기 처리 중 오류가 발생했습니다")
}

// NewErrFileWriteFailed 매물 데이터 파일 쓰기에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrFileWriteFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "매물 저장 실패: 파일 쓰기 중 오류가 발생했습니다")
}

// NewErrQueryFailed 데이터베이스 질의 실행에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrQueryFailed(err error, operation string) error {
	return apperrors.Wrap(err, apperrors.System, fmt.Sprintf("데이터베이스 질의 실패: %s", operation))
}
