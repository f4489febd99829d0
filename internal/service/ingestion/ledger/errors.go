package ledger

import (
	"fmt"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

// NewErrSessionAlreadyFinalized 이미 터미널 상태인 세션을 갱신하려 할 때 반환하는 에러를 생성합니다.
func NewErrSessionAlreadyFinalized(id contract.SessionID) error {
	return apperrors.New(apperrors.Conflict, fmt.Sprintf("이미 종료된 세션입니다. (SessionID: %s)", id))
}

// NewErrInvalidTerminalStatus Finalize에 터미널 상태가 아닌 값이 전달되었을 때 반환하는 에러를 생성합니다.
func NewErrInvalidTerminalStatus(status contract.SessionStatus) error {
	return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("세션 종료 상태가 유효하지 않습니다. (Status: %s)", status))
}

// NewErrLedgerWriteFailed 세션 원장 기록에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrLedgerWriteFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "세션 기록 실패: 원장 쓰기 중 오류가 발생했습니다")
}

// NewErrLedgerReadFailed 세션 원장 적재에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrLedgerReadFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "세션 조회 실패: 원장 읽기 중 오류가 발생했습니다")
}

// NewErrLedgerQueryFailed 세션 데이터베이스 질의 실행에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrLedgerQueryFailed(err error, operation string) error {
	return apperrors.Wrap(err, apperrors.System, fmt.Sprintf("세션 데이터베이스 질의 실패: %s", operation))
}

// isTerminalStatus 세션의 터미널 상태 여부를 반환합니다.
func isTerminalStatus(status contract.SessionStatus) bool {
	return status == contract.SessionStatusCompleted || status == contract.SessionStatusFailed
}
