package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew 생성된 에러가 타입과 메시지를 올바르게 보존하는지 테스트합니다.
func TestNew(t *testing.T) {
	err := New(NotFound, "매물을 찾을 수 없습니다")

	var appErr *AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, NotFound, appErr.Type())
	assert.Equal(t, "매물을 찾을 수 없습니다", appErr.Message())
	assert.Equal(t, "[NotFound] 매물을 찾을 수 없습니다", err.Error())
}

// TestWrap 에러 래핑 시 원인 에러가 체인으로 보존되는지 테스트합니다.
func TestWrap(t *testing.T) {
	t.Run("Wrap_PreservesCause", func(t *testing.T) {
		cause := stderrors.New("connection refused")
		err := Wrap(cause, System, "데이터베이스 조회 실패")

		assert.Equal(t, "[System] 데이터베이스 조회 실패: connection refused", err.Error())
		assert.Equal(t, cause, RootCause(err))
		assert.True(t, stderrors.Is(err, cause))
	})

	t.Run("Wrap_NilReturnsNil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, System, "무시되어야 함"))
		assert.Nil(t, Wrapf(nil, System, "무시되어야 함: %d", 1))
	})

	t.Run("Wrapf_FormatsMessage", func(t *testing.T) {
		err := Wrapf(stderrors.New("boom"), ParsingFailed, "%d페이지 파싱 실패", 3)
		assert.Contains(t, err.Error(), "3페이지 파싱 실패")
	})
}

// TestIs 타입 기반 에러 분류 검사가 에러 체인을 관통하는지 테스트합니다.
func TestIs(t *testing.T) {
	inner := New(NotFound, "없음")
	outer := Wrap(inner, ExecutionFailed, "수집 실패")

	assert.True(t, Is(outer, ExecutionFailed))
	assert.True(t, Is(outer, NotFound)) // 체인 내부의 타입도 감지해야 함
	assert.False(t, Is(outer, Timeout))
	assert.False(t, Is(nil, NotFound))

	// AppError가 아닌 일반 에러는 어떤 타입과도 일치하지 않아야 함
	assert.False(t, Is(fmt.Errorf("plain"), Unknown))
}

// TestTypeOf 최상위 에러 타입 판별을 테스트합니다.
func TestTypeOf(t *testing.T) {
	assert.Equal(t, Timeout, TypeOf(New(Timeout, "시간 초과")))
	assert.Equal(t, Unknown, TypeOf(stderrors.New("plain")))

	wrapped := Wrap(New(NotFound, "없음"), System, "조회 실패")
	assert.Equal(t, System, TypeOf(wrapped))
}
