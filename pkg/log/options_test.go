package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOptionsValidate 로그 옵션 유효성 검사를 테스트합니다.
func TestOptionsValidate(t *testing.T) {
	t.Run("Success_ValidOptions", func(t *testing.T) {
		opts := NewProductionOptions("test-app")
		assert.NoError(t, opts.Validate())
	})

	t.Run("Fail_EmptyName", func(t *testing.T) {
		opts := Options{}
		assert.Error(t, opts.Validate())
	})

	t.Run("Fail_NegativeValues", func(t *testing.T) {
		for _, opts := range []Options{
			{Name: "a", MaxAge: -1},
			{Name: "a", MaxSizeMB: -1},
			{Name: "a", MaxBackups: -1},
		} {
			assert.Error(t, opts.Validate())
		}
	})

	t.Run("Fail_DirIsFile", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

		opts := Options{Name: "a", Dir: tmpFile}
		assert.Error(t, opts.Validate())
	})
}

// TestProfiles 환경별 프로파일의 핵심 설정값을 테스트합니다.
func TestProfiles(t *testing.T) {
	prod := NewProductionOptions("app")
	assert.Equal(t, InfoLevel, prod.Level)
	assert.True(t, prod.EnableFileLog)
	assert.False(t, prod.EnableConsoleLog)

	dev := NewDevelopmentOptions("app")
	assert.Equal(t, TraceLevel, dev.Level)
	assert.False(t, dev.EnableFileLog)
	assert.True(t, dev.EnableConsoleLog)
}
