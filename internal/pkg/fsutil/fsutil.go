// Package fsutil 파일 시스템 기반 저장소들이 공유하는 저수준 파일 유틸리티를 제공합니다.
package fsutil

import (
	"os"
	"path/filepath"
	"time"
)

// WriteAtomic 데이터를 파일에 원자적으로 저장합니다.
//
// "임시 파일 쓰기 → 디스크 동기화(fsync) → 원자적 이름 변경(rename)" 전략으로,
// 저장 도중 시스템 장애가 발생해도 기존 파일이 반파손 상태가 되지 않습니다.
// tempPattern은 os.CreateTemp에 전달되는 임시 파일 이름 패턴입니다.
func WriteAtomic(filename string, data []byte, tempPattern string) error {
	dir := filepath.Dir(filename)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 같은 디렉토리 내에 생성해야 rename이 원자적으로 동작합니다.
	tmpFile, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	// Windows에서는 열려있는 파일을 삭제할 수 없으므로 Close가 Remove보다 먼저 실행되어야 합니다.
	defer os.Remove(tmpPath)
	defer tmpFile.Close()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}

	// 운영체제 버퍼 캐시에만 있는 상태에서 전원이 차단되는 것을 방지합니다.
	if err := tmpFile.Sync(); err != nil {
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := renameWithRetry(tmpPath, filename); err != nil {
		return err
	}

	// 파일명 변경 사항을 디스크에 기록하기 위해 부모 디렉토리를 fsync합니다.
	// 실패해도 치명적이지 않으므로 에러를 무시합니다.
	if dirFile, err := os.Open(dir); err == nil {
		_ = dirFile.Sync()
		dirFile.Close()
	}

	return nil
}

// renameWithRetry 파일 이름 변경을 재시도 로직과 함께 수행합니다.
// Windows 개발 환경에서 백신/인덱서가 파일을 일시적으로 잠그는 경우를 우회합니다.
func renameWithRetry(oldPath, newPath string) error {
	const maxRetries = 5
	const retryDelay = 10 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := os.Rename(oldPath, newPath)
		if err == nil {
			return nil
		}

		lastErr = err
		time.Sleep(retryDelay)
	}

	return lastErr
}
