package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKeyedMutex_MutualExclusion 동일 키에 대한 상호 배제를 테스트합니다.
func TestKeyedMutex_MutualExclusion(t *testing.T) {
	km := NewKeyedMutex[string]()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = km.WithLock("same-key", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	// 모든 작업 완료 후에는 락 엔트리가 정리되어야 함 (Reference Counting)
	assert.Equal(t, 0, km.Len())
}

// TestKeyedMutex_IndependentKeys 서로 다른 키가 서로를 차단하지 않는지 테스트합니다.
func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex[string]()

	km.Lock("a")
	done := make(chan struct{})
	go func() {
		km.Lock("b") // 키 a의 락과 무관하게 즉시 획득되어야 함
		km.Unlock("b")
		close(done)
	}()

	<-done
	km.Unlock("a")
	assert.Equal(t, 0, km.Len())
}

// TestKeyedMutex_UnlockWithoutLock 잠기지 않은 키의 해제 시도 시 패닉을 테스트합니다.
func TestKeyedMutex_UnlockWithoutLock(t *testing.T) {
	km := NewKeyedMutex[string]()
	assert.Panics(t, func() {
		km.Unlock("never-locked")
	})
}
