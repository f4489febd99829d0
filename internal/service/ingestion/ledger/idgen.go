// Package ledger 수집 세션의 생명주기를 기록하는 SessionLedger 구현체들을 제공합니다.
package ledger

import (
	"sync/atomic"
	"time"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

// base62Chars Base62 인코딩 문자셋입니다. 0-9, A-Z, a-z 순서는 ASCII 코드 순서와
// 일치하므로, 생성된 ID를 문자열로 정렬하면 대략적인 시간순 정렬이 됩니다.
const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base62Len = int64(len(base62Chars))

// sessionIDGenerator 수집 세션의 고유 식별자 생성을 담당합니다.
//
// 나노초 타임스탬프를 Base62로 인코딩한 값에 원자적 카운터의 시퀀스를
// 6자리 고정 길이로 덧붙여, 동일 나노초 내 생성에서도 중복되지 않는
// URL-safe한 ID를 만듭니다. 예: "2Xk9pL3m000001"
type sessionIDGenerator struct {
	// counter 동일 나노초 내 순번입니다. 오버플로우되어 0으로 돌아가도
	// 타임스탬프가 바뀌므로 실질적인 충돌 위험은 없습니다.
	counter uint32
}

// New 새로운 SessionID를 생성합니다.
func (g *sessionIDGenerator) New() contract.SessionID {
	now := time.Now().UnixNano()
	seq := atomic.AddUint32(&g.counter, 1)

	// int64 타임스탬프는 Base62로 최대 11자리, 시퀀스는 6자리 고정입니다.
	b := make([]byte, 0, 18)
	b = appendBase62(b, now)
	b = appendBase62FixedLength(b, int64(seq), 6)

	return contract.SessionID(b)
}

// appendBase62 정수 값을 Base62로 인코딩하여 기존 버퍼에 추가합니다.
func appendBase62(dst []byte, num int64) []byte {
	if num == 0 {
		return append(dst, base62Chars[0])
	}
	if num < 0 {
		num = -num
	}

	var temp [20]byte
	i := len(temp)
	for num > 0 {
		i--
		temp[i] = base62Chars[num%base62Len]
		num /= base62Len
	}

	return append(dst, temp[i:]...)
}

// appendBase62FixedLength 정수를 Base62로 인코딩하되 지정된 고정 길이를 맞춥니다.
// 자릿수가 부족하면 앞에 '0'을 패딩하여 문자열 정렬 순서가 숫자 순서와 일치하도록 합니다.
// 실제 자릿수가 목표 길이보다 길면 잘라내지 않고 전부 표현합니다.
func appendBase62FixedLength(dst []byte, num int64, length int) []byte {
	if num < 0 {
		num = -num
	}

	temp := num
	digits := 0
	if temp == 0 {
		digits = 1
	}
	for temp > 0 {
		temp /= base62Len
		digits++
	}

	appendLen := length
	if digits > length {
		appendLen = digits
	}

	startLen := len(dst)
	targetLen := startLen + appendLen
	if cap(dst) >= targetLen {
		dst = dst[:targetLen]
	} else {
		dst = append(dst, make([]byte, appendLen)...)
	}

	// 뒤에서부터 숫자를 채우고 남은 앞부분은 '0'으로 패딩합니다.
	idx := targetLen - 1
	if num == 0 {
		dst[idx] = base62Chars[0]
		idx--
	} else {
		for num > 0 {
			dst[idx] = base62Chars[num%base62Len]
			num /= base62Len
			idx--
		}
	}
	for idx >= startLen {
		dst[idx] = base62Chars[0]
		idx--
	}

	return dst
}
