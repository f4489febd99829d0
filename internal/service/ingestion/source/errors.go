package source

import (
	"errors"
)

var (
	// ErrPageNotFound 업스트림이 요청한 페이지에 대해 404를 반환했음을 나타내는 센티널 에러입니다.
	// 업스트림에서 내려간 매물 페이지는 정상 운영 중에도 발생하므로, 호출자는 이 에러를
	// 치명적 오류가 아닌 건너뛰기 신호로 취급할 수 있습니다.
	ErrPageNotFound = errors.New("업스트림 페이지를 찾을 수 없습니다 (404)")
)
