package store

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/iancoleman/strcase"
)

// filenameReplacer 파일명 생성 시 파일 시스템에서 문제를 일으킬 수 있는 특수문자를 안전한 문자로 치환합니다.
// 경로 구분자와 Windows 예약 문자를 하이픈으로 바꿔 Path Traversal과 플랫폼별 파일명 오류를 방지합니다.
var filenameReplacer = strings.NewReplacer(
	"..", "--",
	"/", "-",
	"\\", "-",
	"|", "-",
	"<", "-",
	">", "-",
	":", "-",
	"\"", "-",
	"?", "-",
	"*", "-",
)

// listingsFilename 소스 ID를 기반으로 매물 스냅샷 파일명을 생성합니다.
//
// 사람이 읽을 수 있는 Kebab-Case 이름에 원본 ID의 64비트 해시를 덧붙여,
// 특수문자 정제 후 서로 다른 ID가 같은 파일명이 되는 충돌을 방지합니다.
// 생성 패턴: "listings-{정제된소스이름}-{16자리해시}.json"
func listingsFilename(sourceID contract.SourceID) string {
	name := sanitizeName(string(sourceID))

	hasher := fnv.New64a()
	_, _ = fmt.Fprintf(hasher, "%d:%s", len(sourceID), sourceID)

	return fmt.Sprintf("listings-%s-%016x.json", name, hasher.Sum64())
}

// sanitizeName 파일명으로 안전하게 사용할 수 있도록 문자열을 정제합니다.
func sanitizeName(s string) string {
	kebab := strcase.ToKebab(s)

	// Kebab 변환 후에도 남아있을 수 있는 제어 문자를 안전한 문자로 치환합니다.
	kebab = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return '-'
		}
		return r
	}, kebab)

	return filenameReplacer.Replace(kebab)
}
