// Package version 애플리케이션의 빌드 및 버저닝 정보를 관리하는 패키지입니다.
package version

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// globalBuildInfo 전역 빌드 정보 (Atomic Value를 사용하여 Thread-Safe 보장)
var globalBuildInfo atomic.Value

// Info 빌드 시점에 주입된 메타데이터와 실행 시점의 환경 정보를 담는 구조체입니다.
type Info struct {
	Version     string `json:"version"`      // 애플리케이션 버전 (예: v1.2.0-12-gf25b8bf)
	BuildDate   string `json:"build_date"`   // 빌드 수행 시간
	BuildNumber string `json:"build_number"` // CI/CD 파이프라인 빌드 번호
	GoVersion   string `json:"go_version"`   // 빌드에 사용된 Go 버전
	OS          string `json:"os"`           // 실행 OS
	Arch        string `json:"arch"`         // 실행 아키텍처
}

// String 사람이 읽기 좋은 한 줄 요약을 반환합니다.
func (i Info) String() string {
	return fmt.Sprintf("%s (build %s, %s, %s/%s)", i.Version, i.BuildNumber, i.BuildDate, i.OS, i.Arch)
}

// Set 전역 빌드 정보를 등록합니다. 런타임 환경 정보가 비어 있으면 자동으로 채워집니다.
func Set(info Info) {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	if info.OS == "" {
		info.OS = runtime.GOOS
	}
	if info.Arch == "" {
		info.Arch = runtime.GOARCH
	}

	globalBuildInfo.Store(info)
}

// Get 등록된 전역 빌드 정보를 반환합니다. 등록 전에는 기본값이 반환됩니다.
func Get() Info {
	if info, ok := globalBuildInfo.Load().(Info); ok {
		return info
	}

	info := Info{Version: "dev"}
	Set(info)
	return Get()
}
