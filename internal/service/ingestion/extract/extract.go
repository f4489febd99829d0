// Package extract 소스 클라이언트를 페이지 단위로 구동하며 원시 레코드를
// 정규화된 매물 목록으로 누적하는 페이지 추출기를 제공합니다.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/normalize"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion/source"
	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"
	"golang.org/x/time/rate"
)

// component 페이지 추출기의 로깅용 컴포넌트 이름
const component = "ingestion.extract"

// Result 검색 URL 하나에 대한 추출 결과입니다.
//
// 경고만 있고 매물이 없는 결과도 정상 결과입니다. 추출기는 페이지 단위 실패를
// 경고로 변환하며, 부분 결과를 항상 반환합니다.
type Result struct {
	// Listings 정규화에 성공한 매물 목록 (페이지 오름차순, 중복 제거됨)
	Listings []*contract.Listing

	// Warnings 페이지 수집/정규화 실패 등 비치명적 문제의 기록
	Warnings []string

	// PagesProcessed 수집과 파싱에 성공한 페이지 수
	PagesProcessed int
}

// Extractor 단일 소스의 검색 URL을 페이지 순서대로 순회하는 페이지 추출기입니다.
//
// 페이지 요청 사이의 고정 대기 시간은 업스트림과의 정중함(politeness) 계약의
// 일부입니다. 이를 위반하면 업스트림 쓰로틀링으로 같은 사이클의 후속 페이지가
// 오염될 수 있으므로, 대기 시간 준수는 구현 세부사항이 아닌 계약입니다.
type Extractor struct {
	sourceID contract.SourceID
	fetcher  source.PageFetcher

	// pageLimiter 페이지 요청 간격을 강제하는 리미터 (interPageDelay마다 토큰 1개)
	pageLimiter *rate.Limiter
}

// New 새로운 페이지 추출기를 생성합니다. interPageDelay가 0 이하이면 대기 없이 순회합니다.
func New(sourceID contract.SourceID, fetcher source.PageFetcher, interPageDelay time.Duration) *Extractor {
	var limiter *rate.Limiter
	if interPageDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(interPageDelay), 1)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return &Extractor{
		sourceID:    sourceID,
		fetcher:     fetcher,
		pageLimiter: limiter,
	}
}

// Extract 검색 URL의 페이지들을 1페이지부터 오름차순으로 순회하며 매물을 수집합니다.
//
// 1페이지 응답으로 전체 페이지 수를 파악하고 min(보고된 페이지 수, maxPages)에서
// 순회를 멈춥니다. 전체 페이지 수를 보고하지 않는 소스는 maxPages까지 순회하되,
// 새로운 매물이 더 이상 나오지 않는 페이지에서 조기 종료합니다.
//
// 페이지 단위 실패(수집 실패, 파싱 실패, 타임아웃)는 경고로 기록하고 다음 페이지로
// 진행합니다. 에러가 반환되는 경우는 컨텍스트 취소뿐이며, 이때도 그 시점까지의
// 부분 결과가 함께 반환됩니다.
func (e *Extractor) Extract(ctx context.Context, searchURL string, maxPages int) (*Result, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	logger := applog.WithComponentAndFields(component, applog.Fields{
		"source_id":  e.sourceID,
		"search_url": searchURL,
	})

	result := &Result{}
	seen := make(map[string]struct{})

	pageCap := maxPages
	reportedTotal := 0

	for page := 1; page <= pageCap; page++ {
		// 취소 확인은 페이지 경계에서만 수행합니다.
		// 진행 중인 페이지 요청은 끝까지 완료되며, 다음 페이지부터 시작하지 않습니다.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// 페이지 요청 간 대기 (첫 페이지는 토큰이 준비되어 있어 즉시 통과)
		if err := e.pageLimiter.Wait(ctx); err != nil {
			return result, err
		}

		fetched, err := e.fetcher.FetchPage(ctx, searchURL, page)
		if err != nil {
			// 전체 페이지 수를 보고하지 않는 소스의 404는 마지막 페이지를 지난 것이므로
			// 경고 없이 순회를 종료합니다.
			if errors.Is(err, source.ErrPageNotFound) && reportedTotal == 0 {
				logger.WithField("page", page).Debug("404 수신, 마지막 페이지 도달로 판단하여 순회 종료")
				break
			}

			warning := fmt.Sprintf("%d페이지 수집에 실패했습니다: %v", page, err)
			result.Warnings = append(result.Warnings, warning)
			logger.WithField("page", page).WithError(err).Warn("페이지 수집 실패, 다음 페이지로 계속 진행")
			continue
		}

		result.PagesProcessed++

		// 첫 성공 페이지에서 보고된 전체 페이지 수로 순회 상한을 확정합니다.
		if reportedTotal == 0 && fetched.TotalPages > 0 {
			reportedTotal = fetched.TotalPages
			if reportedTotal < pageCap {
				pageCap = reportedTotal
			}
		}

		newCount := 0
		for _, record := range fetched.Records {
			listing, err := normalize.Normalize(e.sourceID, record)
			if err != nil {
				warning := fmt.Sprintf("%d페이지 레코드 정규화에 실패했습니다: %v", page, err)
				result.Warnings = append(result.Warnings, warning)
				continue
			}

			// 업스트림 목록 페이지는 페이지 간 중복이 흔하므로 자연키 기준으로 중복을 제거합니다.
			if _, duplicated := seen[listing.ExternalID]; duplicated {
				continue
			}
			seen[listing.ExternalID] = struct{}{}

			result.Listings = append(result.Listings, listing)
			newCount++
		}

		logger.WithFields(applog.Fields{
			"page":      page,
			"records":   len(fetched.Records),
			"new":       newCount,
			"collected": len(result.Listings),
		}).Debug("페이지 처리 완료")

		// 전체 페이지 수를 보고하지 않는 소스는 신규 매물이 나오지 않는 시점이 사실상의 끝입니다.
		if reportedTotal == 0 && newCount == 0 {
			break
		}
	}

	logger.WithFields(applog.Fields{
		"pages_processed": result.PagesProcessed,
		"listings":        len(result.Listings),
		"warnings":        len(result.Warnings),
	}).Info("페이지 추출 완료")

	return result, nil
}
