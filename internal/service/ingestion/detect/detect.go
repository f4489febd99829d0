// Package detect 정규화된 매물을 영속 상태와 대조하여 변경을 분류하는 변경 감지기를 제공합니다.
package detect

import (
	"context"
	"errors"
	"fmt"
	"time"

	applog "github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/log"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
)

const component = "ingestion.detect"

// Outcome 매물 목록 하나에 대한 변경 감지 결과입니다.
type Outcome struct {
	// Events 알림 대상 변경 이벤트 (New, PriceChanged)
	Events []contract.ChangeEvent

	// Warnings 개별 매물 처리 중 발생한 비치명적 경고
	Warnings []string

	// 분류별 카운터
	New          int
	PriceChanged int
	Unchanged    int
	Invalid      int
}

// Detector 관측된 매물을 저장소의 마지막 상태와 비교하여
// New / PriceChanged / Unchanged / Invalid로 분류합니다.
//
// 분류와 동시에 저장소 상태를 갱신하므로, 동일한 입력으로 연속 두 번 실행하면
// 두 번째 실행은 모든 매물을 Unchanged로 분류합니다 (멱등성).
type Detector struct {
	store contract.ListingStore

	// threshold 가격 변동으로 판정할 최소 변동 폭(정수 통화 단위)입니다.
	// 변동 폭의 절댓값이 threshold 이상이면 PriceChanged로 분류합니다.
	threshold int64

	// now 테스트에서 시각을 고정할 수 있도록 주입 가능한 시계입니다.
	now func() time.Time
}

// New 새로운 변경 감지기를 생성합니다. threshold가 1 미만이면 1로 보정됩니다.
func New(store contract.ListingStore, threshold int64) *Detector {
	if threshold < 1 {
		threshold = 1
	}
	return &Detector{
		store:     store,
		threshold: threshold,
		now:       time.Now,
	}
}

// Classify 매물 목록을 분류하고 저장소 상태를 갱신합니다.
//
// 개별 매물의 유효성 문제나 저장소 오류는 경고로 수집하고 다음 매물로 넘어가므로
// 매물 한 건의 실패가 전체 감지를 중단시키지 않습니다. Invalid로 분류된 매물은
// 저장소에 기록되지 않습니다.
func (d *Detector) Classify(ctx context.Context, listings []*contract.Listing) *Outcome {
	outcome := &Outcome{}

	for _, listing := range listings {
		if err := validateListing(listing); err != nil {
			outcome.Invalid++
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("유효하지 않은 매물을 제외했습니다: %v", err))
			continue
		}

		d.classifyOne(ctx, listing, outcome)
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"new":           outcome.New,
		"price_changed": outcome.PriceChanged,
		"unchanged":     outcome.Unchanged,
		"invalid":       outcome.Invalid,
	}).Debug("변경 감지가 완료되었습니다.")

	return outcome
}

func (d *Detector) classifyOne(ctx context.Context, listing *contract.Listing, outcome *Outcome) {
	now := d.now()

	existing, err := d.store.FindListing(ctx, listing.SourceID, listing.ExternalID)
	if err != nil {
		if !errors.Is(err, contract.ErrListingNotFound) {
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("매물 조회에 실패했습니다. (ExternalID: %s): %v", listing.ExternalID, err))
			return
		}

		// 최초 관측: 생명주기 타임스탬프를 채워 저장하고 New 이벤트를 생성합니다.
		listing.FirstSeenAt = now
		listing.LastSeenAt = now
		listing.IsActive = true

		if err := d.store.UpsertListing(ctx, listing); err != nil {
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("신규 매물 저장에 실패했습니다. (ExternalID: %s): %v", listing.ExternalID, err))
			return
		}

		outcome.New++
		outcome.Events = append(outcome.Events, contract.ChangeEvent{
			Kind:    contract.ChangeKindNew,
			Listing: listing,
		})
		return
	}

	delta := listing.Price - existing.Price
	if delta < 0 {
		delta = -delta
	}

	if delta >= d.threshold {
		// 가격 변동: 대리키와 최초 관측 시각은 유지하고 나머지는 새 관측으로 갱신합니다.
		listing.ID = existing.ID
		listing.FirstSeenAt = existing.FirstSeenAt
		listing.LastSeenAt = now
		listing.IsActive = true

		if err := d.store.UpsertListing(ctx, listing); err != nil {
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("가격 변동 매물 저장에 실패했습니다. (ExternalID: %s): %v", listing.ExternalID, err))
			return
		}

		previousPrice := existing.Price
		outcome.PriceChanged++
		outcome.Events = append(outcome.Events, contract.ChangeEvent{
			Kind:          contract.ChangeKindPriceChanged,
			Listing:       listing,
			PreviousPrice: &previousPrice,
		})
		return
	}

	// 변동 폭이 임계값 미만: 기존 레코드를 유지하고 마지막 관측 시각만 갱신합니다.
	existing.LastSeenAt = now
	existing.IsActive = true

	if err := d.store.UpsertListing(ctx, existing); err != nil {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("매물 관측 시각 갱신에 실패했습니다. (ExternalID: %s): %v", listing.ExternalID, err))
		return
	}

	outcome.Unchanged++
}

// validateListing 저장 전 매물의 필수 필드를 검증합니다.
// 검증에 실패한 매물은 Invalid로 분류되며 저장소에 기록되지 않습니다.
func validateListing(listing *contract.Listing) error {
	switch {
	case listing == nil:
		return fmt.Errorf("매물이 nil입니다")
	case listing.SourceID == "":
		return fmt.Errorf("소스 ID가 비어있습니다")
	case listing.ExternalID == "":
		return fmt.Errorf("외부 ID가 비어있습니다")
	case listing.Price <= 0:
		return fmt.Errorf("가격이 유효하지 않습니다. (ExternalID: %s)", listing.ExternalID)
	case listing.City == "":
		return fmt.Errorf("도시 정보가 없습니다. (ExternalID: %s)", listing.ExternalID)
	}
	return nil
}
