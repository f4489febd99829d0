package contract

// ChangeKind 변경 감지 결과의 종류입니다.
//
// Unchanged/Invalid 분류에 대해서는 ChangeEvent가 생성되지 않으므로
// 이벤트로 전파되는 종류는 New와 PriceChanged뿐입니다.
type ChangeKind string

const (
	// ChangeKindNew 이전에 관측된 적 없는 신규 매물
	ChangeKindNew ChangeKind = "new"

	// ChangeKindPriceChanged 기존 매물의 가격 변동
	ChangeKindPriceChanged ChangeKind = "price_changed"
)

// ChangeEvent 변경 감지기의 산출물이자 알림 디스패처의 입력입니다.
type ChangeEvent struct {
	Kind    ChangeKind `json:"kind"`
	Listing *Listing   `json:"listing"`

	// PreviousPrice 가격 변동(PriceChanged) 이벤트에서만 유효한 직전 가격입니다.
	PreviousPrice *int64 `json:"previous_price,omitempty"`
}

// ChangeBatch 한 사이클에서 발생한 동일 종류의 이벤트 묶음입니다.
// 알림 채널에는 이벤트 단건이 아닌 배치 단위로 전달되어 대량 사이클에서의 알림 폭주를 방지합니다.
type ChangeBatch struct {
	Kind   ChangeKind    `json:"kind"`
	Events []ChangeEvent `json:"events"`
}
