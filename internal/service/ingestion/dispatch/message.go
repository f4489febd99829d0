package dispatch

import (
	"fmt"
	"html"
	"strings"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/pkg/strutil"
)

// maxListedEvents 메시지 본문에 개별 항목으로 나열할 최대 이벤트 수입니다.
// 초과분은 건수 요약으로 대체하여 대량 사이클에서의 메시지 비대화를 방지합니다.
const maxListedEvents = 20

// batchTitle 배치 종류에 대한 메시지 제목을 반환합니다.
func batchTitle(batch contract.ChangeBatch) string {
	switch batch.Kind {
	case contract.ChangeKindNew:
		return fmt.Sprintf("신규 매물 %d건이 발견되었습니다.", len(batch.Events))
	case contract.ChangeKindPriceChanged:
		return fmt.Sprintf("매물 %d건의 가격이 변동되었습니다.", len(batch.Events))
	default:
		return fmt.Sprintf("매물 변경 %d건이 감지되었습니다.", len(batch.Events))
	}
}

// BuildPlainMessage 배치를 일반 텍스트 메시지로 변환합니다. (이메일, 데스크톱 알림용)
func BuildPlainMessage(batch contract.ChangeBatch) string {
	var sb strings.Builder
	sb.WriteString(batchTitle(batch))

	for i, event := range batch.Events {
		if i >= maxListedEvents {
			sb.WriteString(fmt.Sprintf("\n\n...외 %d건", len(batch.Events)-maxListedEvents))
			break
		}

		sb.WriteString("\n\n")
		sb.WriteString(formatListingLine(event))
		if event.Listing.URL != "" {
			sb.WriteString("\n")
			sb.WriteString(event.Listing.URL)
		}
	}

	return sb.String()
}

// BuildHTMLMessage 배치를 텔레그램 HTML 파싱 모드용 메시지로 변환합니다.
// 매물 제목 등 외부 입력은 전부 이스케이프하여 파싱 오류와 마크업 주입을 방지합니다.
func BuildHTMLMessage(batch contract.ChangeBatch) string {
	var sb strings.Builder
	sb.WriteString("<b>")
	sb.WriteString(html.EscapeString(batchTitle(batch)))
	sb.WriteString("</b>")

	for i, event := range batch.Events {
		if i >= maxListedEvents {
			sb.WriteString(fmt.Sprintf("\n\n...외 %d건", len(batch.Events)-maxListedEvents))
			break
		}

		sb.WriteString("\n\n")
		if event.Listing.URL != "" {
			sb.WriteString(fmt.Sprintf("<a href=\"%s\">%s</a>",
				html.EscapeString(event.Listing.URL), html.EscapeString(headline(event.Listing))))
			sb.WriteString("\n")
			sb.WriteString(html.EscapeString(priceLine(event)))
		} else {
			sb.WriteString(html.EscapeString(formatListingLine(event)))
		}
	}

	return sb.String()
}

// formatListingLine 이벤트 한 건을 "제목 / 가격" 형태의 한 줄 텍스트로 변환합니다.
func formatListingLine(event contract.ChangeEvent) string {
	return headline(event.Listing) + "\n" + priceLine(event)
}

// headline 매물의 표시용 제목을 만듭니다.
func headline(listing *contract.Listing) string {
	title := listing.Title
	if title == "" {
		title = fmt.Sprintf("매물 #%s", listing.ExternalID)
	}

	location := listing.City
	if listing.Quarter != "" {
		location += ", " + listing.Quarter
	}
	if location != "" {
		return fmt.Sprintf("[%s] %s", location, title)
	}
	return title
}

// priceLine 이벤트의 가격 정보를 한 줄로 만듭니다.
// 가격 변동 이벤트는 직전 가격을 함께 표기합니다.
func priceLine(event contract.ChangeEvent) string {
	listing := event.Listing
	current := fmt.Sprintf("%s %s", strutil.FormatCommas(listing.Price), listing.Currency)

	if event.Kind == contract.ChangeKindPriceChanged && event.PreviousPrice != nil {
		previous := strutil.FormatCommas(*event.PreviousPrice)
		return fmt.Sprintf("가격: %s %s ➜ %s", previous, listing.Currency, current)
	}

	line := "가격: " + current
	if listing.PricePerArea != nil {
		line += fmt.Sprintf(" (㎡당 %.0f %s)", *listing.PricePerArea, listing.Currency)
	}
	return line
}
