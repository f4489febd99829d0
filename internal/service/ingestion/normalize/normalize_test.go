package normalize

import (
	"testing"

	apperrors "github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/pkg/errors"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("JSON API 형식의 레코드를 Listing으로 변환한다", func(t *testing.T) {
		t.Parallel()

		record := contract.RawRecord{
			"id":           float64(12345), // JSON 디코딩 결과는 float64
			"title":        "Villa in <b>Sozopol</b>",
			"price":        float64(1250000),
			"currency":     "eur",
			"area":         float64(420.5),
			"rooms":        float64(5),
			"floor":        float64(2),
			"city":         "Sozopol",
			"quarter":      "Harmanite",
			"address":      "Sozopol, Burgas Region",
			"lat":          42.418,
			"lon":          27.695,
			"url":          "https://www.luximmo.com/sales/villa-in-sozopol-12345-en.html",
			"thumbnail":    "https://static.luximmo.com/thumbs/12345.jpg",
			"is_top_offer": true,
		}

		listing, err := Normalize("luximmo", record)
		require.NoError(t, err)

		assert.Equal(t, contract.SourceID("luximmo"), listing.SourceID)
		assert.Equal(t, "12345", listing.ExternalID)
		assert.Equal(t, int64(1250000), listing.Price)
		assert.Equal(t, "EUR", listing.Currency)
		assert.Equal(t, "Villa in Sozopol", listing.Title, "HTML 태그는 제거되어야 한다")
		assert.Equal(t, "Sozopol", listing.City)
		assert.Equal(t, "Harmanite", listing.Quarter)
		require.NotNil(t, listing.Area)
		assert.InDelta(t, 420.5, *listing.Area, 0.001)
		require.NotNil(t, listing.Rooms)
		assert.Equal(t, 5, *listing.Rooms)
		require.NotNil(t, listing.Coordinates)
		assert.InDelta(t, 42.418, listing.Coordinates.Lat, 0.001)
		assert.True(t, listing.IsTopOffer)
		assert.False(t, listing.IsVipOffer)
		assert.True(t, listing.IsActive)
		assert.True(t, listing.FirstSeenAt.IsZero(), "관측 시각은 변경 감지기가 설정한다")
	})

	t.Run("HTML 앵커 형식의 레코드에서 URL 기반 ID와 표시용 가격을 해석한다", func(t *testing.T) {
		t.Parallel()

		record := contract.RawRecord{
			"url":   "https://www.luximmo.com/sales/apartment-in-sofia-98765-en.html",
			"title": "Apartment in Sofia",
			"price": "1 250 000 EUR",
			"city":  "Sofia",
		}

		listing, err := Normalize("luximmo", record)
		require.NoError(t, err)

		assert.Equal(t, "98765", listing.ExternalID)
		assert.Equal(t, int64(1250000), listing.Price)
		assert.Equal(t, "EUR", listing.Currency)
	})

	t.Run("점으로 끝나는 URL 패턴에서도 ID를 추출한다", func(t *testing.T) {
		t.Parallel()

		record := contract.RawRecord{
			"url":   "https://www.luximmo.com/offer-55555.html",
			"price": "300000",
			"city":  "Varna",
		}

		listing, err := Normalize("luximmo", record)
		require.NoError(t, err)
		assert.Equal(t, "55555", listing.ExternalID)
		assert.Equal(t, "EUR", listing.Currency, "통화 미표기 시 기본 통화를 적용한다")
	})

	t.Run("주소 문자열에서 도시를 추출한다", func(t *testing.T) {
		t.Parallel()

		record := contract.RawRecord{
			"external_id": "777",
			"price":       float64(100000),
			"location":    "Bansko, Blagoevgrad Region",
		}

		listing, err := Normalize("luximmo", record)
		require.NoError(t, err)
		assert.Equal(t, "Bansko", listing.City)
		assert.Equal(t, "Bansko, Blagoevgrad Region", listing.FullAddress)
	})

	t.Run("면적당 가격은 항상 price/area로 재계산한다", func(t *testing.T) {
		t.Parallel()

		record := contract.RawRecord{
			"external_id":    "888",
			"price":          float64(200000),
			"city":           "Plovdiv",
			"area":           "100 m2",
			"price_per_area": float64(9999), // 업스트림 값은 무시되어야 한다
		}

		listing, err := Normalize("luximmo", record)
		require.NoError(t, err)
		require.NotNil(t, listing.PricePerArea)
		assert.InDelta(t, 2000.0, *listing.PricePerArea, 0.001)
	})

	t.Run("0 이하의 면적은 결측으로 간주한다", func(t *testing.T) {
		t.Parallel()

		record := contract.RawRecord{
			"external_id": "999",
			"price":       float64(150000),
			"city":        "Burgas",
			"area":        float64(0),
		}

		listing, err := Normalize("luximmo", record)
		require.NoError(t, err)
		assert.Nil(t, listing.Area)
		assert.Nil(t, listing.PricePerArea)
	})
}

func TestNormalize_InvalidRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record contract.RawRecord
	}{
		{
			name:   "빈 레코드",
			record: contract.RawRecord{},
		},
		{
			name: "가격 필드 누락",
			record: contract.RawRecord{
				"external_id": "123",
				"city":        "Sofia",
			},
		},
		{
			name: "음수 가격",
			record: contract.RawRecord{
				"external_id": "123",
				"price":       float64(-1),
				"city":        "Sofia",
			},
		},
		{
			name: "숫자가 없는 가격 문자열",
			record: contract.RawRecord{
				"external_id": "123",
				"price":       "Price on request",
				"city":        "Sofia",
			},
		},
		{
			name: "도시 필드 누락",
			record: contract.RawRecord{
				"external_id": "123",
				"price":       float64(100000),
			},
		},
		{
			name: "ID를 추출할 수 없는 URL",
			record: contract.RawRecord{
				"url":   "https://www.luximmo.com/about-us.html",
				"price": float64(100000),
				"city":  "Sofia",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			listing, err := Normalize("luximmo", tt.record)
			require.Error(t, err)
			assert.Nil(t, listing)
			assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
		})
	}
}
