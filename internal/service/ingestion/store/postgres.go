package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	_ "github.com/lib/pq"
)

// PostgresListingStore PostgreSQL 기반의 ListingStore 구현체입니다.
// 외부 애플리케이션(대시보드, 분석 도구 등)과 매물 데이터를 공유해야 하는 운영 환경에서 사용합니다.
type PostgresListingStore struct {
	db *sql.DB
}

var _ contract.ListingStore = (*PostgresListingStore)(nil)

const listingsSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id            BIGSERIAL PRIMARY KEY,
	source_id     TEXT        NOT NULL,
	external_id   TEXT        NOT NULL,
	price         BIGINT      NOT NULL,
	currency      TEXT        NOT NULL,
	area          DOUBLE PRECISION,
	rooms         INTEGER,
	floor         INTEGER,
	total_floors  INTEGER,
	city          TEXT        NOT NULL,
	quarter       TEXT        NOT NULL DEFAULT '',
	full_address  TEXT        NOT NULL DEFAULT '',
	coordinates   JSONB,
	title         TEXT        NOT NULL DEFAULT '',
	url           TEXT        NOT NULL DEFAULT '',
	thumbnail_url TEXT        NOT NULL DEFAULT '',
	is_top_offer  BOOLEAN     NOT NULL DEFAULT FALSE,
	is_vip_offer  BOOLEAN     NOT NULL DEFAULT FALSE,
	first_seen_at TIMESTAMPTZ NOT NULL,
	last_seen_at  TIMESTAMPTZ NOT NULL,
	is_active     BOOLEAN     NOT NULL DEFAULT TRUE,
	UNIQUE (source_id, external_id)
);
CREATE INDEX IF NOT EXISTS idx_listings_source_id ON listings (source_id);
CREATE INDEX IF NOT EXISTS idx_listings_last_seen_at ON listings (last_seen_at);
`

// NewPostgresListingStore PostgreSQL 기반의 매물 저장소를 생성합니다.
// 연결 확인과 스키마 생성까지 완료된 상태로 반환되며, 실패 시 연결을 정리하고 에러를 반환합니다.
func NewPostgresListingStore(ctx context.Context, dsn string) (*PostgresListingStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, NewErrQueryFailed(err, "데이터베이스 연결 열기")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, NewErrQueryFailed(err, "데이터베이스 연결 확인")
	}

	store := &PostgresListingStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close 데이터베이스 연결을 닫습니다.
func (s *PostgresListingStore) Close() error {
	return s.db.Close()
}

// DB 내부 데이터베이스 커넥션 풀을 반환합니다.
// 세션 원장 등 같은 데이터베이스를 사용하는 컴포넌트와 커넥션 풀을 공유할 때 사용합니다.
func (s *PostgresListingStore) DB() *sql.DB {
	return s.db
}

// ensureSchema 매물 테이블과 인덱스가 없으면 생성합니다.
func (s *PostgresListingStore) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, listingsSchema); err != nil {
		return NewErrQueryFailed(err, "스키마 생성")
	}
	return nil
}

// FindListing 자연키로 매물을 조회합니다. 없으면 contract.ErrListingNotFound를 반환합니다.
func (s *PostgresListingStore) FindListing(ctx context.Context, sourceID contract.SourceID, externalID string) (*contract.Listing, error) {
	const query = `
		SELECT id, source_id, external_id, price, currency, area, rooms, floor, total_floors,
		       city, quarter, full_address, coordinates, title, url, thumbnail_url,
		       is_top_offer, is_vip_offer, first_seen_at, last_seen_at, is_active
		  FROM listings
		 WHERE source_id = $1 AND external_id = $2`

	var (
		listing        contract.Listing
		coordinatesRaw []byte
	)

	err := s.db.QueryRowContext(ctx, query, string(sourceID), externalID).Scan(
		&listing.ID, &listing.SourceID, &listing.ExternalID,
		&listing.Price, &listing.Currency,
		&listing.Area, &listing.Rooms, &listing.Floor, &listing.TotalFloors,
		&listing.City, &listing.Quarter, &listing.FullAddress, &coordinatesRaw,
		&listing.Title, &listing.URL, &listing.ThumbnailURL,
		&listing.IsTopOffer, &listing.IsVipOffer,
		&listing.FirstSeenAt, &listing.LastSeenAt, &listing.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrListingNotFound
		}
		return nil, NewErrQueryFailed(err, "매물 조회")
	}

	if len(coordinatesRaw) > 0 {
		var coordinates contract.Coordinates
		if err := json.Unmarshal(coordinatesRaw, &coordinates); err != nil {
			return nil, NewErrJSONUnmarshalFailed(err)
		}
		listing.Coordinates = &coordinates
	}

	// 저장된 매물 본체와 면적에서 면적당 가격을 재산출합니다.
	if listing.Area != nil && *listing.Area > 0 {
		ppa := float64(listing.Price) / *listing.Area
		listing.PricePerArea = &ppa
	}

	return &listing, nil
}

// UpsertListing 자연키 기준으로 매물을 삽입 또는 갱신합니다.
// 신규 삽입 시 listing.ID에 데이터베이스가 부여한 대리키가 채워집니다.
func (s *PostgresListingStore) UpsertListing(ctx context.Context, listing *contract.Listing) error {
	const query = `
		INSERT INTO listings (
			source_id, external_id, price, currency, area, rooms, floor, total_floors,
			city, quarter, full_address, coordinates, title, url, thumbnail_url,
			is_top_offer, is_vip_offer, first_seen_at, last_seen_at, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (source_id, external_id) DO UPDATE SET
			price         = EXCLUDED.price,
			currency      = EXCLUDED.currency,
			area          = EXCLUDED.area,
			rooms         = EXCLUDED.rooms,
			floor         = EXCLUDED.floor,
			total_floors  = EXCLUDED.total_floors,
			city          = EXCLUDED.city,
			quarter       = EXCLUDED.quarter,
			full_address  = EXCLUDED.full_address,
			coordinates   = EXCLUDED.coordinates,
			title         = EXCLUDED.title,
			url           = EXCLUDED.url,
			thumbnail_url = EXCLUDED.thumbnail_url,
			is_top_offer  = EXCLUDED.is_top_offer,
			is_vip_offer  = EXCLUDED.is_vip_offer,
			last_seen_at  = EXCLUDED.last_seen_at,
			is_active     = EXCLUDED.is_active
		RETURNING id, first_seen_at`

	var coordinatesRaw any
	if listing.Coordinates != nil {
		data, err := json.Marshal(listing.Coordinates)
		if err != nil {
			return NewErrJSONMarshalFailed(err)
		}
		coordinatesRaw = data
	}

	// 기존 행이 갱신된 경우 first_seen_at은 최초 관측 시각을 유지합니다.
	err := s.db.QueryRowContext(ctx, query,
		string(listing.SourceID), listing.ExternalID,
		listing.Price, listing.Currency,
		listing.Area, listing.Rooms, listing.Floor, listing.TotalFloors,
		listing.City, listing.Quarter, listing.FullAddress, coordinatesRaw,
		listing.Title, listing.URL, listing.ThumbnailURL,
		listing.IsTopOffer, listing.IsVipOffer,
		listing.FirstSeenAt, listing.LastSeenAt, listing.IsActive,
	).Scan(&listing.ID, &listing.FirstSeenAt)
	if err != nil {
		return NewErrQueryFailed(err, "매물 저장")
	}

	return nil
}
