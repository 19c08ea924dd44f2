package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oilfield/sgmfm/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	sqlxDB := sqlx.NewDb(mockDB, "postgres")
	sqlxDB.MapperFunc(toSnakeCase)
	return &PostgresStore{db: sqlxDB}, mock
}

func TestPostgresStore_ListAssets(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"tag", "kind", "bank", "stream", "riser", "created_at"}).
		AddRow("13FT0367", "TOPSIDE", "CORRECTED_MASS", "OIL", "", time.Now())
	mock.ExpectQuery(`SELECT tag, kind, bank, stream, riser, created_at FROM asset`).WillReturnRows(rows)

	assets, err := s.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "13FT0367", assets[0].Tag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertAsset_FirstEncounterInserts(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT tag, kind, bank, stream, riser, created_at FROM asset WHERE tag=\$1`).
		WithArgs("13FT0367").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO asset`).
		WithArgs("13FT0367", domain.AssetTopside, "CORRECTED_MASS", "OIL", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	asset, mismatched, err := s.UpsertAsset(context.Background(), domain.Asset{
		Tag: "13FT0367", Kind: domain.AssetTopside, Bank: "CORRECTED_MASS", Stream: "OIL",
	})
	require.NoError(t, err)
	assert.False(t, mismatched)
	assert.Equal(t, "13FT0367", asset.Tag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertAsset_MismatchDetected(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"tag", "kind", "bank", "stream", "riser", "created_at"}).
		AddRow("13FT0367", "TOPSIDE", "CORRECTED_MASS", "OIL", "", time.Now())
	mock.ExpectQuery(`SELECT tag, kind, bank, stream, riser, created_at FROM asset WHERE tag=\$1`).
		WithArgs("13FT0367").
		WillReturnRows(rows)

	_, mismatched, err := s.UpsertAsset(context.Background(), domain.Asset{
		Tag: "13FT0367", Kind: domain.AssetSubsea, Bank: "CORRECTED_MASS", Stream: "OIL",
	})
	require.NoError(t, err)
	assert.True(t, mismatched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertNonConformance_IdempotentOnConflict(t *testing.T) {
	s, mock := newMockStore(t)
	nc := domain.NewNonConformance("13FT0367", "mass_hc_t", time.Now(), time.Now(), "10 consecutive inconsistent days")
	mock.ExpectExec(`INSERT INTO non_conformance`).
		WithArgs(nc.EventID, nc.AssetTag, nc.Variable, nc.OccurrenceDate, nc.DetectedAt, nc.Deviation, nc.PartialDeadline, nc.FinalDeadline).
		WillReturnResult(sqlmock.NewResult(0, 0)) // ON CONFLICT DO NOTHING: zero rows affected

	inserted, err := s.InsertNonConformance(context.Background(), nc)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
