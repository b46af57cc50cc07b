package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/retail-listing-scraper/internal/scraper"
)

func TestRecordPublicationInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLedgerStoreWithPool(mock, "")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := scraper.PublicationRecord{
		JobID:          "job-1",
		SourceChannel:  "recetecom",
		MainIdentifier: "SKU1",
		URL:            "https://www.recete.com/p/1",
		ArchiveURI:     "gs://bucket/path",
		ContentHash:    "abc123",
		PublishedAt:    now,
	}

	mock.ExpectExec(`INSERT INTO listing_publications \(\s*job_id,\s*source_channel,\s*main_identifier,\s*url,\s*archive_uri,\s*content_hash,\s*published_at\s*\)`).
		WithArgs(rec.JobID, rec.SourceChannel, rec.MainIdentifier, rec.URL, rec.ArchiveURI, rec.ContentHash, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordPublication(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPublicationEmptyOptionalColumns(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLedgerStoreWithPool(mock, "ledger")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := scraper.PublicationRecord{JobID: "job-2", SourceChannel: "recetecom", URL: "u", PublishedAt: now}

	mock.ExpectExec("INSERT INTO ledger").
		WithArgs("job-2", "recetecom", "", "u", "", "", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordPublication(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPublicationPropagatesError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLedgerStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO listing_publications").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("boom"))

	err = store.RecordPublication(context.Background(), scraper.PublicationRecord{JobID: "j"})
	require.ErrorContains(t, err, "insert publication")
}

func TestLedgerStoreValidation(t *testing.T) {
	t.Parallel()

	_, err := NewLedgerStoreWithPool(nil, "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewLedgerStoreWithPool(mock, "bad-name;")
	require.Error(t, err)

	store, err := NewLedgerStoreWithPool(mock, "")
	require.NoError(t, err)
	require.Error(t, store.RecordPublication(context.Background(), scraper.PublicationRecord{}))

	_, err = NewLedgerStore(context.Background(), LedgerStoreConfig{})
	require.Error(t, err)
}
