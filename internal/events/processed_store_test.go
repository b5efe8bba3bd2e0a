package events

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedStore_MarkProcessed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newProcessedStore(mock)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO processed_events").WithArgs(ProviderWhatsApp, "wamid.new").
		WillReturnRows(pgxmock.NewRows([]string{"processed_at"}).AddRow(time.Now()))
	first, err := store.MarkProcessed(ctx, ProviderWhatsApp, "wamid.new")
	require.NoError(t, err)
	assert.True(t, first)

	mock.ExpectQuery("INSERT INTO processed_events").WithArgs(ProviderWhatsApp, "wamid.new").
		WillReturnError(pgx.ErrNoRows)
	again, err := store.MarkProcessed(ctx, ProviderWhatsApp, "wamid.new")
	require.NoError(t, err)
	assert.False(t, again)

	mock.ExpectQuery("INSERT INTO processed_events").WithArgs(ProviderWhatsApp, "wamid.err").
		WillReturnError(errors.New("connection reset"))
	_, err = store.MarkProcessed(ctx, ProviderWhatsApp, "wamid.err")
	assert.ErrorContains(t, err, "whatsapp/wamid.err")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessedStore_Purge(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newProcessedStore(mock)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM processed_events").WithArgs(float64(3600)).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	n, err := store.Purge(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	mock.ExpectExec("DELETE FROM processed_events").WithArgs(DefaultRetention.Seconds()).
		WillReturnError(errors.New("timeout"))
	_, err = store.Purge(ctx, 0)
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
