package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/InsiderScan/models"
)

var date = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func sampleBaseline() models.SymbolBaseline {
	return models.SymbolBaseline{
		Symbol:       "AAPL",
		AsOf:         date,
		LookbackDays: 30,
		Call:         models.SideBaseline{VolumeMean: 552, VolumeStdDev: 200, VolumeDays: 30, RatioMean: 0.4, RatioStdDev: 0.1, RatioDays: 28, MinDays: 2},
		Put:          models.SideBaseline{VolumeMean: 0, VolumeStdDev: 1e-6, VolumeDays: 1, MinDays: 2},
	}
}

func TestBaselineKey(t *testing.T) {
	assert.Equal(t, "baseline:2024-03-15:AAPL", BaselineKey("AAPL", date))
}

func TestBaselineCacheGet(t *testing.T) {
	t.Run("hit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		data, err := json.Marshal(sampleBaseline())
		require.NoError(t, err)
		mock.ExpectGet("baseline:2024-03-15:AAPL").SetVal(string(data))

		b, ok, err := NewBaselineCache(client, 0).Get(context.Background(), "AAPL", date)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, sampleBaseline(), b)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet("baseline:2024-03-15:AAPL").RedisNil()

		_, ok, err := NewBaselineCache(client, 0).Get(context.Background(), "AAPL", date)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("error", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet("baseline:2024-03-15:AAPL").SetErr(errors.New("connection refused"))

		_, ok, err := NewBaselineCache(client, 0).Get(context.Background(), "AAPL", date)
		require.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt value", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet("baseline:2024-03-15:AAPL").SetVal("{not json")

		_, _, err := NewBaselineCache(client, 0).Get(context.Background(), "AAPL", date)
		require.Error(t, err)
	})
}

func TestBaselineCacheSet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	data, err := json.Marshal(sampleBaseline())
	require.NoError(t, err)
	mock.ExpectSet("baseline:2024-03-15:AAPL", data, time.Hour).SetVal("OK")

	require.NoError(t, NewBaselineCache(client, time.Hour).Set(context.Background(), date, sampleBaseline()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
