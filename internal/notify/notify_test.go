package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phttp "github.com/Alias1177/InsiderScan/internal/platform/http"
	"github.com/Alias1177/InsiderScan/models"
)

var eventDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func record(symbol string, score float64, tier models.VolumeTier) models.AnomalyRecord {
	return models.AnomalyRecord{
		EventDate:          eventDate,
		Symbol:             symbol,
		TotalScore:         score,
		CallVolume:         900,
		PutVolume:          100,
		TotalVolume:        1000,
		Direction:          models.DirectionBull,
		Conviction:         models.ConvictionHigh,
		VolumeTier:         tier,
		PatternDescription: "Bullish call-heavy flow: volume far above baseline",
	}
}

func TestFilter(t *testing.T) {
	records := []models.AnomalyRecord{
		record("LOW", 6.9, models.VolumeTierHigh),
		record("BBB", 7.5, models.VolumeTierLow),
		record("AAA", 7.5, models.VolumeTierHigh),
		record("TOP", 9.1, models.VolumeTierHigh),
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "min score", filter: Filter{MinScore: 7}, want: []string{"TOP", "AAA", "BBB"}},
		{name: "high volume only", filter: Filter{MinScore: 7, Tiers: []models.VolumeTier{models.VolumeTierHigh}}, want: []string{"TOP", "AAA"}},
		{name: "nothing passes", filter: Filter{MinScore: 9.5}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(records)
			symbols := make([]string, 0, len(got))
			for _, r := range got {
				symbols = append(symbols, r.Symbol)
			}
			assert.Equal(t, tt.want, symbols)
		})
	}
}

func TestRender(t *testing.T) {
	text := Render([]models.AnomalyRecord{
		record("LOWV", 8.04, models.VolumeTierLow),
		record("AAPL", 7.26, models.VolumeTierHigh),
		record("NVDA", 9.5, models.VolumeTierHigh),
	})

	assert.True(t, strings.HasPrefix(text, "🚨 *Unusual options activity* | 2024-03-15"))
	assert.Contains(t, text, "*AAPL* 7.3/10")
	assert.Less(t, strings.Index(text, "NVDA"), strings.Index(text, "AAPL"))
	assert.Less(t, strings.Index(text, "*High volume*"), strings.Index(text, "*Low volume*"))
	assert.Less(t, strings.Index(text, "AAPL"), strings.Index(text, "LOWV"))
	assert.Empty(t, Render(nil))
}

func TestChunk(t *testing.T) {
	text := strings.Repeat("line of text\n", 10)
	parts := chunk(text, 30)

	require.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 30)
	}
	assert.Equal(t, strings.TrimRight(text, "\n"), strings.Join(parts, "\n"))
	assert.Equal(t, []string{"short"}, chunk("short", 30))
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramNotify(t *testing.T) {
	sender := &fakeSender{}
	tg := NewTelegram(sender, -100123)

	require.NoError(t, tg.Notify(context.Background(), []models.AnomalyRecord{record("AAPL", 8, models.VolumeTierHigh)}))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(-100123), sender.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, sender.sent[0].ParseMode)
	assert.Contains(t, sender.sent[0].Text, "AAPL")

	require.NoError(t, tg.Notify(context.Background(), nil))
	assert.Len(t, sender.sent, 1)

	failing := NewTelegram(&fakeSender{err: errors.New("chat not found")}, 1)
	assert.Error(t, failing.Notify(context.Background(), []models.AnomalyRecord{record("AAPL", 8, models.VolumeTierHigh)}))
}

func TestWebhookNotify(t *testing.T) {
	var payload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := phttp.NewClient(phttp.ClientOptions{RequestsPerSec: 100})
	wh := NewWebhook(srv.URL, client)

	err := wh.Notify(context.Background(), []models.AnomalyRecord{
		record("AAPL", 7.2, models.VolumeTierHigh),
		record("NVDA", 9.1, models.VolumeTierHigh),
	})
	require.NoError(t, err)

	require.Len(t, payload.Records, 2)
	assert.Equal(t, "NVDA", payload.Records[0].Symbol)
	assert.Contains(t, payload.Text, "Unusual options activity")
}

func TestDeduplicator(t *testing.T) {
	client, mock := redismock.NewClientMock()
	d := NewDeduplicator(client, time.Hour)
	r := record("AAPL", 8, models.VolumeTierHigh)
	key := "alert:dedup:2024-03-15:AAPL:HIGH_CONVICTION"
	assert.Equal(t, key, DedupKey(r))

	mock.ExpectExists(key).SetVal(0)
	seen, err := d.Seen(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, seen)

	mock.ExpectSet(key, "1", time.Hour).SetVal("OK")
	require.NoError(t, d.Mark(context.Background(), r))

	mock.ExpectExists(key).SetVal(1)
	seen, err = d.Seen(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, seen)

	assert.NoError(t, mock.ExpectationsWereMet())
}

type recordingNotifier struct {
	got [][]models.AnomalyRecord
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, records []models.AnomalyRecord) error {
	n.got = append(n.got, records)
	return n.err
}

func TestDispatcher(t *testing.T) {
	records := []models.AnomalyRecord{
		record("AAPL", 8, models.VolumeTierHigh),
		record("MSFT", 5.5, models.VolumeTierHigh),
		record("NVDA", 7.1, models.VolumeTierHigh),
	}

	t.Run("filters and fans out", func(t *testing.T) {
		a, b := &recordingNotifier{}, &recordingNotifier{err: errors.New("down")}
		d := NewDispatcher(Filter{MinScore: 7}, nil, a, b)

		err := d.Notify(context.Background(), records)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "down")

		require.Len(t, a.got, 1)
		require.Len(t, a.got[0], 2)
		assert.Equal(t, "AAPL", a.got[0][0].Symbol)
		assert.Len(t, b.got, 1)
	})

	t.Run("drops duplicates", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectExists("alert:dedup:2024-03-15:AAPL:HIGH_CONVICTION").SetVal(1)
		mock.ExpectExists("alert:dedup:2024-03-15:NVDA:HIGH_CONVICTION").SetVal(0)
		mock.ExpectSet("alert:dedup:2024-03-15:NVDA:HIGH_CONVICTION", "1", time.Hour).SetVal("OK")

		n := &recordingNotifier{}
		d := NewDispatcher(Filter{MinScore: 7}, NewDeduplicator(client, time.Hour), n)

		require.NoError(t, d.Notify(context.Background(), records))
		require.Len(t, n.got, 1)
		require.Len(t, n.got[0], 1)
		assert.Equal(t, "NVDA", n.got[0][0].Symbol)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed delivery is retried on the next cycle", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		key := "alert:dedup:2024-03-15:NVDA:HIGH_CONVICTION"
		only := []models.AnomalyRecord{record("NVDA", 9, models.VolumeTierHigh)}

		n := &recordingNotifier{err: errors.New("telegram down")}
		d := NewDispatcher(Filter{MinScore: 7}, NewDeduplicator(client, time.Hour), n)

		mock.ExpectExists(key).SetVal(0)
		require.Error(t, d.Notify(context.Background(), only))

		n.err = nil
		mock.ExpectExists(key).SetVal(0)
		mock.ExpectSet(key, "1", time.Hour).SetVal("OK")
		require.NoError(t, d.Notify(context.Background(), only))

		require.Len(t, n.got, 2)
		assert.Equal(t, "NVDA", n.got[1][0].Symbol)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("dedup error fails open", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		key := "alert:dedup:2024-03-15:NVDA:HIGH_CONVICTION"
		mock.ExpectExists(key).SetErr(errors.New("connection refused"))
		mock.ExpectSet(key, "1", time.Hour).SetVal("OK")

		n := &recordingNotifier{}
		d := NewDispatcher(Filter{MinScore: 7}, NewDeduplicator(client, time.Hour), n)

		require.NoError(t, d.Notify(context.Background(), []models.AnomalyRecord{record("NVDA", 9, models.VolumeTierHigh)}))
		require.Len(t, n.got, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing selected", func(t *testing.T) {
		n := &recordingNotifier{}
		d := NewDispatcher(Filter{MinScore: 9.9}, nil, n)
		require.NoError(t, d.Notify(context.Background(), records))
		assert.Empty(t, n.got)
	})
}
