package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Alias1177/InsiderScan/models"
)

// Deduplicator suppresses repeat alerts for the same symbol, date and conviction
type Deduplicator struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewDeduplicator creates a deduplicator; keys live for ttl
func NewDeduplicator(client redis.Cmdable, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduplicator{
		client: client,
		ttl:    ttl,
	}
}

// DedupKey identifies an alert
func DedupKey(r models.AnomalyRecord) string {
	return fmt.Sprintf("alert:dedup:%s:%s:%s", r.EventDate.Format("2006-01-02"), r.Symbol, r.Conviction)
}

// Seen reports whether r was already delivered within the TTL
func (d *Deduplicator) Seen(ctx context.Context, r models.AnomalyRecord) (bool, error) {
	exists, err := d.client.Exists(ctx, DedupKey(r)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return exists > 0, nil
}

// Mark records r as delivered for the TTL
func (d *Deduplicator) Mark(ctx context.Context, r models.AnomalyRecord) error {
	if err := d.client.Set(ctx, DedupKey(r), "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dedup key: %w", err)
	}
	return nil
}
