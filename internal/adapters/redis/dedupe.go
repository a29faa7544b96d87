package redis

import (
	"FlashGrade/internal/core/ports"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const updateKeyPrefix = "tg:update:"

// UpdateDeduper remembers processed Telegram update ids.
type UpdateDeduper struct {
	client *redis.Client
}

var _ ports.UpdateDeduper = (*UpdateDeduper)(nil)

// NewUpdateDeduper creates a deduper on client.
func NewUpdateDeduper(client *redis.Client) *UpdateDeduper {
	return &UpdateDeduper{client: client}
}

func (d *UpdateDeduper) Seen(ctx context.Context, updateID int) (bool, error) {
	n, err := d.client.Exists(ctx, updateKey(updateID)).Result()
	if err != nil {
		return false, fmt.Errorf("check update %d: %w", updateID, err)
	}
	return n > 0, nil
}

func (d *UpdateDeduper) MarkProcessed(ctx context.Context, updateID int, ttl time.Duration) error {
	if err := d.client.Set(ctx, updateKey(updateID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("mark update %d: %w", updateID, err)
	}
	return nil
}

func updateKey(id int) string {
	return updateKeyPrefix + strconv.Itoa(id)
}
