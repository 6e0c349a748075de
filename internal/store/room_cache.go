package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
)

// RoomCache caches room listings per organization.
// Keys: inv:rooms:<org>:all, inv:rooms:<org>:direct, inv:rooms:<org>:floor:<floor>
// Each entry carries the organization version it was loaded under (inv:rooms-ver:<org>);
// an entry whose version is no longer current reads as a miss.
type RoomCache struct {
	kv  KV
	ttl time.Duration
}

func NewRoomCache(kv KV, ttl time.Duration) *RoomCache {
	return &RoomCache{kv: kv, ttl: ttl}
}

type cachedRoom struct {
	RoomID    string  `json:"room_id"`
	Name      string  `json:"name"`
	FloorID   *string `json:"floor_id"`
	FloorName *string `json:"floor_name"`
}

type cachedListing struct {
	Version int64        `json:"v"`
	Rooms   []cachedRoom `json:"rooms"`
}

func AllRoomsKey(orgID string) string    { return "inv:rooms:" + orgID + ":all" }
func DirectRoomsKey(orgID string) string { return "inv:rooms:" + orgID + ":direct" }
func FloorRoomsKey(orgID, floorID string) string {
	return "inv:rooms:" + orgID + ":floor:" + floorID
}
func versionKey(orgID string) string { return "inv:rooms-ver:" + orgID }

// Version current listing version of the organization, 0 before the first invalidation.
// Read it before loading from the store and pass it to Get and Set.
func (c *RoomCache) Version(ctx context.Context, orgID string) (int64, error) {
	raw, err := c.kv.Get(ctx, versionKey(orgID))
	if err != nil {
		if IsMiss(err) {
			return 0, nil
		}
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad room cache version %q: %w", raw, err)
	}
	return v, nil
}

// Get returns ErrMiss when the key is absent, holds an unreadable payload
// or was written under another version.
func (c *RoomCache) Get(ctx context.Context, key string, version int64) ([]*domain.RoomListItem, error) {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var listing cachedListing
	if err := json.Unmarshal([]byte(raw), &listing); err != nil || listing.Version != version {
		return nil, ErrMiss
	}
	out := make([]*domain.RoomListItem, 0, len(listing.Rooms))
	for _, r := range listing.Rooms {
		item := &domain.RoomListItem{RoomID: r.RoomID, Name: r.Name}
		if r.FloorID != nil {
			item.FloorID = sql.NullString{String: *r.FloorID, Valid: true}
		}
		if r.FloorName != nil {
			item.FloorName = sql.NullString{String: *r.FloorName, Valid: true}
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *RoomCache) Set(ctx context.Context, key string, version int64, items []*domain.RoomListItem) error {
	listing := cachedListing{Version: version, Rooms: make([]cachedRoom, 0, len(items))}
	for _, it := range items {
		r := cachedRoom{RoomID: it.RoomID, Name: it.Name}
		if it.FloorID.Valid {
			v := it.FloorID.String
			r.FloorID = &v
		}
		if it.FloorName.Valid {
			v := it.FloorName.String
			r.FloorName = &v
		}
		listing.Rooms = append(listing.Rooms, r)
	}
	b, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, key, string(b), c.ttl)
}

// InvalidateOrganization bumps the organization version, then drops its listings.
// A reader that loaded before the bump writes back under the old version, which Get rejects.
func (c *RoomCache) InvalidateOrganization(ctx context.Context, orgID string) error {
	if _, err := c.kv.Incr(ctx, versionKey(orgID)); err != nil {
		return fmt.Errorf("bump room cache version: %w", err)
	}
	keys, err := c.kv.ScanKeys(ctx, "inv:rooms:"+orgID+":*")
	if err != nil {
		return fmt.Errorf("scan room cache: %w", err)
	}
	return c.kv.Del(ctx, keys...)
}

// IsMiss true for ErrMiss.
func IsMiss(err error) bool { return errors.Is(err, ErrMiss) }
