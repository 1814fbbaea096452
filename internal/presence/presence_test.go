package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTracker(t *testing.T) (*Tracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTracker(client, time.Minute, nil), mr
}

func TestMarkOnlineThenOffline(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	if err := tracker.MarkOnline(ctx, 7); err != nil {
		t.Fatalf("MarkOnline: %v", err)
	}
	if err := tracker.MarkOnline(ctx, 3); err != nil {
		t.Fatalf("MarkOnline: %v", err)
	}

	ids, err := tracker.OnlineCourierIDs(ctx)
	if err != nil {
		t.Fatalf("OnlineCourierIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
		t.Errorf("online ids = %v, want [3 7]", ids)
	}

	if err := tracker.MarkOffline(ctx, 7); err != nil {
		t.Fatalf("MarkOffline: %v", err)
	}
	ids, err = tracker.OnlineCourierIDs(ctx)
	if err != nil {
		t.Fatalf("OnlineCourierIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != 3 {
		t.Errorf("online ids after offline = %v, want [3]", ids)
	}
}

func TestPresenceExpires(t *testing.T) {
	tracker, mr := newTestTracker(t)
	ctx := context.Background()

	if err := tracker.MarkOnline(ctx, 42); err != nil {
		t.Fatalf("MarkOnline: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	ids, err := tracker.OnlineCourierIDs(ctx)
	if err != nil {
		t.Fatalf("OnlineCourierIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("online ids after expiry = %v, want none", ids)
	}
}

func TestMarkOnlineRefreshesTTL(t *testing.T) {
	tracker, mr := newTestTracker(t)
	ctx := context.Background()

	if err := tracker.MarkOnline(ctx, 42); err != nil {
		t.Fatalf("MarkOnline: %v", err)
	}
	mr.FastForward(45 * time.Second)
	if err := tracker.MarkOnline(ctx, 42); err != nil {
		t.Fatalf("MarkOnline refresh: %v", err)
	}
	mr.FastForward(45 * time.Second)

	ids, err := tracker.OnlineCourierIDs(ctx)
	if err != nil {
		t.Fatalf("OnlineCourierIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != 42 {
		t.Errorf("online ids = %v, want [42]", ids)
	}
}

func TestOnlineCourierIDsSkipsForeignKeys(t *testing.T) {
	tracker, mr := newTestTracker(t)
	ctx := context.Background()

	mr.Set(courierKeyPrefix+"bogus", "1")
	if err := tracker.MarkOnline(ctx, 5); err != nil {
		t.Fatalf("MarkOnline: %v", err)
	}

	ids, err := tracker.OnlineCourierIDs(ctx)
	if err != nil {
		t.Fatalf("OnlineCourierIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != 5 {
		t.Errorf("online ids = %v, want [5]", ids)
	}
}
