package genstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisKeyLayout(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	if got := NewRedis(client, "", 0).key("users"); got != "memocache:gen:users" {
		t.Fatalf("key = %q", got)
	}
	if got := NewRedis(client, "app", 0).key("users"); got != "app:gen:users" {
		t.Fatalf("key = %q", got)
	}
}

func TestRedisUnreachableReturnsErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := NewRedis(client, "app", time.Hour).OwnClient()
	defer s.Close(context.Background())

	ctx := context.Background()
	if _, err := s.Snapshot(ctx, "users"); err == nil {
		t.Fatalf("Snapshot on outage should error")
	}
	if _, err := s.Bump(ctx, "users"); err == nil {
		t.Fatalf("Bump on outage should error")
	}
}
