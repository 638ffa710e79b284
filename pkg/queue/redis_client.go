package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go-boxblur/pkg/common"
)

// ResultsStream is the stream trial results are appended to.
const ResultsStream = "boxblur:results"

type RedisClient struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisClient{
		client: client,
		stream: ResultsStream,
		maxLen: 10000,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// AddResult appends res to the results stream and returns the entry ID.
// The stream is trimmed approximately to the newest maxLen entries.
func (r *RedisClient) AddResult(ctx context.Context, res *common.TrialResult) (string, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return "", err
	}

	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{"data": b},
	}).Result()
}

// Entry is a stored trial result with its stream ID.
type Entry struct {
	ID     string
	Result common.TrialResult
}

// ReadResults returns up to limit of the newest results, oldest first.
// A limit <= 0 returns everything.
func (r *RedisClient) ReadResults(ctx context.Context, limit int64) ([]Entry, error) {
	var (
		msgs []redis.XMessage
		err  error
	)
	if limit > 0 {
		msgs, err = r.client.XRevRangeN(ctx, r.stream, "+", "-", limit).Result()
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	} else {
		msgs, err = r.client.XRange(ctx, r.stream, "-", "+").Result()
	}
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		var res common.TrialResult
		if err := json.Unmarshal(bytesFromInterface(msg.Values["data"]), &res); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", msg.ID, err)
		}
		entries = append(entries, Entry{ID: msg.ID, Result: res})
	}
	return entries, nil
}

// Count returns the number of entries in the results stream.
func (r *RedisClient) Count(ctx context.Context) (int64, error) {
	return r.client.XLen(ctx, r.stream).Result()
}

func bytesFromInterface(v interface{}) []byte {
	switch t := v.(type) {
	case string:
		return []byte(t)
	case []byte:
		return t
	default:
		b, _ := json.Marshal(t)
		return b
	}
}
