package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/jobs"
	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty means a blocking pop timed out with nothing to do.
var ErrQueueEmpty = errors.New("queue empty")

type Config struct {
	Addr     string
	Password string
	DB       int
	QueueKey string
}

// Client wraps the redis connection and the mail job list. Producers LPUSH,
// the worker BRPOPs, so jobs come off in FIFO order.
type Client struct {
	redisdb  *redis.Client
	queueKey string
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  -1, // blocking pops manage their own deadline
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb, queueKey: cfg.QueueKey}
}

func (c *Client) Enqueue(ctx context.Context, j jobs.Job) error {
	b, err := json.Marshal(j)

	if err != nil {
		return err
	}

	return c.redisdb.LPush(ctx, c.queueKey, b).Err()
}

// Dequeue blocks up to timeout for the next job.
func (c *Client) Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error) {
	res, err := c.redisdb.BRPop(ctx, timeout, c.queueKey).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, ErrQueueEmpty
		}

		return jobs.Job{}, err
	}

	// BRPop returns [key, value]
	if len(res) != 2 {
		return jobs.Job{}, ErrQueueEmpty
	}

	var j jobs.Job

	if err := json.Unmarshal([]byte(res[1]), &j); err != nil {
		return jobs.Job{}, err
	}

	return j, nil
}

// Ping checks redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}
