// cmd/historian/main.go drains the action queue written by the game server into Postgres
// and marks games abandoned once they go quiet.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jason-s-yu/twentyeight/internal/cache"
	"github.com/jason-s-yu/twentyeight/internal/database"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var CLI struct {
	RedisAddr   string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" help:"Redis address"`
	RedisDB     int    `long:"redis-db" env:"REDIS_DB" default:"0" help:"Redis database number"`
	Queue       string `long:"queue" env:"HISTORIAN_QUEUE_NAME" default:"twentyeight_actions" help:"Redis list to drain"`
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" required:"" help:"Postgres connection string"`

	BatchSize  int           `long:"batch-size" env:"HISTORIAN_BATCH_SIZE" default:"20" help:"Records per insert transaction"`
	FlushDelay time.Duration `long:"flush-delay" env:"HISTORIAN_FLUSH_DELAY" default:"500ms" help:"Longest time a partial batch waits"`
	Inactivity time.Duration `long:"inactivity" env:"GAME_INACTIVITY_TIMEOUT" default:"10m" help:"Quiet time after which a game is abandoned"`
	LogLevel   string        `short:"l" long:"log-level" env:"LOG_LEVEL" default:"info" enum:"trace,debug,info,warn,error" help:"Log level"`
}

func main() {
	kctx := kong.Parse(&CLI, kong.Description("Persists twenty-eight action records from Redis into Postgres."))

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(CLI.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.WithError(err).Error("historian exited")
		kctx.Exit(1)
	}
}

func run(ctx context.Context, logger *logrus.Logger) error {
	rdb, err := cache.Connect(ctx, CLI.RedisAddr, CLI.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, CLI.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	log := cache.NewActionLog(rdb, CLI.Queue)
	h := &historian{
		pop: log.Pop,
		flush: func(ctx context.Context, batch []cache.ActionRecord) error {
			return database.InsertActions(ctx, pool, batch)
		},
		batchSize:  CLI.BatchSize,
		flushDelay: CLI.FlushDelay,
		logger:     logger,
	}

	logger.WithField("queue", log.Queue()).Info("historian started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.run(gctx)
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := database.MarkInactiveAbandoned(gctx, pool, int(CLI.Inactivity.Seconds()))
				if err != nil {
					logger.WithError(err).Warn("inactivity sweep failed")
					continue
				}
				if n > 0 {
					logger.Infof("marked %d games abandoned due to inactivity", n)
				}
			}
		}
	})
	err = g.Wait()
	logger.Info("historian shutdown complete")
	return err
}

// historian batches popped records and hands them to flush.
type historian struct {
	pop        func(ctx context.Context, timeout time.Duration) (*cache.ActionRecord, error)
	flush      func(ctx context.Context, batch []cache.ActionRecord) error
	batchSize  int
	flushDelay time.Duration
	logger     *logrus.Logger

	batch []cache.ActionRecord
}

// run pops until ctx is done. A batch is flushed when it is full or older than flushDelay,
// and whatever remains is flushed on the way out.
func (h *historian) run(ctx context.Context) {
	if h.batchSize <= 0 {
		h.batchSize = 1
	}
	if h.flushDelay <= 0 {
		h.flushDelay = 500 * time.Millisecond
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.flushBatch(flushCtx)
	}()

	lastFlush := time.Now()
	for ctx.Err() == nil {
		rec, err := h.pop(ctx, h.flushDelay)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.WithError(err).Warn("pop failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(h.flushDelay):
			}
		}
		if rec != nil {
			h.batch = append(h.batch, *rec)
		}
		if len(h.batch) >= h.batchSize || time.Since(lastFlush) >= h.flushDelay {
			h.flushBatch(ctx)
			lastFlush = time.Now()
		}
	}
}

func (h *historian) flushBatch(ctx context.Context) {
	if len(h.batch) == 0 {
		return
	}
	if err := h.flush(ctx, h.batch); err != nil {
		// Keep the batch so the next flush retries it.
		h.logger.WithError(err).Errorf("failed to flush %d actions", len(h.batch))
		return
	}
	h.logger.Debugf("flushed %d actions", len(h.batch))
	h.batch = h.batch[:0]
}
