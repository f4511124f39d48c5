// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/jason-s-yu/twentyeight/internal/auth"
	"github.com/jason-s-yu/twentyeight/internal/cache"
	"github.com/jason-s-yu/twentyeight/internal/database"
	"github.com/jason-s-yu/twentyeight/internal/game"
	"github.com/jason-s-yu/twentyeight/internal/handlers"
	"github.com/jason-s-yu/twentyeight/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var CLI struct {
	Addr      string `short:"a" long:"addr" env:"ADDR" default:":8080" help:"Address to listen on"`
	LogLevel  string `short:"l" long:"log-level" env:"LOG_LEVEL" default:"info" enum:"trace,debug,info,warn,error" help:"Log level"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" enum:"text,json" help:"Log output format"`

	RedisAddr      string `long:"redis-addr" env:"REDIS_ADDR" help:"Redis address for session state and the action queue; empty keeps sessions in memory"`
	RedisDB        int    `long:"redis-db" env:"REDIS_DB" default:"0" help:"Redis database number"`
	KeyPrefix      string `long:"key-prefix" env:"REDIS_KEY_PREFIX" default:"twentyeight:game:" help:"Redis key prefix for sessions"`
	HistorianQueue string `long:"historian-queue" env:"HISTORIAN_QUEUE_NAME" default:"twentyeight_actions" help:"Redis list receiving action records"`
	DatabaseURL    string `long:"database-url" env:"DATABASE_URL" help:"Postgres connection string for game results; empty disables result recording"`

	AllowedOrigins []string `long:"allowed-origins" env:"ALLOWED_ORIGINS" sep:"," help:"Origins allowed by CORS and the websocket handshake"`
	TokenTTL       string   `long:"token-ttl" env:"TOKEN_EXPIRE_TIME" default:"never" help:"Seat token lifetime, e.g. 24h, or never"`

	Seed              int64         `long:"seed" env:"SEED" help:"Shuffle seed; 0 seeds from the clock"`
	BotDelay          time.Duration `long:"bot-delay" env:"BOT_DELAY" default:"1s" help:"Delay before a bot plays"`
	RoundDelay        time.Duration `long:"round-delay" env:"ROUND_DELAY" default:"2s" help:"Delay before a full round is resolved"`
	DisconnectTimeout time.Duration `long:"disconnect-timeout" env:"DISCONNECT_TIMEOUT" default:"5m" help:"Time a disconnected player has to come back"`
	MaxActivePlayers  int           `long:"max-active-players" env:"MAX_ACTIVE_PLAYERS" default:"100" help:"Cap on concurrently active human players"`
	RequiredApprovals int           `long:"required-approvals" env:"REQUIRED_APPROVALS" default:"1" help:"Peer approvals a reconnection needs"`
}

func main() {
	kctx := kong.Parse(&CLI, kong.Description("Authoritative server for six-seat Twenty-Eight."))

	logger := newLogger(CLI.LogLevel, CLI.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.WithError(err).Error("server exited")
		kctx.Exit(1)
	}
}

func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func run(ctx context.Context, logger *logrus.Logger) error {
	ttl, err := auth.ParseTTL(CLI.TokenTTL)
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(ttl)
	if err != nil {
		return err
	}

	deps := game.Deps{
		Store:  store.NewMemoryStore(),
		Logger: logger,
		Issuer: issuer,
	}

	if CLI.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, CLI.RedisAddr, CLI.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Store = store.NewRedisStore(rdb, CLI.KeyPrefix)
		deps.Actions = cache.NewActionLog(rdb, CLI.HistorianQueue)
		logger.WithFields(logrus.Fields{"addr": CLI.RedisAddr, "queue": CLI.HistorianQueue}).Info("using redis for session state")
	} else {
		logger.Warn("REDIS_ADDR not set, sessions are kept in memory")
	}

	if CLI.DatabaseURL != "" {
		pool, err := database.Connect(ctx, CLI.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		deps.Results = database.NewResultStore(pool)
		logger.Info("recording game results to postgres")
	}

	hub := handlers.NewHub(logger)
	deps.Broadcaster = hub
	core := game.NewGameCore(game.Config{
		BotDelay:          CLI.BotDelay,
		RoundDelay:        CLI.RoundDelay,
		DisconnectTimeout: CLI.DisconnectTimeout,
		MaxActivePlayers:  CLI.MaxActivePlayers,
		RequiredApprovals: CLI.RequiredApprovals,
		Seed:              CLI.Seed,
		Clock:             quartz.NewReal(),
	}, deps)

	gs := handlers.NewGameServer(core, hub, logger, originPatterns(CLI.AllowedOrigins))
	srv := &http.Server{
		Addr:              CLI.Addr,
		Handler:           gs.Router(CLI.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("listening on %s", CLI.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.CloseAll()
		err := srv.Shutdown(shutdownCtx)
		core.Wait()
		return err
	})
	return g.Wait()
}

// originPatterns turns CORS origins into the host patterns the websocket handshake expects.
func originPatterns(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
