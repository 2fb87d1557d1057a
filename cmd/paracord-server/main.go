// Command paracord-server runs the Paracord gateway and REST API as a
// single process: it loads configuration, wires the shared application
// state, and serves HTTP + WebSocket traffic until signalled to shut down.
//
// Flags are parsed by internal/config.ParseArgs (a standard-library
// flag.FlagSet). Logging uses a zerolog.ConsoleWriter with a stamped
// timestamp, as the teacher's main.go does. SIGINT/SIGTERM trigger a
// graceful shutdown: the shared state context is cancelled and the HTTP
// server is drained.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/paracordchat/paracord/internal/appstate"
	"github.com/paracordchat/paracord/internal/config"
	"github.com/paracordchat/paracord/internal/eventbus"
	"github.com/paracordchat/paracord/internal/gateway"
	"github.com/paracordchat/paracord/internal/media"
	"github.com/paracordchat/paracord/internal/memberindex"
	"github.com/paracordchat/paracord/internal/ratelimit"
	"github.com/paracordchat/paracord/internal/rest"
	"github.com/paracordchat/paracord/internal/snowflake"
	"github.com/paracordchat/paracord/internal/store"
)

var zlog = zerolog.New(zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.Stamp,
}).With().Timestamp().Logger()

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	args, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		zlog.Fatal().Err(err).Msg("parsing arguments")
	}

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		zlog.Fatal().Err(err).Str("path", args.ConfigPath).Msg("loading configuration")
	}
	if args.WebDir != "" {
		cfg.WebDir = args.WebDir
	}

	memStore := store.NewMemory()

	rows, err := memStore.MembershipsForIndex(context.Background())
	if err != nil {
		zlog.Fatal().Err(err).Msg("loading memberships")
	}
	members := memberindex.FromMemberships(rows)

	busOpts := []eventbus.Option{}
	var natsConn *nats.Conn
	if cfg.Nats.Enabled {
		natsConn, err = nats.Connect(cfg.Nats.Address, nats.NoEcho())
		if err != nil {
			zlog.Fatal().Err(err).Str("addr", cfg.Nats.Address).Msg("connecting to nats")
		}
		defer natsConn.Close()
		busOpts = append(busOpts, eventbus.WithBridge(eventbus.NewNatsBridge(natsConn, cfg.Nats.SubjectPrefix, zlog)))
	}

	bus := eventbus.New(zlog.With().Str("component", "eventbus").Logger(), busOpts...)

	if natsConn != nil {
		if _, err := eventbus.SubscribeBridge(natsConn, cfg.Nats.SubjectPrefix, bus, zlog); err != nil {
			zlog.Fatal().Err(err).Msg("subscribing to nats bridge")
		}
	}

	gen := snowflake.NewGenerator(cfg.WorkerID)
	voice := media.New(cfg.Voice)

	state := appstate.New(cfg, zlog, memStore, bus, members, gen, voice)
	defer state.Shutdown()

	var limiter ratelimit.Limiter
	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.Redis.Prefix, 50, time.Minute)
	} else {
		limiter = ratelimit.NewMemoryLimiter(1, 50)
	}

	gw := gateway.NewServer(state)

	mux := http.NewServeMux()
	mux.Handle("/gateway", gw)
	mux.Handle("/api/channels/messages", rest.RequireAuth(state)(
		rest.RequireRateLimit(limiter)(rest.CreateMessageHandler(state)),
	))

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		zlog.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zlog.Info().Msg("shutting down")
	state.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Warn().Err(err).Msg("graceful shutdown failed")
	}
}
