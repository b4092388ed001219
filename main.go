package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatapp-gateway/internal/archive"
	"chatapp-gateway/internal/client"
	"chatapp-gateway/internal/config"
	"chatapp-gateway/internal/hub"
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/status"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func setupLogger(cfg *config.ConfigFile) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.LogToFile {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, "app.log")
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func setupRedis(ctx context.Context, cfg *config.ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	err := rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func logSignals(sugar *zap.SugaredLogger, h *hub.Hub) {
	hub.On(h, hub.Ready, func(user *models.User) {
		sugar.Infof("Client is ready as user ID [%d]", user.ID)
	})
	hub.On(h, hub.Error, func(err error) {
		sugar.Errorf("Client error: %v", err)
	})
	hub.On(h, hub.ServerCreate, func(server *models.Server) {
		sugar.Infof("Joined server ID [%d]", server.ID)
	})
	hub.On(h, hub.ServerDelete, func(server *models.Server) {
		sugar.Infof("Left server ID [%d]", server.ID)
	})
}

func tailRelay(ctx context.Context, sugar *zap.SugaredLogger, cfg *config.ConfigFile) error {
	if cfg.RedisAddress == "" {
		return errors.New("tailing needs RedisAddress in the config file")
	}

	redisClient, err := setupRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	return hub.Tail(ctx, sugar, redisClient, cfg.RedisChannel, func(envelope hub.Envelope) {
		sugar.Infow("Relayed signal", "id", envelope.ID, "signal", envelope.Signal, "sentAt", envelope.SentAt, "bytes", len(envelope.Payload))
	})
}

func main() {
	configPath := pflag.StringP("config", "c", "config.json", "path of the config file")
	tail := pflag.Bool("tail", false, "print signals relayed by another gateway process instead of connecting")
	pflag.Parse()

	fmt.Println("Reading config file...")
	cfg, err := config.Read(*configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	sugar, err := setupLogger(&cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer sugar.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *tail {
		err = tailRelay(ctx, sugar, &cfg)
		if err != nil {
			sugar.Fatal(err)
		}
		return
	}

	c := client.New(sugar, client.Options{
		Token:               cfg.Token,
		APIURL:              cfg.APIURL,
		MessageCacheSize:    cfg.MessageCacheSize,
		MaxMissedHeartbeats: cfg.MaxMissedHeartbeats,
	})
	logSignals(sugar, c.Hub())

	if !cfg.SelfContained {
		sugar.Infof("Connecting to redis at %s...", cfg.RedisAddress)
		redisClient, err := setupRedis(ctx, &cfg)
		if err != nil {
			sugar.Fatal(err)
		}
		defer redisClient.Close()

		c.SetRelay(hub.NewRedisRelay(sugar, redisClient, cfg.RedisChannel))
		defer c.Hub().Close()
	}

	var history status.History
	if cfg.Archive {
		var db *sql.DB
		db, err = archive.Open(sugar, &cfg)
		if err != nil {
			sugar.Fatal(err)
		}
		defer db.Close()

		a := archive.New(sugar, db, c.Store().View)
		a.Attach(c.Hub())
		defer a.Detach()
		history = a
	}

	if cfg.StatusAddress != "" {
		statusServer := status.New(sugar, c, history, cfg.LogLevel == "debug")
		go func() {
			err := statusServer.ListenAndServe(ctx, cfg.StatusAddress)
			if err != nil {
				sugar.Errorf("Status API stopped: %v", err)
			}
		}()
	}

	err = c.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		sugar.Fatal(err)
	}
	sugar.Info("Client stopped")
}
