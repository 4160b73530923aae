package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/config"
	"github.com/caldena/caldena/internal/db"
	"github.com/caldena/caldena/internal/http/api"
	authapi "github.com/caldena/caldena/internal/http/api/auth/endpoints"
	bookingapi "github.com/caldena/caldena/internal/http/api/booking/endpoints"
	"github.com/caldena/caldena/internal/realtime"
	"github.com/caldena/caldena/internal/redis"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	conn, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db init failed")
	}
	if err := db.RunMigrations(conn, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}
	store := db.NewStore(conn)

	cache := redis.New(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
	if cache == nil {
		log.Warn().Msg("REDIS_ADDRESS not set, running without the availability cache")
	}

	var channel realtime.Channel
	mqttChannel, err := realtime.NewMQTTChannel(cfg.MQTTBrokerURL, "caldena-server")
	if err != nil {
		log.Warn().Err(err).Msg("MQTT broker unavailable, running without realtime events")
	} else {
		channel = mqttChannel
		defer mqttChannel.Close()
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.Default())

	api.MountGroup(r, api.GroupConfig{Prefix: "/api"},
		authapi.AuthPublicModule(cfg.JWTSecret, store),
	)
	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: cfg.JWTSecret,
		Store:     store,
	},
		authapi.AuthSessionModule(cfg.JWTSecret, store),
		bookingapi.CalendarModule(store, cache, channel),
	)

	log.Info().Str("address", cfg.ServerAddress).Msg("listening")
	if err := r.Run(cfg.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
