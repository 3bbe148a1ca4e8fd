package main

import (
	"context"
	"net/http"

	"region-api/internal/config"
	"region-api/internal/handler"
	"region-api/internal/logging"
	"region-api/internal/metrics"
	"region-api/internal/repository"
	"region-api/internal/service"
	"region-api/internal/sgis"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	config, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logging.Setup(config.LogLevel, config.LogFormat)

	// Database connection
	conn, err := pgxpool.New(context.Background(), config.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close()

	repo := repository.NewRepository(conn)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("cannot create schema")
	}

	// Optional reverse geocode cache
	opts := []sgis.Option{sgis.WithHTTPClient(&http.Client{Timeout: config.SGISTimeout})}
	if config.RedisAddr == "" {
		log.Info().Msg("redis disabled")
	} else {
		rc := redis.NewClient(&redis.Options{Addr: config.RedisAddr, Password: config.RedisPassword, DB: config.RedisDB})
		defer rc.Close()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			log.Error().Err(err).Msg("redis ping failed")
		} else {
			log.Info().Str("addr", config.RedisAddr).Msg("redis ping ok")
		}
		opts = append(opts, sgis.WithCache(sgis.NewRedisCache(rc, config.SGISCacheTTL)))
	}

	// Initialize layers
	geocoder := sgis.NewClient(config.SGISBaseURL, config.SGISConsumerKey, config.SGISConsumerSecret, opts...)

	nearbyService := service.NewNearbyRegionService(geocoder, service.NearbyOptions{
		Workers:     config.NearbyWorkers,
		TaskTimeout: config.NearbyTaskTimeout,
		Deadline:    config.NearbyDeadline,
	})
	activityRegionService := service.NewActivityRegionService(geocoder, repo, nearbyService, config.MaxActivityRegions)
	regionSearchService := service.NewRegionSearchService(repo)

	regionHandler := handler.NewRegionHandler(activityRegionService)
	activityRegionHandler := handler.NewActivityRegionHandler(activityRegionService)
	regionSearchHandler := handler.NewRegionSearchHandler(regionSearchService)

	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestID(), handler.AccessLog())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	regions := r.Group("/regions")
	regions.GET("/location-info", regionHandler.LocationInfo)
	regions.GET("/nearby", regionHandler.Nearby)
	regions.GET("/search", regionSearchHandler.Search)

	users := r.Group("/users/:user_id/activity-regions")
	users.POST("", activityRegionHandler.Verify)
	users.GET("", activityRegionHandler.List)
	users.DELETE("/:region_id", activityRegionHandler.Delete)

	log.Info().Str("addr", config.ServerAddress).Msg("starting server")
	if err := r.Run(config.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
