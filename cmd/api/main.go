package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"neuroforge/internal/adapter/repo"
	"neuroforge/internal/domain"
	"neuroforge/internal/http/handlers"
	"neuroforge/internal/http/httpapi"
	"neuroforge/internal/infra"
	"neuroforge/internal/infra/geoip"
	"neuroforge/internal/lock"
	"neuroforge/internal/middleware"
	"neuroforge/internal/providers/filelink"
	"neuroforge/internal/providers/speech"
	"neuroforge/internal/providers/taskexec"
	"neuroforge/internal/service"
	"neuroforge/internal/store/sqlproxy"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	var (
		users       domain.UserRepository
		showcase    domain.ShowcaseRepository
		generations domain.GenerationRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		users = repo.NewUserRepository(pool)
		showcase = repo.NewShowcaseRepository(pool)
		generations = repo.NewGenerationRepository(pool)
		logger.Info().Msg("persistence: postgres")
	} else {
		proxy, err := sqlproxy.NewClient(sqlproxy.Options{
			URL:         cfg.SQLProxyURL,
			BearerToken: cfg.SQLProxyToken,
			Logger:      &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build sql proxy client")
		}
		users = sqlproxy.NewUserRepo(proxy)
		showcase = sqlproxy.NewShowcaseRepo(proxy)
		generations = sqlproxy.NewGenerationRepo(proxy)
		logger.Info().Msg("persistence: sql proxy")
	}

	var locker lock.AccountLocker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		locker = lock.NewRedisLocker(rdb, cfg.TaskTimeout+time.Minute)
		logger.Info().Msg("generation lock: redis")
	} else {
		locker = lock.NewMemoryLocker()
		logger.Info().Msg("generation lock: in-process")
	}

	runner, err := taskexec.NewClient(taskexec.Options{
		ProxyURL:        cfg.TaskProxyURL,
		FunctionsBaseID: cfg.TaskFunctionsBaseID,
		DefaultHost:     cfg.TaskAPIHost,
		DefaultTimeout:  cfg.TaskTimeout,
		PollInterval:    cfg.TaskPollInterval,
		Logger:          &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build task client")
	}
	resolver, err := filelink.NewResolver(filelink.Options{
		ConvertURL:  cfg.FileConvertURL,
		UploadToken: cfg.FileUploadToken,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build link resolver")
	}
	stt, err := speech.NewClient(speech.Options{
		UploadURL:     cfg.AudioUploadURL,
		TranscribeURL: cfg.AudioSTTURL,
		Logger:        &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build speech client")
	}

	accounts := service.NewAccountService(users, generations, &logger)
	generator := service.NewGenerationService(service.GenerationServiceOptions{
		Runner:      runner,
		Resolver:    resolver,
		Users:       users,
		Showcase:    showcase,
		Generations: generations,
		Locker:      locker,
		Logger:      &logger,
	})

	var lookup middleware.CountryLookup
	countryResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if countryResolver != nil {
		lookup = countryResolver.CountryCode
	}

	app := &handlers.App{
		Accounts:  accounts,
		Generator: generator,
		Showcase:  showcase,
		Speech:    stt,
		JWTSecret: cfg.JWTSecret,
		Logger:    &logger,
	}
	router := httpapi.NewRouter(app, cfg, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
