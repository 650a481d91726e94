package di

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	activityRepo "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/repository"
	activityService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/service"
	channelRepo "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/repository"
	channelService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/service"
	deliveryService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/delivery/service"
	feedService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/feed/service"
	postService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/service"
	scheduleService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/schedule/service"
	userService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/user/service"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/config"
	httpServer "github.com/reshetovitsme/x-telegram-scheduler/internal/transport/http"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Channel Repository
	do.Provide(injector, func(i do.Injector) (channelRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := channelRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize channel repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Activity Repository
	do.Provide(injector, func(i do.Injector) (activityRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := activityRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize activity repository").Wrap(err)
		}
		return repo, nil
	})

	// Register User Service
	do.Provide(injector, func(i do.Injector) (*userService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return userService.New(cfg.TeamPasswords), nil
	})

	// Register Channel Service
	do.Provide(injector, func(i do.Injector) (*channelService.Service, error) {
		repo := do.MustInvoke[channelRepo.Repository](i)
		return channelService.New(repo), nil
	})

	// Register Activity Service
	do.Provide(injector, func(i do.Injector) (*activityService.Service, error) {
		repo := do.MustInvoke[activityRepo.Repository](i)
		return activityService.New(repo), nil
	})

	// Register Post Fetcher
	do.Provide(injector, func(i do.Injector) (*postService.Fetcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		fetcher := postService.NewFetcher(cfg.SourceAPIURL, cfg.XBearerToken)
		fetcher.SetLogger(slog.Default())
		return fetcher, nil
	})

	// Register Media Downloader
	do.Provide(injector, func(i do.Injector) (*postService.Downloader, error) {
		cfg := do.MustInvoke[*config.Config](i)
		downloader := postService.NewDownloader(cfg.MediaDir)
		downloader.SetLogger(slog.Default())
		return downloader, nil
	})

	// Register Bot
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)

		var opts []bot.Option
		if cfg.TelegramAPIURL != "https://api.telegram.org" {
			opts = append(opts, bot.WithServerURL(cfg.TelegramAPIURL))
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		// Set bot in channel service for destination verification
		channelService := do.MustInvoke[*channelService.Service](i)
		channelService.SetBot(b)

		return b, nil
	})

	// Register Delivery Service
	do.Provide(injector, func(i do.Injector) (*deliveryService.Service, error) {
		b := do.MustInvoke[*bot.Bot](i)
		service := deliveryService.New(b)
		service.SetLogger(slog.Default())
		return service, nil
	})

	// Register Schedule Service
	do.Provide(injector, func(i do.Injector) (*scheduleService.Service, error) {
		delivery := do.MustInvoke[*deliveryService.Service](i)
		activity := do.MustInvoke[*activityService.Service](i)
		service := scheduleService.New(delivery, activity)
		service.SetLogger(slog.Default())
		return service, nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		activity := do.MustInvoke[*activityService.Service](i)
		return feedService.New(activity), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		server := httpServer.New(
			cfg,
			do.MustInvoke[*userService.Service](i),
			do.MustInvoke[*channelService.Service](i),
			do.MustInvoke[*postService.Fetcher](i),
			do.MustInvoke[*postService.Downloader](i),
			do.MustInvoke[*deliveryService.Service](i),
			do.MustInvoke[*scheduleService.Service](i),
			do.MustInvoke[*activityService.Service](i),
			do.MustInvoke[*feedService.Service](i),
		)
		server.SetLogger(slog.Default())
		return server, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	// Close bot if it exists
	if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
		b.Close(ctx)
	}

	return nil
}
