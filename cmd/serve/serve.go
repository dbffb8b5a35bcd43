// Package serve implements the HTTP service command.
package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/lungcheck/internal/api"
	apiv1 "github.com/tphakala/lungcheck/internal/api/v1"
	"github.com/tphakala/lungcheck/internal/classifier"
	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/datastore"
	"github.com/tphakala/lungcheck/internal/diagnosis"
	"github.com/tphakala/lungcheck/internal/logger"
	"github.com/tphakala/lungcheck/internal/observability"
)

// poolStatsInterval is how often database pool gauges are refreshed.
const poolStatsInterval = 15 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diagnosis HTTP service",
		Long:  "Load the classifier once, open the prediction store and serve the JSON API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("host", conf.DefaultHost, "Listen address")
	cmd.Flags().IntP("port", "p", conf.DefaultPort, "Listen port")
	cmd.Flags().String("model", conf.DefaultModelPath, "Path to the TFLite weights artifact")

	for key, flag := range map[string]string{
		"webserver.host": "host",
		"webserver.port": "port",
		"model.path":     "model",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}

// Run builds every component from settings and serves until ctx is cancelled.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("serve")

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	handle := classifier.New(classifier.ConfigFromSettings(settings))
	defer handle.Close()
	if err := handle.Load(); err != nil {
		return fmt.Errorf("failed to load classifier: %w", err)
	}
	m.Diagnosis.SetModelTrained(handle.Trained())

	store, err := datastore.Open(settings, datastore.WithMetrics(m.Datastore))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close datastore", logger.Error(err))
		}
	}()

	orch := diagnosis.NewOrchestrator(handle, diagnosis.WithMetrics(m.Diagnosis))
	historyCache := apiv1.NewHistoryCache(settings.API.HistoryCacheTTL)
	service := diagnosis.NewService(orch, store, diagnosis.OnAppend(historyCache.Invalidate))

	server, err := api.New(settings, service,
		api.WithMetrics(m),
		api.WithControllerOptions(
			apiv1.WithModelStatus(ModelStatus(handle)),
			apiv1.WithDatabase(store),
			apiv1.WithHistoryCache(historyCache),
		))
	if err != nil {
		return err
	}

	info := handle.Info()
	log.Info("lungcheck starting",
		logger.String("address", settings.Address()),
		logger.String("device", string(info.Device)),
		logger.String("backend", string(info.Backend)),
		logger.Bool("trained", info.Trained),
		logger.String("database", settings.Database.Type))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		refreshPoolStats(gctx, store)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("lungcheck stopped")
	return nil
}

// ModelStatus adapts the classifier handle to the health endpoint.
func ModelStatus(h *classifier.Handle) func() apiv1.ModelStatus {
	return func() apiv1.ModelStatus {
		info := h.Info()
		return apiv1.ModelStatus{
			Ready:   info.Ready,
			Trained: info.Trained,
			Device:  string(info.Device),
			Backend: string(info.Backend),
		}
	}
}

// refreshPoolStats pings the store periodically so connection gauges stay current.
func refreshPoolStats(ctx context.Context, store datastore.Store) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := store.Ping(pingCtx); err != nil {
				logger.Global().Module("serve").Warn("database ping failed", logger.Error(err))
			}
			cancel()
		}
	}
}
