package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datachat/ai"
	"datachat/cache"
	"datachat/db"
	"datachat/handlers"
	"datachat/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		if servePort != "" {
			cfg.Port = servePort
		}

		store, err := db.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		client := ai.New(ai.Options{
			APIKey:             cfg.CohereAPIKey,
			BaseURL:            cfg.CohereBaseURL,
			ChatModel:          cfg.ChatModel,
			VisionModel:        cfg.VisionModel,
			HTTPTimeout:        cfg.HTTPTimeout,
			MinRequestInterval: cfg.MinRequestInterval,
			Cache:              cache.New(),
			Logger:             log,
		})
		if !client.HasDefaultKey() {
			log.Warn("MAIN", "COHERE_API_KEY not set, requests must carry their own key", nil)
		}

		exports, err := service.NewExportStorage(cfg.ExportDir)
		if err != nil {
			return err
		}

		var sqlService *service.SQLServerService
		if cfg.SQLServer.Enabled() {
			sqlService, err = service.NewSQLServerService(cfg.SQLServer, log)
			if err != nil {
				log.Warn("MAIN", "SQL Server features will be unavailable", map[string]interface{}{"error": err.Error()})
			} else {
				defer sqlService.Close()
				log.Info("MAIN", "SQL Server service initialized", map[string]interface{}{"server": cfg.SQLServer.Server})
			}
		}

		charts := service.NewChartGenerator(client, service.NewRunRegistry(), log)
		chat := service.NewChatService(store, client, charts, exports, sqlService, log)

		h := handlers.New(store, client, chat, log, handlers.Options{
			MaxUploadBytes:  cfg.MaxUploadMB << 20,
			AIKeyConfigured: client.HasDefaultKey(),
		})
		router := handlers.NewRouter(h, handlers.RouterConfig{
			AllowedOrigins: cfg.CorsAllowedOrigins,
			StaticDir:      cfg.StaticDir,
		})

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("MAIN", "server starting", map[string]interface{}{
				"port":    cfg.Port,
				"swagger": "http://localhost:" + cfg.Port + "/swagger/index.html",
			})
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		log.Info("MAIN", "shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}
