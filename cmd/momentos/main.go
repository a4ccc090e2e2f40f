package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/MarcoPoloResearchLab/momentos/internal/config"
	"github.com/MarcoPoloResearchLab/momentos/internal/database"
	"github.com/MarcoPoloResearchLab/momentos/internal/listsync"
	"github.com/MarcoPoloResearchLab/momentos/internal/logging"
	"github.com/MarcoPoloResearchLab/momentos/internal/server"
	"github.com/MarcoPoloResearchLab/momentos/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "momentos",
		Short: "Momentos journal client",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
		SilenceUsage: true,
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newLoginCommand(), newLogoutCommand(), newRegisterCommand(), newListCommand(), newShowCommand(), newProfileCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().StringSlice("allowed-origins", nil, "CORS origins allowed to call the web frontend")
	cmd.PersistentFlags().Bool("secure-cookies", defaults.GetBool("http.secure_cookies"), "Mark the browser credential cookie Secure")
	cmd.PersistentFlags().String("api-base-url", defaults.GetString("api.base_url"), "Base URL of the moments REST API")
	cmd.PersistentFlags().Int("api-timeout-seconds", defaults.GetInt("api.timeout_seconds"), "Timeout for REST API calls in seconds")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path for the session store")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("dismiss-seconds", defaults.GetInt("status.dismiss_seconds"), "Seconds before transient status messages are dismissed")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.allowed_origins", "allowed-origins")
	bindFlag(cmd, "http.secure_cookies", "secure-cookies")
	bindFlag(cmd, "api.base_url", "api-base-url")
	bindFlag(cmd, "api.timeout_seconds", "api-timeout-seconds")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "status.dismiss_seconds", "dismiss-seconds")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// application holds the collaborators shared by the server and the commands.
type application struct {
	config   config.AppConfig
	logger   *zap.Logger
	sessions *session.Store
	client   *apiclient.Client
	close    func()
}

func openApplication(newLogger func(string) (*zap.Logger, error)) (*application, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	sessions, err := session.NewStore(session.StoreConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	client, err := apiclient.NewClient(apiclient.Config{
		BaseURL:  appConfig.APIBaseURL,
		Timeout:  appConfig.APITimeout,
		Sessions: sessions,
		Logger:   logger,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &application{
		config:   appConfig,
		logger:   logger,
		sessions: sessions,
		client:   client,
		close: func() {
			_ = sqlDB.Close()
			_ = logger.Sync()
		},
	}, nil
}

func runServer(ctx context.Context) error {
	app, err := openApplication(logging.NewLogger)
	if err != nil {
		return err
	}
	defer app.close()

	lists, err := listsync.NewController(listsync.Config{
		Source: app.client,
		Logger: app.logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Moments:        app.client,
		Accounts:       app.client,
		Sessions:       app.sessions,
		Lists:          lists,
		RequestIDs:     server.NewUUIDProvider(),
		AllowedOrigins: app.config.AllowedOrigins,
		SessionSecret:  []byte(app.config.SessionSecret),
		SecureCookies:  app.config.SecureCookies,
		DismissAfter:   app.config.DismissAfter,
		Logger:         app.logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    app.config.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server starting",
			zap.String("address", app.config.HTTPAddress),
			zap.String("api_base_url", app.config.APIBaseURL))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
