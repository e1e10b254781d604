package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/notifhub/notifhub/pkg/apiclient"
	"github.com/notifhub/notifhub/pkg/config"
	"github.com/notifhub/notifhub/pkg/httpapi"
	"github.com/notifhub/notifhub/pkg/httpserver"
	"github.com/notifhub/notifhub/pkg/logger"
	"github.com/notifhub/notifhub/pkg/routes"
	"github.com/notifhub/notifhub/pkg/session"
	"github.com/notifhub/notifhub/pkg/store"
	"github.com/notifhub/notifhub/pkg/transport"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`

	// Credential and SubjectID identify this session towards the backend. A
	// real host application supplies these from its auth layer; the daemon
	// reads them from the environment.
	Credential string `env:"NOTIFICATIONS_TOKEN,required"`
	SubjectID  string `env:"NOTIFICATIONS_SUBJECT_ID,required"`
	CompanyID  string `env:"NOTIFICATIONS_COMPANY_ID"`

	// Transport selects the push transport: "websocket" or "redis".
	Transport  string `env:"PUSH_TRANSPORT" envDefault:"websocket"`
	RoutesFile string `env:"NOTIFICATIONS_ROUTES_FILE"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "notifhubd:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var appCfg appConfig
	if err := config.Load(&appCfg); err != nil {
		return err
	}

	var log = logger.New(logger.WithProduction("notifhubd"))
	if appCfg.Environment == "development" {
		log = logger.New(logger.WithDevelopment("notifhubd"))
	}
	logger.SetAsDefault(log)

	dialer, err := buildDialer(appCfg.Transport)
	if err != nil {
		return err
	}

	var apiCfg apiclient.Config
	if err := config.Load(&apiCfg); err != nil {
		return err
	}
	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	var uiCfg httpapi.Config
	if err := config.Load(&uiCfg); err != nil {
		return err
	}

	credential := func() string { return appCfg.Credential }
	company := func() string { return appCfg.CompanyID }

	table := routes.DefaultTable()
	if appCfg.RoutesFile != "" {
		table, err = routes.LoadTable(appCfg.RoutesFile)
		if err != nil {
			return err
		}
	}

	api := apiclient.FromConfig(apiCfg, credential)

	sess := session.New(
		transport.NewClient(dialer, transport.WithLogger(log)),
		store.New(api, company,
			store.WithStoreLogger(log),
			store.WithPageLimit(apiCfg.PageLimit),
		),
		routes.NewAggregator(table),
		credential,
		company,
		session.WithLogger(log),
		session.WithCompanyCounts(api),
	)
	defer sess.Dispose()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The push transport reconnects on its own; a failed initial load is not
	// fatal either, the UI surface reports it and a refresh retries.
	if err := sess.Init(ctx, appCfg.SubjectID); err != nil {
		log.Error("session init incomplete", logger.Error(err))
	}

	handler := httpapi.New(sess,
		httpapi.WithLogger(log),
		httpapi.WithDebug(uiCfg.EnableDebug),
	)

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, handler.Router())
}

func buildDialer(kind string) (transport.Dialer, error) {
	switch kind {
	case "websocket":
		var cfg transport.WebSocketConfig
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return transport.NewWebSocketDialer(cfg), nil
	case "redis":
		var cfg transport.RedisConfig
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return transport.NewRedisDialer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown push transport %q", kind)
	}
}
