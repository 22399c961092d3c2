package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autopitch/callflow/agent/classifier"
	"github.com/autopitch/callflow/agent/composer"
	contractx "github.com/autopitch/callflow/agent/contract"
	executorx "github.com/autopitch/callflow/agent/executor"
	orchestratorx "github.com/autopitch/callflow/agent/orchestrator"
	"github.com/autopitch/callflow/agent/slotfill"
	statex "github.com/autopitch/callflow/agent/state"
	"github.com/autopitch/callflow/agent/tool"
	"github.com/autopitch/callflow/api"
	configx "github.com/autopitch/callflow/pkg/config"
	logx "github.com/autopitch/callflow/pkg/logger"
	openrouterx "github.com/autopitch/callflow/pkg/openrouter"
)

type AppConfig struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("")

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient := openrouterx.NewClient(*openRouterCfg)

	var cls contractx.Classifier
	var cmp contractx.ReplyComposer
	if openRouterClient != nil {
		var err error
		cls, err = classifier.NewOpenAI(openRouterClient, openRouterCfg.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("init llm classifier")
		}
		cmp, err = composer.NewOpenAI(openRouterClient, openRouterCfg.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("init llm composer")
		}
		log.Info().Str("model", openRouterCfg.Model).Msg("using llm classifier and composer")
	} else {
		cls = classifier.NewKeyword()
		cmp = composer.NewTemplate()
		log.Info().Msg("no llm configured, using keyword classifier and template composer")
	}

	var calendar contractx.Calendar
	if os.Getenv("CALENDAR_URL") != "" {
		calendarCfg := configx.MustNew[tool.CalendarConfig]("CALENDAR")
		client, err := tool.NewCalendarClient(*calendarCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init calendar client")
		}
		calendar = client
	} else {
		calendar = tool.NewMemoryCalendar()
		log.Info().Msg("no calendar service configured, booking in memory")
	}

	var crm contractx.CRM
	var pgCRM *tool.PostgresCRM
	if os.Getenv("CRM_DSN") != "" {
		crmCfg := configx.MustNew[tool.PostgresCRMConfig]("CRM")
		pg, err := tool.NewPostgresCRM(*crmCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init postgres crm")
		}
		initCtx, cancel := context.WithTimeout(context.Background(), crmCfg.Timeout)
		if err := pg.Init(initCtx); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("init crm schema")
		}
		cancel()
		crm = pg
		pgCRM = pg
	} else {
		crm = tool.NewMemoryCRM()
		log.Info().Msg("no crm configured, keeping leads in memory")
	}

	exec, err := executorx.New(calendar, crm)
	if err != nil {
		log.Fatal().Err(err).Msg("init executor")
	}

	orch, err := orchestratorx.New(
		statex.NewMemoryStore(),
		cls,
		slotfill.NewDateTimeExtractor(),
		exec,
		cmp,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("init orchestrator")
	}

	server, err := api.NewServer(orch, crm)
	if err != nil {
		log.Fatal().Err(err).Msg("init api server")
	}

	httpServer := &http.Server{
		Addr:              appCfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", appCfg.HTTPAddr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if pgCRM != nil {
		if err := pgCRM.Close(); err != nil {
			log.Error().Err(err).Msg("crm close")
		}
	}
}
