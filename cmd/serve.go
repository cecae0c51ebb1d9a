package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/internal/httpapi"
	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/MimeLyc/wordsub/internal/persistence"
	"github.com/MimeLyc/wordsub/internal/playback"
	"github.com/MimeLyc/wordsub/internal/service"
	"github.com/MimeLyc/wordsub/internal/translator"
	"github.com/MimeLyc/wordsub/internal/vocab"
	"github.com/MimeLyc/wordsub/pkg/log"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

type exportScheduler interface {
	Schedule(ctx context.Context, expr string) error
}

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var mediaPath string
	var subtitlePath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a playback session with its local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(addr) != "" {
				cfg.HTTP.Addr = strings.TrimSpace(addr)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(signalCtx, cfg, ctx.settingsPath())
			if err != nil {
				return err
			}
			defer a.Close()

			if mediaPath != "" {
				if err := a.session.OpenMedia(signalCtx, mediaPath); err != nil {
					return err
				}
			}
			if subtitlePath != "" {
				if err := a.session.LoadSubtitles(subtitlePath); err != nil {
					return err
				}
			}
			return runWithComponents(signalCtx, cfg, a.exporter, a.cron, a.server)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $HTTP_ADDR)")
	cmd.Flags().StringVar(&mediaPath, "media", "", "Media file to open on start")
	cmd.Flags().StringVar(&subtitlePath, "subtitles", "", "External .srt file to load on start")
	return cmd
}

// runWithComponents schedules the export, starts cron and serves HTTP until
// ctx is done or the server fails.
func runWithComponents(ctx context.Context, cfg *config.Config, scheduler exportScheduler, cronEngine cronRunner, httpSrv httpServer) error {
	if err := scheduler.Schedule(ctx, cfg.Vocab.ExportCron); err != nil {
		return err
	}
	cronEngine.Start()
	defer func() {
		select {
		case <-cronEngine.Stop().Done():
		case <-time.After(shutdownTimeout):
			log.Warn("Timed out waiting for scheduled jobs to finish")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe(cfg.HTTP.Addr)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown: %v", err)
	}
	return <-errCh
}

// app is everything serve wires together.
type app struct {
	store     persistence.Store
	transport playback.Transport
	session   *service.Session
	broker    *httpapi.Broker
	exporter  *service.Exporter
	cron      *cron.Cron
	server    *httpapi.Server
}

func newApp(ctx context.Context, cfg *config.Config, settingsPath string) (*app, error) {
	store, err := persistence.Open(cfg.Vocab)
	if err != nil {
		return nil, service.WrapError(err, service.ErrPersistence, "open vocabulary store")
	}
	backend, err := translator.NewFromConfig(cfg.LLM)
	if err != nil {
		_ = store.Close()
		return nil, service.WrapError(err, service.ErrConfig, "translation backend")
	}
	transport, err := openTransport(cfg.Media)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	fetcher := vocab.NewBackendFetcher(backend, cfg.Translate.SourceLanguage, cfg.Translate.TargetLanguage)
	words := vocab.NewService(store, fetcher, vocab.Options{RetryErrors: cfg.Vocab.RetryErrors})
	if cfg.Vocab.WarmCache {
		if _, err := words.Warm(ctx); err != nil {
			log.Warn("Could not warm the translation cache: %v", err)
		}
	}

	broker := httpapi.NewBroker(0)
	session := service.NewSession(service.Deps{
		Transport: transport,
		Operator:  media.NewFFmpeg(cfg.Media.FFmpegBin, cfg.Media.FFprobeBin),
		Vocab:     words,
		Fetcher:   fetcher,
		Presenter: broker,
	}, service.OptionsFromConfig(cfg))
	session.Start(ctx)

	c := service.NewCron()
	exporter := service.NewExporter(store, cfg.Vocab.ExportPath, c)

	a := &app{
		store:     store,
		transport: transport,
		session:   session,
		broker:    broker,
		exporter:  exporter,
		cron:      c,
	}

	opts := []httpapi.Option{
		httpapi.WithExporter(exporter),
		httpapi.WithAllowedOrigins(cfg.HTTP.AllowedOrigins),
	}
	if len(cfg.Media.Dirs) > 0 {
		opts = append(opts, httpapi.WithLibrary(newLibraryScanner(cfg, cfg.Media.Dirs, false)))
	}
	settings, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
	if err != nil {
		log.Warn("Runtime settings disabled: %v", err)
	} else {
		opts = append(opts,
			httpapi.WithRuntimeSettingsStore(settings),
			httpapi.WithRuntimeSettingsApplier(newSettingsApplier(ctx, cfg.LLM, session, exporter)),
		)
	}
	a.server = httpapi.NewServer(session, broker, opts...)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if err := a.session.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.transport.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// openTransport drives mpv when a socket is configured and a simulated clock
// otherwise.
func openTransport(cfg config.MediaConfig) (playback.Transport, error) {
	if strings.TrimSpace(cfg.MPVSocket) == "" {
		log.Info("No MPV_SOCKET set, using the simulated player")
		return playback.NewSimulated(), nil
	}
	mpv, err := playback.DialMPV(cfg.MPVSocket, 2*time.Second)
	if err != nil {
		return nil, service.WrapError(err, service.ErrPlayback, "connect to mpv")
	}
	log.Info("Connected to mpv at %s", cfg.MPVSocket)
	return mpv, nil
}

type settingsTarget interface {
	SetBackend(backend translator.Backend) error
	SetTargetLanguage(tag language.Tag) error
}

// newSettingsApplier returns the hook that makes saved runtime settings take
// effect without a restart.
func newSettingsApplier(ctx context.Context, base config.LLMConfig, target settingsTarget, scheduler exportScheduler) func(config.RuntimeSettings) error {
	return func(next config.RuntimeSettings) error {
		llmCfg := base
		llmCfg.APIURL = next.LLMAPIURL
		llmCfg.Model = next.LLMModel
		if strings.TrimSpace(next.LLMAPIKey) != "" {
			llmCfg.APIKey = next.LLMAPIKey
		}
		backend, err := translator.NewFromConfig(llmCfg)
		if err != nil {
			return fmt.Errorf("apply llm settings: %w", err)
		}
		if err := target.SetBackend(backend); err != nil {
			return err
		}
		tag, err := language.Parse(next.TargetLanguage)
		if err != nil {
			return fmt.Errorf("apply target language: %w", err)
		}
		if err := target.SetTargetLanguage(tag); err != nil {
			return err
		}
		return scheduler.Schedule(ctx, next.ExportCron)
	}
}
