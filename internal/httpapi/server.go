package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/internal/library"
	"github.com/MimeLyc/wordsub/internal/service"
	"github.com/MimeLyc/wordsub/pkg/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/text/language"
)

// sessionAPI is the part of service.Session the API drives.
type sessionAPI interface {
	Snapshot() (service.Snapshot, error)
	OpenMedia(ctx context.Context, path string) error
	LoadSubtitles(path string) error
	SelectTrack(ctx context.Context, i int) error
	CancelTrackSelection() error
	ActivateWord(word, sentence string) (string, error)
	Play() error
	Pause() error
	Stop() error
	Seek(delta float64) (float64, error)
	SetPosition(seconds float64) error
	SetRate(multiplier float64) error
	ToggleTranslations() (bool, error)
	SetTargetLanguage(tag language.Tag) error
}

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

type exporter interface {
	Run(ctx context.Context) (int, error)
	Status() service.ExportStatus
}

type catalog interface {
	Scan(ctx context.Context) (*library.Catalog, error)
	Invalidate()
}

type Server struct {
	session        sessionAPI
	broker         *Broker
	settings       runtimeSettingsStore
	apply          runtimeSettingsApplier
	exporter       exporter
	library        catalog
	allowedOrigins []string
	keepAlive      time.Duration

	router *chi.Mux
	server *http.Server
}

type Option func(*Server)

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func WithExporter(e exporter) Option {
	return func(s *Server) {
		s.exporter = e
	}
}

func WithLibrary(c catalog) Option {
	return func(s *Server) {
		s.library = c
	}
}

// WithAllowedOrigins sets the CORS origins. Empty allows any origin without
// credentials.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithKeepAlive sets the interval of comment lines on idle streams.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		s.keepAlive = d
	}
}

func NewServer(session sessionAPI, broker *Broker, opts ...Option) *Server {
	s := &Server{
		session:   session,
		broker:    broker,
		keepAlive: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("HTTP API listening on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions(s.allowedOrigins)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/stream", s.handleStream)
		r.Get("/library", s.handleLibrary)

		r.Group(func(r chi.Router) {
			r.Use(maxBodySize(1 << 20))

			r.Post("/media", s.handleOpenMedia)
			r.Post("/subtitles", s.handleLoadSubtitles)
			r.Post("/tracks/select", s.handleSelectTrack)
			r.Post("/tracks/cancel", s.handleCancelTrack)
			r.Post("/words", s.handleActivateWord)

			r.Post("/playback/{action}", s.handlePlayback)
			r.Post("/translations/toggle", s.handleToggleTranslations)
			r.Put("/language", s.handleLanguage)

			r.Get("/export", s.handleExportStatus)
			r.Post("/export", s.handleExport)

			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handlePutSettings)
		})
	})
	s.router = r
}

func corsOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowCreds := true
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
			break
		}
	}
	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}

// quietPaths are only logged on errors.
var quietPaths = map[string]bool{
	"/api/state": true,
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if quietPaths[r.URL.Path] && status < 400 {
			return
		}
		log.Debug("%s %s %d %s", r.Method, r.URL.Path, status, time.Since(start))
	})
}

func maxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
