package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/internal/service"
	"github.com/MimeLyc/wordsub/internal/translator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type fakeScheduler struct {
	mu    sync.Mutex
	exprs []string
	err   error
}

func (f *fakeScheduler) Schedule(_ context.Context, expr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exprs = append(f.exprs, expr)
	return f.err
}

func (f *fakeScheduler) scheduled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.exprs...)
}

type fakeCron struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func (f *fakeCron) state() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped
}

type fakeHTTP struct {
	listenCalled chan struct{}
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	listenErr    error
	addr         string
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(addr string) error {
	f.addr = addr
	close(f.listenCalled)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

func TestMain_StartsCronAndHTTP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		HTTP:  config.HTTPConfig{Addr: "127.0.0.1:0"},
		Vocab: config.VocabConfig{ExportCron: "@daily"},
	}
	scheduler := &fakeScheduler{}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, cfg, scheduler, cronEngine, httpSrv)
	}()

	select {
	case <-httpSrv.listenCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.Equal(t, []string{"@daily"}, scheduler.scheduled())
	assert.Equal(t, "127.0.0.1:0", httpSrv.addr)
	started, stopped := cronEngine.state()
	assert.True(t, started)
	assert.True(t, stopped)
}

func TestMain_HTTPFailureStopsCron(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"}}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()
	httpSrv.listenErr = errors.New("address already in use")

	err := runWithComponents(context.Background(), cfg, &fakeScheduler{}, cronEngine, httpSrv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
	_, stopped := cronEngine.state()
	assert.True(t, stopped)
}

func TestMain_ScheduleErrorPreventsStart(t *testing.T) {
	cfg := &config.Config{}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()

	err := runWithComponents(context.Background(), cfg, &fakeScheduler{err: errors.New("bad cron")}, cronEngine, httpSrv)
	require.Error(t, err)
	started, _ := cronEngine.state()
	assert.False(t, started)
	select {
	case <-httpSrv.listenCalled:
		t.Fatal("http server started despite the schedule error")
	default:
	}
}

type fakeSettingsTarget struct {
	backend translator.Backend
	target  language.Tag
}

func (f *fakeSettingsTarget) SetBackend(b translator.Backend) error {
	f.backend = b
	return nil
}

func (f *fakeSettingsTarget) SetTargetLanguage(tag language.Tag) error {
	f.target = tag
	return nil
}

func TestSettingsApplier(t *testing.T) {
	base := config.LLMConfig{
		Provider:    config.ProviderLLM,
		APIURL:      "http://localhost:11434/v1",
		Model:       "gemma3:1b-it-qat",
		MaxTokens:   64,
		Temperature: 0.2,
		Timeout:     30,
	}
	target := &fakeSettingsTarget{}
	scheduler := &fakeScheduler{}
	apply := newSettingsApplier(context.Background(), base, target, scheduler)

	err := apply(config.RuntimeSettings{
		LLMAPIURL:      "http://llm.local/v1",
		LLMModel:       "mistral",
		ExportCron:     "0 3 * * *",
		TargetLanguage: "fr",
	})
	require.NoError(t, err)
	require.NotNil(t, target.backend)
	assert.Equal(t, language.French, target.target)
	assert.Equal(t, []string{"0 3 * * *"}, scheduler.scheduled())

	err = apply(config.RuntimeSettings{
		LLMAPIURL:      "http://llm.local/v1",
		LLMModel:       "mistral",
		TargetLanguage: "not a language!",
	})
	assert.Error(t, err)
}

func TestNewApp_ServesSessionState(t *testing.T) {
	env := newTestEnv(t)
	cfg, err := config.NewFromEnv()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := newApp(ctx, cfg, env.settings)
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(a.server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap service.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, a.session.ID(), snap.SessionID)
	assert.Equal(t, "es", snap.SourceLanguage)
	assert.Equal(t, "en", snap.TargetLanguage)
	assert.True(t, snap.TranslationsVisible)

	resp, err = http.Get(srv.URL + "/api/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
