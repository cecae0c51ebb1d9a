package playback

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/MimeLyc/wordsub/pkg/log"
	"golang.org/x/text/language"
)

// MPV drives a running mpv instance through its JSON IPC socket
// (mpv --input-ipc-server=<path>).
type MPV struct {
	conn    net.Conn
	timeout time.Duration

	writeMu sync.Mutex
	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan mpvResponse
	closed  bool
	done    chan struct{}
}

type mpvRequest struct {
	Command   []interface{} `json:"command"`
	RequestID int64         `json:"request_id"`
}

type mpvResponse struct {
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	RequestID int64           `json:"request_id"`
	Event     string          `json:"event"`
}

// DialMPV connects to the IPC socket at path.
func DialMPV(path string, timeout time.Duration) (*MPV, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to mpv at %s: %w", path, err)
	}
	m := &MPV{
		conn:    conn,
		timeout: timeout,
		pending: make(map[int64]chan mpvResponse),
		done:    make(chan struct{}),
	}
	go m.readLoop()
	return m, nil
}

func (m *MPV) readLoop() {
	defer close(m.done)
	scanner := bufio.NewScanner(m.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var resp mpvResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			log.Debug("mpv: unreadable message: %v", err)
			continue
		}
		if resp.Event != "" {
			log.Debug("mpv event: %s", resp.Event)
			continue
		}
		m.mu.Lock()
		ch, ok := m.pending[resp.RequestID]
		delete(m.pending, resp.RequestID)
		m.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
	m.mu.Lock()
	m.closed = true
	for id, ch := range m.pending {
		close(ch)
		delete(m.pending, id)
	}
	m.mu.Unlock()
}

func (m *MPV) command(ctx context.Context, args ...interface{}) (json.RawMessage, error) {
	ch := make(chan mpvResponse, 1)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New("mpv connection closed")
	}
	m.nextID++
	id := m.nextID
	m.pending[id] = ch
	m.mu.Unlock()

	payload, err := json.Marshal(mpvRequest{Command: args, RequestID: id})
	if err != nil {
		m.forget(id)
		return nil, err
	}
	m.writeMu.Lock()
	_ = m.conn.SetWriteDeadline(time.Now().Add(m.timeout))
	_, err = m.conn.Write(append(payload, '\n'))
	m.writeMu.Unlock()
	if err != nil {
		m.forget(id)
		return nil, fmt.Errorf("mpv write: %w", err)
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, errors.New("mpv connection closed")
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], resp.Error)
		}
		return resp.Data, nil
	case <-timer.C:
		m.forget(id)
		return nil, fmt.Errorf("mpv %v: timed out", args[0])
	case <-ctx.Done():
		m.forget(id)
		return nil, ctx.Err()
	}
}

func (m *MPV) forget(id int64) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

func (m *MPV) set(name string, value interface{}) error {
	_, err := m.command(context.Background(), "set_property", name, value)
	return err
}

func (m *MPV) getFloat(name string) (float64, error) {
	data, err := m.command(context.Background(), "get_property", name)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("mpv %s: %w", name, err)
	}
	return v, nil
}

func (m *MPV) getBool(name string) (bool, error) {
	data, err := m.command(context.Background(), "get_property", name)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return false, fmt.Errorf("mpv %s: %w", name, err)
	}
	return v, nil
}

// Load replaces the current file and leaves it paused.
func (m *MPV) Load(ctx context.Context, path string) error {
	if _, err := m.command(ctx, "loadfile", path, "replace"); err != nil {
		return err
	}
	return m.set("pause", true)
}

func (m *MPV) Play() error  { return m.set("pause", false) }
func (m *MPV) Pause() error { return m.set("pause", true) }

func (m *MPV) Stop() error {
	_, err := m.command(context.Background(), "stop")
	return err
}

func (m *MPV) SetPosition(seconds float64) error {
	return m.set("time-pos", seconds)
}

func (m *MPV) Position() (float64, error) {
	return m.getFloat("time-pos")
}

func (m *MPV) Duration() (float64, error) {
	return m.getFloat("duration")
}

func (m *MPV) SetRate(multiplier float64) error {
	return m.set("speed", multiplier)
}

func (m *MPV) IsPlaying() bool {
	idle, err := m.getBool("idle-active")
	if err != nil || idle {
		return false
	}
	paused, err := m.getBool("pause")
	return err == nil && !paused
}

func (m *MPV) NativeSubtitles(lang language.Tag) error {
	if lang != language.Und {
		if err := m.set("slang", lang.String()); err != nil {
			return err
		}
	}
	if err := m.set("sid", "auto"); err != nil {
		return err
	}
	return m.set("sub-visibility", true)
}

func (m *MPV) HideNativeSubtitles() error {
	return m.set("sub-visibility", false)
}

func (m *MPV) Close() error {
	err := m.conn.Close()
	<-m.done
	return err
}
