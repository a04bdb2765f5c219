// Package tutorws dials the tutoring service's realtime voice endpoint and
// manages the resulting websocket channel.
package tutorws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voicetutor/internal/domain"
	"voicetutor/internal/ports"
)

const (
	voicePath            = "/api/realtime/ws/voice"
	defaultInboundDepth  = 64
	defaultOutboundDepth = 32
	closeWriteTimeout    = 2 * time.Second
)

// Config holds provider settings.
type Config struct {
	BaseURL string
	Token   string

	// InboundDepth and OutboundDepth bound the channel queues.
	InboundDepth  int
	OutboundDepth int
}

// Provider opens voice channels against one tutoring service.
type Provider struct {
	cfg Config
	log *slog.Logger

	tokenMu sync.RWMutex
	token   string
}

// NewProvider builds a provider with defaults applied.
func NewProvider(cfg Config, log *slog.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.InboundDepth <= 0 {
		cfg.InboundDepth = defaultInboundDepth
	}
	if cfg.OutboundDepth <= 0 {
		cfg.OutboundDepth = defaultOutboundDepth
	}
	if log == nil {
		log = slog.Default()
	}
	return &Provider{cfg: cfg, log: log, token: strings.TrimSpace(cfg.Token)}
}

// SetToken replaces the auth token used for subsequent channels.
func (p *Provider) SetToken(token string) {
	p.tokenMu.Lock()
	p.token = strings.TrimSpace(token)
	p.tokenMu.Unlock()
}

func (p *Provider) currentToken() string {
	p.tokenMu.RLock()
	defer p.tokenMu.RUnlock()
	return p.token
}

// Open dials the voice endpoint and returns the live channel.
func (p *Provider) Open(ctx context.Context, session domain.SessionConfig) (ports.VoiceChannel, error) {
	token := p.currentToken()
	if token == "" {
		return nil, domain.NewError(domain.ErrorCodeConfig, "auth token is not configured")
	}

	wsURL, err := buildVoiceURL(p.cfg.BaseURL, token, session)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open voice channel: %w", err)
	}

	log := p.log.With("session_id", session.SessionID)
	c := &voiceChannel{
		conn:     conn,
		log:      log,
		inbound:  make(chan []byte, p.cfg.InboundDepth),
		outbound: make(chan []byte, p.cfg.OutboundDepth),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	go func() {
		c.wg.Wait()
		close(c.inbound)
		close(c.done)
		c.conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	return c, nil
}

type voiceChannel struct {
	conn *websocket.Conn
	log  *slog.Logger

	inbound  chan []byte
	outbound chan []byte
	done     chan struct{}
	closing  chan struct{}
	wg       sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeOnce    sync.Once
	shutdownOnce sync.Once
	closed       atomic.Bool
}

func (c *voiceChannel) readLoop() {
	defer c.wg.Done()
	defer c.beginShutdown()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.setErr(err)
			return
		}
		select {
		case c.inbound <- payload:
		default:
			c.log.Warn("inbound queue full; dropping message")
		}
	}
}

func (c *voiceChannel) writeLoop() {
	defer c.wg.Done()

	for {
		select {
		case payload := <-c.outbound:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.setErr(fmt.Errorf("failed to send frame: %w", err))
				return
			}
		case <-c.closing:
			return
		}
	}
}

func (c *voiceChannel) beginShutdown() {
	c.shutdownOnce.Do(func() {
		close(c.closing)
	})
}

// Send queues one payload for delivery. When the queue is full the oldest
// pending frame is dropped so live audio never backs up.
func (c *voiceChannel) Send(payload []byte) error {
	if c.closed.Load() {
		return errors.New("voice channel is closed")
	}
	msg := append([]byte(nil), payload...)
	for {
		select {
		case c.outbound <- msg:
			return nil
		case <-c.done:
			return errors.New("voice channel is closed")
		default:
		}
		select {
		case <-c.outbound:
			c.log.Debug("outbound queue full; dropping oldest frame")
		case <-c.done:
			return errors.New("voice channel is closed")
		default:
		}
	}
}

// Inbound returns the stream of raw server payloads. The channel closes when
// the connection ends.
func (c *voiceChannel) Inbound() <-chan []byte {
	return c.inbound
}

// Wait blocks until the channel terminated and reports the terminal error.
// Normal closes yield nil.
func (c *voiceChannel) Wait() error {
	<-c.done
	return c.terminalErr()
}

func (c *voiceChannel) terminalErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close performs a client-initiated shutdown with a normal close frame.
func (c *voiceChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		deadline := time.Now().Add(closeWriteTimeout)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.beginShutdown()
		c.conn.Close()
	})
	<-c.done
	return c.Wait()
}

// setErr records the first terminal error. Close frames with codes 1000 and
// 1001 count as a clean shutdown; every other close code is a failure.
func (c *voiceChannel) setErr(err error) {
	if err == nil {
		return
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			return
		}
		err = &domain.ChannelClosure{Code: closeErr.Code, Reason: closeErr.Text}
	}
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
}

// buildVoiceURL derives the websocket URL from the HTTP base and attaches the
// session parameters the service expects.
func buildVoiceURL(base, token string, session domain.SessionConfig) (string, error) {
	base = strings.TrimSpace(base)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	u, err := url.Parse(base + voicePath)
	if err != nil {
		return "", fmt.Errorf("invalid server base URL: %w", err)
	}

	query := u.Query()
	query.Set("token", token)
	query.Set("session_id", session.SessionID)
	query.Set("exam_id", session.ExamID)
	query.Set("subject_id", session.SubjectID)
	query.Set("chapter_id", session.ChapterID)
	query.Set("exam_name", session.ExamName)
	query.Set("subject_name", session.SubjectName)
	query.Set("chapter_name", session.ChapterName)
	if len(session.AccessibilitySettings) > 0 {
		blob, err := json.Marshal(session.AccessibilitySettings)
		if err != nil {
			return "", fmt.Errorf("invalid accessibility settings: %w", err)
		}
		query.Set("accessibility_settings", string(blob))
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
