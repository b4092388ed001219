package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusIdentifying  Status = "identifying"
	StatusConnected    Status = "connected"
)

var (
	ErrNotConnected     = errors.New("not connected to the gateway")
	ErrAlreadyRunning   = errors.New("gateway is already running")
	errInvalidSession   = errors.New("gateway invalidated the session")
	errZombieConnection = errors.New("gateway stopped acknowledging heartbeats")
)

type Settings struct {
	Token string

	BootstrapRetryDelay time.Duration
	ReconnectDelay      time.Duration
	HandshakeTimeout    time.Duration
	WriteTimeout        time.Duration

	MaxResumeAttempts   int
	MaxMissedHeartbeats int

	Properties IdentifyProperties
}

func DefaultSettings(token string) Settings {
	return Settings{
		Token:               token,
		BootstrapRetryDelay: 5 * time.Second,
		ReconnectDelay:      3 * time.Second,
		HandshakeTimeout:    10 * time.Second,
		WriteTimeout:        10 * time.Second,
		MaxResumeAttempts:   3,
		MaxMissedHeartbeats: 3,
		Properties: IdentifyProperties{
			OS:      runtime.GOOS,
			Browser: runtime.GOOS,
			Device:  "Go Library",
		},
	}
}

// URLResolver looks up where the gateway currently lives.
type URLResolver interface {
	GatewayURL(ctx context.Context) (string, error)
}

// Handler receives dispatches and failures, always from the goroutine running Run.
type Handler interface {
	HandleDispatch(event Event)
	HandleError(err error)
}

type Gateway struct {
	sugar     *zap.SugaredLogger
	settings  Settings
	resolver  URLResolver
	dialer    Dialer
	handler   Handler
	readiness *Readiness

	mutex       sync.Mutex
	status      Status
	running     bool
	intentional bool
	cancel      context.CancelFunc
	conn        Conn

	sessionID      string
	sequence       int64
	sequenced      bool
	resumeAttempts int
	resuming       bool

	heartbeatCancel  context.CancelFunc
	awaitingAck      bool
	missedHeartbeats int
	zombie           bool
	lastHeartbeat    time.Time
	latency          time.Duration
	measured         bool
}

func New(sugar *zap.SugaredLogger, settings Settings, resolver URLResolver, dialer Dialer, handler Handler, readiness *Readiness) *Gateway {
	return &Gateway{
		sugar:     sugar,
		settings:  settings,
		resolver:  resolver,
		dialer:    dialer,
		handler:   handler,
		readiness: readiness,
		status:    StatusDisconnected,
	}
}

func (g *Gateway) Status() Status {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	return g.status
}

func (g *Gateway) setStatus(status Status) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.status = status
}

func (g *Gateway) SessionID() string {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	return g.sessionID
}

// Ping reports the latency of the last acknowledged heartbeat.
func (g *Gateway) Ping() (time.Duration, bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	return g.latency, g.measured
}

// Run keeps a gateway session alive until ctx is cancelled or Disconnect is
// called. It returns nil after a Disconnect.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.mutex.Lock()
	if g.running {
		g.mutex.Unlock()
		return ErrAlreadyRunning
	}
	g.running = true
	g.intentional = false
	g.cancel = cancel
	g.mutex.Unlock()

	defer func() {
		g.mutex.Lock()
		g.running = false
		g.cancel = nil
		g.status = StatusDisconnected
		g.mutex.Unlock()
	}()

	for {
		g.setStatus(StatusConnecting)
		url, err := g.resolve(ctx)
		if err != nil {
			return g.stopError(ctx)
		}

		err = g.session(ctx, url)
		g.setStatus(StatusDisconnected)
		if ctx.Err() != nil {
			return g.stopError(ctx)
		}
		if err != nil {
			g.sugar.Warnf("Gateway session ended: %v", err)
			g.handler.HandleError(err)
		}

		g.sugar.Infof("Reconnecting to gateway in %s", g.settings.ReconnectDelay)
		if !sleep(ctx, g.settings.ReconnectDelay) {
			return g.stopError(ctx)
		}
	}
}

func (g *Gateway) stopError(ctx context.Context) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.intentional {
		return nil
	}
	return ctx.Err()
}

// Disconnect closes the transport and stops Run without scheduling a reconnect.
func (g *Gateway) Disconnect() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.intentional = true
	if g.heartbeatCancel != nil {
		g.heartbeatCancel()
		g.heartbeatCancel = nil
	}
	if g.conn != nil {
		g.conn.Close()
	}
	if g.cancel != nil {
		g.cancel()
	}
}

// resolve retries forever, only giving up when ctx is done.
func (g *Gateway) resolve(ctx context.Context) (string, error) {
	for {
		url, err := g.resolver.GatewayURL(ctx)
		if err == nil {
			return url, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		g.sugar.Errorf("Couldn't resolve gateway URL, retrying in %s: %v", g.settings.BootstrapRetryDelay, err)
		g.handler.HandleError(fmt.Errorf("error resolving gateway URL: %w", err))

		if !sleep(ctx, g.settings.BootstrapRetryDelay) {
			return "", ctx.Err()
		}
	}
}

func (g *Gateway) session(ctx context.Context, url string) error {
	g.setStatus(StatusConnecting)
	g.sugar.Infof("Connecting to gateway at %s", url)

	conn, err := g.dialer.Dial(ctx, url)
	if err != nil {
		return fmt.Errorf("error dialing gateway: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)

	g.mutex.Lock()
	g.conn = conn
	g.status = StatusIdentifying
	g.zombie = false
	g.mutex.Unlock()

	defer func() {
		cancel()
		g.stopHeartbeat()
		conn.Close()

		g.mutex.Lock()
		g.conn = nil
		g.mutex.Unlock()
	}()

	// unblocks ReadFrame once the session is cancelled
	go func() {
		<-sessionCtx.Done()
		conn.Close()
	}()

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			if sessionCtx.Err() != nil {
				return nil
			}
			if g.isZombie() {
				return errZombieConnection
			}
			return fmt.Errorf("gateway connection closed: %w", err)
		}

		err = g.handleFrame(sessionCtx, conn, data)
		if err != nil {
			return err
		}
	}
}

func (g *Gateway) handleFrame(ctx context.Context, conn Conn, data []byte) error {
	var frame Frame
	err := json.Unmarshal(data, &frame)
	if err != nil {
		return fmt.Errorf("error parsing gateway frame: %w", err)
	}

	g.sugar.Debugf("Received op %d %s", frame.Op, frame.Type)

	switch frame.Op {
	case OpDispatch:
		g.receiveDispatch(&frame)
		g.handler.HandleDispatch(Event{
			Sequence: g.lastSequence(),
			Type:     frame.Type,
			Data:     frame.Data,
		})
	case OpHello:
		var hello helloData
		err = json.Unmarshal(frame.Data, &hello)
		if err != nil {
			return fmt.Errorf("error parsing HELLO: %w", err)
		}
		if hello.HeartbeatInterval <= 0 {
			return fmt.Errorf("gateway sent invalid heartbeat interval %d", hello.HeartbeatInterval)
		}
		g.startHeartbeat(ctx, conn, time.Duration(hello.HeartbeatInterval)*time.Millisecond)
		return g.identify(conn)
	case OpHeartbeatAck:
		g.receiveHeartbeatAck()
	case OpHeartbeat:
		return g.replyHeartbeat(conn)
	case OpInvalidSession:
		var resumable bool
		// anything but true means the session can't be resumed
		_ = json.Unmarshal(frame.Data, &resumable)

		g.mutex.Lock()
		if !resumable {
			g.sessionID = ""
		}
		g.resuming = false
		g.mutex.Unlock()

		g.sugar.Warnf("Gateway invalidated the session, resumable: %v", resumable)
		return errInvalidSession
	default:
		g.sugar.Debugf("Ignoring unknown op %d", frame.Op)
	}
	return nil
}

func (g *Gateway) receiveDispatch(frame *Frame) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if frame.Sequence != nil {
		g.sequence = *frame.Sequence
		g.sequenced = true
	}

	if frame.Type == EventReady {
		var ready readySession
		err := json.Unmarshal(frame.Data, &ready)
		if err != nil {
			g.sugar.Warnf("Couldn't read session ID from READY: %v", err)
		}
		g.sessionID = ready.SessionID
		g.status = StatusConnected
		g.resumeAttempts = 0
		g.resuming = false
		return
	}

	// the first dispatch after a RESUME means the server accepted it
	if g.resuming {
		g.status = StatusConnected
		g.resumeAttempts = 0
		g.resuming = false
	}
}

func (g *Gateway) lastSequence() int64 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	return g.sequence
}

// sequenceValue returns nil when no dispatch was seen yet, so it encodes as null.
func (g *Gateway) sequenceValue() *int64 {
	if !g.sequenced {
		return nil
	}
	sequence := g.sequence
	return &sequence
}

func (g *Gateway) identify(conn Conn) error {
	g.mutex.Lock()
	g.status = StatusIdentifying

	var op int
	var payload any
	if g.sessionID != "" && g.resumeAttempts < g.settings.MaxResumeAttempts {
		g.resumeAttempts++
		g.resuming = true
		op = OpResume
		payload = resumeData{
			Token:     g.settings.Token,
			SessionID: g.sessionID,
			Sequence:  g.sequenceValue(),
		}
		g.sugar.Infof("Resuming session %s, attempt %d", g.sessionID, g.resumeAttempts)
	} else {
		g.sessionID = ""
		g.resuming = false
		op = OpIdentify
		payload = identifyData{
			Token:              g.settings.Token,
			IdentifyProperties: g.settings.Properties,
		}
		g.readiness.Clear()
		g.sugar.Info("Identifying with a new session")
	}
	g.mutex.Unlock()

	return send(conn, op, payload)
}

// SendStatusUpdate sends a STATUS_UPDATE over the open session.
func (g *Gateway) SendStatusUpdate(payload any) error {
	g.mutex.Lock()
	conn := g.conn
	status := g.status
	g.mutex.Unlock()

	if conn == nil || status != StatusConnected {
		return ErrNotConnected
	}
	return send(conn, OpStatusUpdate, payload)
}

func send(conn Conn, op int, payload any) error {
	data, err := encodeFrame(op, payload)
	if err != nil {
		return err
	}
	err = conn.WriteFrame(data)
	if err != nil {
		return fmt.Errorf("error sending op %d: %w", op, err)
	}
	return nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
