package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"chatapp-gateway/internal/dispatch"
	"chatapp-gateway/internal/gateway"
	"chatapp-gateway/internal/hub"
	"chatapp-gateway/internal/jwt"
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/rest"
	"chatapp-gateway/internal/snowflake"
	"chatapp-gateway/internal/store"
	"chatapp-gateway/internal/validator"

	"go.uber.org/zap"
)

var (
	ErrNotConnected   = gateway.ErrNotConnected
	ErrAlreadyRunning = gateway.ErrAlreadyRunning
	ErrUnknownServer  = errors.New("server is not cached")
)

type Options struct {
	Token               string
	APIURL              string
	MessageCacheSize    int
	MaxMissedHeartbeats int

	// optional, mostly for tests
	HTTPClient       *http.Client
	Dialer           gateway.Dialer
	ConfigureGateway func(settings *gateway.Settings)
}

type Client struct {
	sugar     *zap.SugaredLogger
	hub       *hub.Hub
	store     *store.Store
	rest      *rest.Client
	readiness *gateway.Readiness
	router    *dispatch.Router
	gateway   *gateway.Gateway

	mutex  sync.Mutex
	done   chan struct{}
	cancel context.CancelFunc
}

func New(sugar *zap.SugaredLogger, options Options) *Client {
	settings := gateway.DefaultSettings(options.Token)
	if options.MaxMissedHeartbeats > 0 {
		settings.MaxMissedHeartbeats = options.MaxMissedHeartbeats
	}
	if options.ConfigureGateway != nil {
		options.ConfigureGateway(&settings)
	}

	dialer := options.Dialer
	if dialer == nil {
		dialer = gateway.NewWebsocketDialer(settings.HandshakeTimeout, settings.WriteTimeout)
	}

	c := &Client{
		sugar:     sugar,
		hub:       hub.New(sugar),
		store:     store.New(sugar, options.MessageCacheSize),
		rest:      rest.New(sugar, options.APIURL, options.Token, options.HTTPClient),
		readiness: gateway.NewReadiness(),
	}
	c.router = dispatch.New(sugar, c.store, c.hub, c.readiness)
	c.gateway = gateway.New(sugar, settings, c.rest, dialer, c.router, c.readiness)

	c.inspectToken(options.Token)
	return c
}

func (c *Client) inspectToken(token string) {
	claims, err := jwt.Inspect(token)
	if err != nil {
		c.sugar.Debugf("Token is not a JWT, skipping expiry check: %v", err)
		return
	}

	now := time.Now()
	if claims.Expired(now) {
		c.sugar.Warnf("Token of user ID [%d] expired at %s", claims.UserID, claims.ExpiresAt.Time)
	} else if claims.ExpiresAt != nil {
		c.sugar.Infof("Token of user ID [%d] expires in %s", claims.UserID, claims.ExpiresIn(now).Round(time.Second))
	}
}

func (c *Client) Hub() *hub.Hub {
	return c.hub
}

func (c *Client) Store() *store.Store {
	return c.store
}

// SetRelay forwards every signal to relay, encoding payloads under the store's read lock.
func (c *Client) SetRelay(relay hub.Relay) {
	c.hub.SetRelay(relay, c.store.View)
}

func (c *Client) Status() gateway.Status {
	return c.gateway.Status()
}

// Ping reports the heartbeat latency, ok is false until the first acknowledgement.
func (c *Client) Ping() (latency time.Duration, ok bool) {
	return c.gateway.Ping()
}

func (c *Client) Ready() bool {
	return c.readiness.Ready()
}

// User is the authenticated user, nil before READY.
func (c *Client) User() *models.User {
	return c.store.Self()
}

// Run connects and blocks until ctx is cancelled or Disconnect is called.
func (c *Client) Run(ctx context.Context) error {
	return c.gateway.Run(ctx)
}

// Connect starts the gateway session in the background.
func (c *Client) Connect(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.done != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.done = done
	c.cancel = cancel

	go func() {
		defer close(done)
		defer cancel()

		err := c.gateway.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.sugar.Errorf("Gateway stopped: %v", err)
		}

		c.mutex.Lock()
		c.done = nil
		c.cancel = nil
		c.mutex.Unlock()
	}()
	return nil
}

// Disconnect closes the session without reconnecting and waits for the
// background session started by Connect to end. Requests in flight are
// left to finish on their own.
func (c *Client) Disconnect() {
	c.mutex.Lock()
	done := c.done
	cancel := c.cancel
	c.mutex.Unlock()

	c.gateway.Disconnect()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// requestFailed raises failures that never got a response on the error
// signal, on top of returning them.
func (c *Client) requestFailed(err error) error {
	if rest.IsTransportError(err) && !errors.Is(err, context.Canceled) {
		hub.Emit(c.hub, hub.Error, err)
	}
	return err
}

func (c *Client) CreateMessage(ctx context.Context, channelID snowflake.ID, content string) (*models.Message, error) {
	err := validator.MessageContent(content)
	if err != nil {
		return nil, err
	}

	data, err := c.rest.CreateMessage(ctx, channelID, content)
	if err != nil {
		return nil, c.requestFailed(err)
	}
	return c.store.MergeMessage(data), nil
}

func (c *Client) EditMessage(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID, content string) (*models.Message, error) {
	err := validator.MessageContent(content)
	if err != nil {
		return nil, err
	}

	data, err := c.rest.EditMessage(ctx, channelID, messageID, content)
	if err != nil {
		return nil, c.requestFailed(err)
	}
	return c.store.MergeMessage(data), nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID) error {
	err := c.rest.DeleteMessage(ctx, channelID, messageID)
	if err != nil {
		return c.requestFailed(err)
	}
	return nil
}

type statusUpdate struct {
	Status   models.Status    `json:"status"`
	Activity *models.Activity `json:"activity"`
}

// UpdateStatus changes the presence of the authenticated user.
func (c *Client) UpdateStatus(status models.Status, activity *models.Activity) error {
	err := validator.Status(status)
	if err != nil {
		return err
	}
	err = validator.Activity(activity)
	if err != nil {
		return err
	}

	return c.gateway.SendStatusUpdate(statusUpdate{Status: status, Activity: activity})
}

// FetchServers merges the server list of the API into the store. Servers
// already cached are patched, never replaced.
func (c *Client) FetchServers(ctx context.Context) ([]*models.Server, error) {
	data, err := c.rest.Servers(ctx)
	if err != nil {
		return nil, c.requestFailed(err)
	}
	return c.store.MergeServers(data), nil
}

func (c *Client) FetchMembers(ctx context.Context, serverID snowflake.ID) ([]*models.Member, error) {
	data, err := c.rest.Members(ctx, serverID)
	if err != nil {
		return nil, c.requestFailed(err)
	}

	members, ok := c.store.MergeMembers(serverID, data)
	if !ok {
		return nil, fmt.Errorf("error merging members of server ID [%d]: %w", serverID, ErrUnknownServer)
	}
	return members, nil
}

// FetchMessages merges recent messages of a channel into its cache. Messages
// of channels that are not cached come back detached.
func (c *Client) FetchMessages(ctx context.Context, serverID snowflake.ID, channelID snowflake.ID) ([]*models.Message, error) {
	data, err := c.rest.Messages(ctx, channelID)
	if err != nil {
		return nil, c.requestFailed(err)
	}

	messages := make([]*models.Message, 0, len(data))
	for i := range data {
		if data[i].ServerID == 0 {
			data[i].ServerID = serverID
		}
		if data[i].ChannelID == 0 {
			data[i].ChannelID = channelID
		}
		messages = append(messages, c.store.MergeMessage(&data[i]))
	}
	return messages, nil
}
