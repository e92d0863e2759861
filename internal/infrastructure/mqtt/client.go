package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/carpark-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	ackTimeout     = 5 * time.Second
	keepAlive      = 60 * time.Second

	// quiesceMillis lets in-flight acks land before Disconnect drops the socket.
	quiesceMillis = 1000
)

// Logger is the part of logging.Logger the client reports through.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler handles one inbound message. paho runs it on its own
// goroutine; a returned error is logged, never acked differently.
type MessageHandler func(topic string, payload []byte) error

// route is a subscription kept for replay after a reconnect.
type route struct {
	qos     byte
	handler MessageHandler
}

// Client is the lot's broker session.
//
// Occupancy and display state go out retained, sensor triggers come in,
// and the process announces itself on carpark/system/status with a last
// will covering crashes. Safe for concurrent use.
type Client struct {
	paho     pahomqtt.Client
	clientID string
	qos      byte
	up       atomic.Bool

	mu           sync.Mutex
	routes       map[string]route
	logger       Logger
	onConnect    func()
	onDisconnect func(error)
}

// Connect opens a session with the broker in cfg. The first attempt must
// succeed within connectTimeout; after that paho reconnects on its own
// with backoff between InitialDelay and MaxDelay.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		clientID: cfg.Broker.ClientID,
		qos:      byte(cfg.QoS), //nolint:gosec // validated to 0..2
		routes:   make(map[string]route),
	}

	opts := brokerOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionLost(err) })

	c.paho = pahomqtt.NewClient(opts)
	if err := await(c.paho.Connect(), connectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// sessionUp runs asynchronously; callers may publish before it fires.
	c.up.Store(true)
	return c, nil
}

// brokerOptions maps the process config onto paho, including the crash
// will on the status topic.
func brokerOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	broker := url.URL{
		Scheme: "tcp",
		Host:   net.JoinHostPort(cfg.Broker.Host, strconv.Itoa(cfg.Broker.Port)),
	}
	if cfg.Broker.TLS {
		broker.Scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(broker.String()).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetBinaryWill(Topics{}.SystemStatus(), presence(cfg.Broker.ClientID, statusOffline, reasonCrash), 1, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// sessionUp replays subscriptions, announces the lot and runs the hook.
// It fires on the first connect and on every reconnect.
func (c *Client) sessionUp() {
	c.up.Store(true)

	c.mu.Lock()
	routes := make(map[string]route, len(c.routes))
	for topic, r := range c.routes {
		routes[topic] = r
	}
	hook := c.onConnect
	c.mu.Unlock()

	for topic, r := range routes {
		c.paho.Subscribe(topic, r.qos, c.dispatch(r.handler))
	}
	c.paho.Publish(Topics{}.SystemStatus(), c.qos, true, presence(c.clientID, statusOnline, ""))

	if hook != nil {
		hook()
	}
}

func (c *Client) sessionLost(err error) {
	c.up.Store(false)

	c.mu.Lock()
	hook := c.onDisconnect
	c.mu.Unlock()

	if hook != nil {
		hook(err)
	}
}

// Close marks the lot offline (distinct from the crash will) and
// disconnects. Closing an unconnected client is a no-op.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.paho.Publish(Topics{}.SystemStatus(), c.qos, true, presence(c.clientID, statusOffline, reasonShutdown))
		token.WaitTimeout(ackTimeout)
	}
	c.paho.Disconnect(quiesceMillis)
	c.up.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while paho is between sessions.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether a broker session is currently up.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.up.Load() && c.paho.IsConnected()
}

// SetOnConnect sets a hook run after every (re)connect.
func (c *Client) SetOnConnect(hook func()) {
	c.mu.Lock()
	c.onConnect = hook
	c.mu.Unlock()
}

// SetOnDisconnect sets a hook run when the session drops.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.mu.Lock()
	c.onDisconnect = hook
	c.mu.Unlock()
}

// SetLogger sets where handler errors and panics are reported.
// Without one they are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logger
}

// dispatch adapts handler to paho, containing panics so one bad trigger
// cannot take down the router goroutine.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if l := c.log(); l != nil {
					l.Error("mqtt handler panicked", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if l := c.log(); l != nil {
				l.Warn("mqtt handler failed", "topic", msg.Topic(), "error", err)
			}
		}
	}
}

// await waits for a paho token and turns a missed deadline into an error.
func await(token pahomqtt.Token, d time.Duration) error {
	if !token.WaitTimeout(d) {
		return fmt.Errorf("no broker ack within %v", d)
	}
	return token.Error()
}
