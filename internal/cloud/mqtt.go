package cloud

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/baysense/bayd/internal/monitoring"
)

// Config holds the MQTT connection parameters.
type Config struct {
	// BrokerURL is the broker address, e.g. "tcp://broker.example:1883"
	// or "ssl://broker.example:8883".
	BrokerURL string
	// ClientID prefixes the MQTT client id; a random suffix is appended
	// so a restarted unit does not kick its own stale session.
	ClientID string
	Username string
	Password string

	// TopicPrefix and BayID form the report topic:
	// <TopicPrefix>/<BayID>/<property>.
	TopicPrefix string
	BayID       string

	// ConnectTimeout bounds a single broker dial inside paho. It does
	// not block SetupClient; attempts complete asynchronously.
	ConnectTimeout time.Duration

	// OutboxSize bounds reports queued between pumps.
	OutboxSize int
}

type publication struct {
	topic   string
	payload []byte
}

// MQTTClient implements Client over paho. Reconnection policy lives in
// the control loop's retry scheduler, not in paho, so auto-reconnect and
// connect-retry stay off. The paho client is built lazily on the first
// SetupClient because its callbacks are write-once options.
type MQTTClient struct {
	cfg Config

	mu           sync.Mutex
	client       mqtt.Client
	statusFn     func(connected bool)
	connectToken mqtt.Token
	inflight     []mqtt.Token

	outbox chan publication
}

// NewMQTTClient initializes the MQTT client. It does not connect; the
// first SetupClient call does. An error here is a fatal setup error for
// the daemon.
func NewMQTTClient(cfg Config) (*MQTTClient, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("cloud: broker URL is required")
	}
	if cfg.BayID == "" {
		return nil, fmt.Errorf("cloud: bay ID is required")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "parking"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "bayd"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = 16
	}

	return &MQTTClient{
		cfg:    cfg,
		outbox: make(chan publication, cfg.OutboxSize),
	}, nil
}

// SetConnectionStatusCallback registers fn for session up/down events.
// Must be called before the first SetupClient; later calls have no
// effect on an already-built session.
func (c *MQTTClient) SetConnectionStatusCallback(fn func(connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusFn = fn
}

// ensureClient builds the paho client with the registered callbacks.
// Caller holds c.mu.
func (c *MQTTClient) ensureClient() mqtt.Client {
	if c.client != nil {
		return c.client
	}
	fn := c.statusFn
	if fn == nil {
		fn = func(bool) {}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.BrokerURL)
	opts.SetClientID(fmt.Sprintf("%s-%s", c.cfg.ClientID, uuid.NewString()[:8]))
	opts.SetUsername(c.cfg.Username)
	opts.SetPassword(c.cfg.Password)
	opts.SetConnectTimeout(c.cfg.ConnectTimeout)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.OnConnect = func(_ mqtt.Client) { fn(true) }
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		monitoring.Logf("broker connection lost: %v", err)
		fn(false)
	}
	c.client = mqtt.NewClient(opts)
	return c.client
}

// SetupClient starts a broker connection attempt unless one is connected
// or already in flight. Never blocks: the return value only reports
// whether a session exists right now.
func (c *MQTTClient) SetupClient() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	client := c.ensureClient()
	if client.IsConnected() {
		return true
	}

	if c.connectToken != nil {
		select {
		case <-c.connectToken.Done():
			if err := c.connectToken.Error(); err != nil {
				monitoring.Logf("WARNING: broker connect attempt failed: %v", err)
			}
			c.connectToken = nil
		default:
			// Attempt still in flight; don't stack another.
			return false
		}
	}

	c.connectToken = c.client.Connect()
	return c.client.IsConnected()
}

// DoPeriodicTasks flushes the report outbox and reaps completed
// publishes. Bounded work per call; never blocks on the network.
func (c *MQTTClient) DoPeriodicTasks() {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return
	}

	for {
		select {
		case p := <-c.outbox:
			t := client.Publish(p.topic, 1, true, p.payload)
			c.mu.Lock()
			c.inflight = append(c.inflight, t)
			c.mu.Unlock()
		default:
			c.reapInflight()
			return
		}
	}
}

func (c *MQTTClient) reapInflight() {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.inflight[:0]
	for _, t := range c.inflight {
		select {
		case <-t.Done():
			if err := t.Error(); err != nil {
				monitoring.Logf("WARNING: report publish failed: %v", err)
			}
		default:
			remaining = append(remaining, t)
		}
	}
	c.inflight = remaining
}

// ReportState queues a retained property report for the next pump.
func (c *MQTTClient) ReportState(property string, value any) error {
	payload, err := encodeReport(value, time.Now())
	if err != nil {
		return fmt.Errorf("cloud: failed to encode report: %w", err)
	}
	select {
	case c.outbox <- publication{topic: c.topicFor(property), payload: payload}:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Close disconnects from the broker, allowing a short drain for queued
// packets.
func (c *MQTTClient) Close() {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil {
		client.Disconnect(250)
	}
}

func (c *MQTTClient) topicFor(property string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.TopicPrefix, c.cfg.BayID, property)
}

func encodeReport(value any, at time.Time) ([]byte, error) {
	return json.Marshal(map[string]any{
		"value": value,
		"ts":    at.UTC().Format(time.RFC3339),
	})
}
