// Package mqtt connects the dashboard to the bot's MQTT broker.
// The bot publishes a status message when it finishes a queued request; the
// dashboard routes those messages to whoever is waiting on that request, and
// announces new requests so the bot does not have to wait for its next poll.
package mqtt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TopicRoot prefixes every topic the dashboard uses
const TopicRoot = "pancy/dashboard"

// RequestTopic is where new requests of a kind are announced
func RequestTopic(kind string) string {
	return fmt.Sprintf("%s/%s/new", TopicRoot, kind)
}

// StatusTopic is where the bot reports progress on one request
func StatusTopic(kind, id string) string {
	return fmt.Sprintf("%s/%s/%s/status", TopicRoot, kind, id)
}

// Announcement is the payload published on RequestTopic
type Announcement struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
}

type route struct {
	pattern string
	fn      func(topic string, payload []byte)
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client   mqtt.Client
	clientID string

	mu     sync.RWMutex
	routes map[uint64]route
	nextID uint64
}

// NewMqttCommunicator creates a communicator and starts connecting. A broker
// that is down is retried in the background; Watch and Announce degrade to
// no-ops until it comes up.
func NewMqttCommunicator(host, port, username, password, clientID string) *MqttCommunicator {
	mc := newRouter(clientID)

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", clientID), "MQTT")
			// Subscriptions do not survive a reconnect without a persistent session
			token := c.Subscribe(TopicRoot+"/#", 0, func(_ mqtt.Client, msg mqtt.Message) {
				mc.dispatch(msg.Topic(), msg.Payload())
			})
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				logger.Error(fmt.Sprintf("Error subscribing to %s/#: %v", TopicRoot, token.Error()), "MQTT")
			}
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(opts)

	token := mc.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		logger.Warn("El broker MQTT no respondió a tiempo, se seguirá intentando en segundo plano", "MQTT")
	} else if token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return mc
}

func newRouter(clientID string) *MqttCommunicator {
	return &MqttCommunicator{
		clientID: clientID,
		routes:   make(map[uint64]route),
	}
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc.client != nil && mc.client.IsConnected()
}

// Publish sends a JSON message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	if !mc.IsConnected() {
		return fmt.Errorf("mqtt not connected")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, data)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Route registers fn for every message under TopicRoot whose topic matches
// pattern ('+' and '#' wildcards). The returned func removes the route.
func (mc *MqttCommunicator) Route(pattern string, fn func(topic string, payload []byte)) func() {
	mc.mu.Lock()
	mc.nextID++
	id := mc.nextID
	mc.routes[id] = route{pattern: pattern, fn: fn}
	mc.mu.Unlock()

	return func() {
		mc.mu.Lock()
		delete(mc.routes, id)
		mc.mu.Unlock()
	}
}

func (mc *MqttCommunicator) dispatch(topic string, payload []byte) {
	mc.mu.RLock()
	targets := make([]func(string, []byte), 0, 1)
	for _, r := range mc.routes {
		if topicMatch(r.pattern, topic) {
			targets = append(targets, r.fn)
		}
	}
	mc.mu.RUnlock()

	for _, fn := range targets {
		fn(topic, payload)
	}
}

// Watch returns a channel that is signalled whenever the bot reports on the
// given request. Signals coalesce; the channel is never closed.
func (mc *MqttCommunicator) Watch(kind, id string) (<-chan struct{}, func()) {
	signal := make(chan struct{}, 1)
	cancel := mc.Route(StatusTopic(kind, id), func(string, []byte) {
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	return signal, cancel
}

// Announce tells the bot a new request is waiting in the store
func (mc *MqttCommunicator) Announce(kind, id string) {
	err := mc.Publish(RequestTopic(kind), Announcement{ID: id, Kind: kind, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		logger.Debug(fmt.Sprintf("No se pudo anunciar %s/%s: %v", kind, id, err), "MQTT")
	}
}

// topicMatch checks if a received topic matches a pattern (with wildcards)
// '+' matches exactly one topic level
// '#' matches zero or more topic levels and must be the last character
func topicMatch(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	for i := 0; i < len(patternParts); i++ {
		if patternParts[i] == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if patternParts[i] == "+" {
			continue
		}
		if patternParts[i] != topicParts[i] {
			return false
		}
	}

	return len(patternParts) == len(topicParts)
}
