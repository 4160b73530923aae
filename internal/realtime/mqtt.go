package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const subscriptionBuffer = 64

// MQTTChannel carries change events over an MQTT broker, one topic per
// calendar. Duplicate delivery is possible at QoS 1; consumers must apply
// events idempotently.
type MQTTChannel struct {
	client mqtt.Client

	mu   sync.Mutex
	subs map[*mqttSub]struct{}
}

type mqttSub struct {
	topic  string
	events chan ChangeEvent
	once   sync.Once
}

// NewMQTTChannel connects to the broker and returns a ready channel.
func NewMQTTChannel(brokerURL, clientID string) (*MQTTChannel, error) {
	c := &MQTTChannel{subs: make(map[*mqttSub]struct{})}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Error().Err(err).Msg("MQTT connection lost")
		c.dropSubscriptions()
	}

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return c, nil
}

func calendarTopic(calendarID int) string {
	return fmt.Sprintf("calendar/%d/changes", calendarID)
}

// Subscribe opens a QoS 1 subscription on the calendar's topic. The returned
// stream ends when the broker connection drops; missed events are not
// replayed, so consumers must refetch before resubscribing.
func (c *MQTTChannel) Subscribe(calendarID int) (*Subscription, error) {
	sub := &mqttSub{
		topic:  calendarTopic(calendarID),
		events: make(chan ChangeEvent, subscriptionBuffer),
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var ev ChangeEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("dropping undecodable change event")
			return
		}
		select {
		case sub.events <- ev:
		default:
			log.Warn().Str("topic", msg.Topic()).Msg("subscriber too slow, dropping change event")
		}
	}

	if token := c.client.Subscribe(sub.topic, 1, handler); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", sub.topic, token.Error())
	}

	c.mu.Lock()
	c.subs[sub] = struct{}{}
	c.mu.Unlock()

	return &Subscription{
		Events: sub.events,
		cancel: func() {
			c.mu.Lock()
			delete(c.subs, sub)
			c.mu.Unlock()
			c.client.Unsubscribe(sub.topic)
			sub.close()
		},
	}, nil
}

// Publish sends the event to the calendar's topic at QoS 1.
func (c *MQTTChannel) Publish(calendarID int, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	topic := calendarTopic(calendarID)
	token := c.client.Publish(topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker and ends every open subscription.
func (c *MQTTChannel) Close() {
	c.dropSubscriptions()
	c.client.Disconnect(250)
}

func (c *MQTTChannel) dropSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sub := range c.subs {
		sub.close()
		delete(c.subs, sub)
	}
}

func (s *mqttSub) close() {
	s.once.Do(func() { close(s.events) })
}
