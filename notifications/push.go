package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publisher is the part of mqtt.Client used for push delivery
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// PushPayload is what the web application's service worker receives
type PushPayload struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	InterventionID uint   `json:"interventionId"`
	URL            string `json:"url"`
}

// MQTTPusher publishes push requests to a per-technician MQTT topic
type MQTTPusher struct {
	client      publisher
	topicPrefix string
	appURL      string
}

// ConnectMQTT connects to brokerURL
func ConnectMQTT(brokerURL, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return client, nil
}

// NewMQTTPusher creates a push sender on top of an MQTT client
func NewMQTTPusher(client publisher, topicPrefix, appURL string) *MQTTPusher {
	return &MQTTPusher{client: client, topicPrefix: strings.TrimRight(topicPrefix, "/"), appURL: appURL}
}

// Send publishes the push payload for req
func (p *MQTTPusher) Send(ctx context.Context, req Request) error {
	msg, err := Render(req, p.appURL)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(PushPayload{
		Title:          msg.Title,
		Body:           msg.Body,
		InterventionID: req.Intervention.ID,
		URL:            fmt.Sprintf("%s/interventions/%d", strings.TrimRight(p.appURL, "/"), req.Intervention.ID),
	})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	token := p.client.Publish(p.Topic(req.Recipient.Name), 1, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("push not confirmed: %w", ctx.Err())
	}
}

// Topic returns the MQTT topic of a technician
func (p *MQTTPusher) Topic(technician string) string {
	slug := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '+', '#':
			return '-'
		}
		return r
	}, strings.ToLower(strings.TrimSpace(technician)))
	return p.topicPrefix + "/" + slug
}
