package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Tag groups every notification of the service, newer ones replace older on the device.
const Tag = "notecal-general"

var (
	ErrNoToken  = errors.New("push token is not registered")
	ErrDelivery = errors.New("push delivery failed")
)

type Message struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"ownerId"`
	Token   string    `json:"token"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	Tag     string    `json:"tag"`
	Time    time.Time `json:"time"`
}

// NewMessage builds a message for a device token. An empty token gives ErrNoToken.
func NewMessage(ownerID, token, title, body string, at time.Time) (Message, error) {
	if strings.TrimSpace(token) == "" {
		return Message{}, fmt.Errorf("user %s: %w", ownerID, ErrNoToken)
	}
	return Message{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Token:   token,
		Title:   title,
		Body:    body,
		Tag:     Tag,
		Time:    at.UTC(),
	}, nil
}

type Deliverer interface {
	Deliver(ctx context.Context, m Message) error
}

type Config struct {
	// GatewayURL receives messages as JSON. Messages are only logged when empty.
	GatewayURL string
	AuthKey    string
	Timeout    time.Duration
}

func NewDeliverer(config Config) Deliverer {
	if config.GatewayURL == "" {
		return LogDeliverer{}
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDeliverer{
		url:     config.GatewayURL,
		authKey: config.AuthKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type LogDeliverer struct{}

func (LogDeliverer) Deliver(_ context.Context, m Message) error {
	if m.Token == "" {
		return ErrNoToken
	}
	log.WithField("owner", m.OwnerID).
		WithField("tag", m.Tag).
		Infof("push %q: %s", m.Title, m.Body)
	return nil
}

type gatewayRequest struct {
	To           string              `json:"to"`
	Notification gatewayNotification `json:"notification"`
	Data         map[string]string   `json:"data,omitempty"`
}

type gatewayNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// HTTPDeliverer posts messages to a push gateway.
type HTTPDeliverer struct {
	url     string
	authKey string
	client  *http.Client
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, m Message) error {
	if m.Token == "" {
		return ErrNoToken
	}
	tag := m.Tag
	if tag == "" {
		tag = Tag
	}
	body, err := json.Marshal(gatewayRequest{
		To:           m.Token,
		Notification: gatewayNotification{Title: m.Title, Body: m.Body, Tag: tag},
		Data:         map[string]string{"id": m.ID, "time": m.Time.Format(time.RFC3339)},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.authKey != "" {
		req.Header.Set("Authorization", "key="+d.authKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDelivery, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status=%d body=%s", ErrDelivery, resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}
