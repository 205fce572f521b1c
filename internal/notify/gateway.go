package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GatewayTransport posts messages to an external WhatsApp/SMS gateway.
type GatewayTransport struct {
	url     string
	apiKey  string
	channel string
	client  *http.Client
}

func NewGatewayTransport(url, apiKey, channel string) *GatewayTransport {
	return &GatewayTransport{
		url:     url,
		apiKey:  apiKey,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GatewayTransport) Send(recipient, message string) error {
	body, err := json.Marshal(map[string]string{
		"channel":   g.channel,
		"recipient": recipient,
		"message":   message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}
