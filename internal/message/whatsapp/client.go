package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client sends text messages through the WhatsApp Cloud API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Send posts a text message to the Cloud API.
func (c *Client) Send(ctx context.Context, phone, text string) error {
	start := time.Now()

	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                phone,
		"type":              "text",
		"text":              map[string]any{"preview_url": false, "body": text},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + c.cfg.PhoneNumberID + "/messages"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("whatsapp.send.failed",
			"phone", phone,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return &DeliveryError{Surface: "cloud-api", Cause: err}
	}

	var resp struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &DeliveryError{Surface: "cloud-api", Cause: fmt.Errorf("decode response: %w", err)}
	}
	if len(resp.Messages) == 0 {
		return &DeliveryError{Surface: "cloud-api", Cause: fmt.Errorf("no message id in response")}
	}

	c.logger.Info("whatsapp.send.ok",
		"phone", phone,
		"message_id", resp.Messages[0].ID,
		"elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("whatsapp response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("whatsapp status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
