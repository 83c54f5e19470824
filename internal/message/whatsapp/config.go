package whatsapp

import (
	"os"
	"time"
)

// Config for the Cloud API client.
type Config struct {
	AccessToken   string        // if empty, falls back to env WHATSAPP_ACCESS_TOKEN
	PhoneNumberID string        // sending phone number id registered with the API
	BaseURL       string        // default https://graph.facebook.com/v19.0
	Timeout       time.Duration // http client timeout
}

func (c *Config) applyDefaults() {
	if c.AccessToken == "" {
		c.AccessToken = os.Getenv("WHATSAPP_ACCESS_TOKEN")
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://graph.facebook.com/v19.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}
