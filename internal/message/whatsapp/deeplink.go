// Package whatsapp delivers messages over WhatsApp, either by opening the
// installed application through its deeplink scheme or by calling the
// Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/patchlibrary/feedesk/internal/common"
)

// DeliveryError marks a failed hand-off to the messaging surface.
type DeliveryError struct {
	Surface string
	Cause   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("whatsapp %s: %v", e.Surface, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

func (e *DeliveryError) Is(target error) bool {
	return target == common.ErrDelivery
}

// Deeplink builds the whatsapp://send URI for a phone number and message
// text. The phone number is embedded as-is; the text is percent-encoded.
func Deeplink(phone, text string) string {
	return "whatsapp://send?phone=" + phone + "&text=" + encodeText(text)
}

// encodeText percent-encodes like a browser would, with %20 for spaces.
func encodeText(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// DeeplinkSender opens whatsapp:// links through the desktop's URL opener,
// handing the message to the locally installed WhatsApp application.
type DeeplinkSender struct {
	goos   string
	run    func(ctx context.Context, name string, args ...string) error
	logger *slog.Logger
}

func NewDeeplinkSender(logger *slog.Logger) *DeeplinkSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeeplinkSender{
		goos:   runtime.GOOS,
		run:    runCommand,
		logger: logger,
	}
}

// Send opens the deeplink for the given phone and text.
func (s *DeeplinkSender) Send(ctx context.Context, phone, text string) error {
	link := Deeplink(phone, text)
	name, args := openerFor(s.goos, link)

	if err := s.run(ctx, name, args...); err != nil {
		s.logger.Error("whatsapp.deeplink.failed", "phone", phone, "error", err)
		return &DeliveryError{Surface: "deeplink", Cause: err}
	}
	s.logger.Info("whatsapp.deeplink.opened", "phone", phone, "text_len", len(text))
	return nil
}

// openerFor picks the platform URL opener.
func openerFor(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "cmd", []string{"/C", "start", "", target}
	default:
		return "xdg-open", []string{target}
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
