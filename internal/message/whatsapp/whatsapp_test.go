package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/patchlibrary/feedesk/internal/common"
)

func TestDeeplink(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		text  string
		want  string
	}{
		{
			"plain text",
			"919876543210",
			"Hello",
			"whatsapp://send?phone=919876543210&text=Hello",
		},
		{
			"spaces become percent twenty",
			"919876543210",
			"Fee due soon",
			"whatsapp://send?phone=919876543210&text=Fee%20due%20soon",
		},
		{
			"reserved characters escaped",
			"919876543210",
			"Pay ₹500 & reply",
			"whatsapp://send?phone=919876543210&text=Pay%20%E2%82%B9500%20%26%20reply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Deeplink(tt.phone, tt.text); got != tt.want {
				t.Errorf("Deeplink = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeeplinkNeverEmitsPlus(t *testing.T) {
	got := Deeplink("919876543210", "a b+c d")
	if strings.Contains(got, "+") {
		t.Errorf("Deeplink %q contains a raw plus", got)
	}
}

func TestDeeplinkSenderPicksPlatformOpener(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
		wantArg0 string
	}{
		{"linux", "xdg-open", "whatsapp://"},
		{"darwin", "open", "whatsapp://"},
		{"windows", "cmd", "/C"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			var gotName string
			var gotArgs []string
			s := NewDeeplinkSender(nil)
			s.goos = tt.goos
			s.run = func(_ context.Context, name string, args ...string) error {
				gotName = name
				gotArgs = args
				return nil
			}

			if err := s.Send(context.Background(), "919876543210", "Hi"); err != nil {
				t.Fatalf("Send returned error: %v", err)
			}
			if gotName != tt.wantName {
				t.Errorf("opener = %q, want %q", gotName, tt.wantName)
			}
			if len(gotArgs) == 0 || !strings.HasPrefix(gotArgs[0], tt.wantArg0) {
				t.Errorf("args = %v, want first arg starting %q", gotArgs, tt.wantArg0)
			}
			if !strings.Contains(strings.Join(gotArgs, " "), "phone=919876543210") {
				t.Errorf("args %v missing deeplink phone", gotArgs)
			}
		})
	}
}

func TestDeeplinkSenderWrapsOpenerFailure(t *testing.T) {
	s := NewDeeplinkSender(nil)
	s.run = func(context.Context, string, ...string) error {
		return errors.New("no handler registered")
	}

	err := s.Send(context.Background(), "919876543210", "Hi")
	if err == nil {
		t.Fatal("Send expected error, got none")
	}
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("error = %T, want *DeliveryError", err)
	}
	if !errors.Is(err, common.ErrDelivery) {
		t.Error("error does not match common.ErrDelivery")
	}
}

func TestClientSend(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.TEST42"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		AccessToken:   "token-abc",
		PhoneNumberID: "5550001111",
		BaseURL:       srv.URL,
	}, nil)

	if err := c.Send(context.Background(), "919876543210", "Fee due"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if gotPath != "/5550001111/messages" {
		t.Errorf("path = %q, want phone number id route", gotPath)
	}
	if gotAuth != "Bearer token-abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["to"] != "919876543210" || gotBody["messaging_product"] != "whatsapp" {
		t.Errorf("body = %v, want cloud api text payload", gotBody)
	}
	text, _ := gotBody["text"].(map[string]any)
	if text["body"] != "Fee due" {
		t.Errorf("text.body = %v, want message text", text["body"])
	}
}

func TestClientSendSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{AccessToken: "bad", PhoneNumberID: "1", BaseURL: srv.URL}, nil)
	err := c.Send(context.Background(), "919876543210", "Hi")
	if err == nil {
		t.Fatal("Send expected error, got none")
	}
	if !errors.Is(err, common.ErrDelivery) {
		t.Errorf("error = %v, want delivery error", err)
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("error %q missing status detail", err)
	}
}
