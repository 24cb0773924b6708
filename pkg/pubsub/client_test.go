package pubsub

import (
	"context"
	"testing"

	"github.com/solarflow/solarshop-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "solar-prod"}

	if got := c.topicResourceName("solarshop-notification-events"); got != "projects/solar-prod/topics/solarshop-notification-events" {
		t.Fatalf("unexpected topic name %q", got)
	}
	if got := c.subscriptionResourceName(" worker "); got != "projects/solar-prod/subscriptions/worker" {
		t.Fatalf("unexpected subscription name %q", got)
	}
	full := "projects/other/subscriptions/x"
	if got := c.subscriptionResourceName(full); got != full {
		t.Fatalf("expected full name passthrough, got %q", got)
	}
	if got := c.topicResourceName(""); got != "" {
		t.Fatalf("expected empty name, got %q", got)
	}
	if got := (&Client{}).topicResourceName("t"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("t") != nil || c.Subscription("s") != nil {
		t.Fatal("expected nil handles from nil client")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	if err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	if len(clientOptions(config.GCPConfig{})) != 0 {
		t.Fatal("expected default credentials")
	}
	if len(clientOptions(config.GCPConfig{CredentialsJSON: "{}"})) != 1 {
		t.Fatal("expected json credentials option")
	}
	if len(clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"})) != 1 {
		t.Fatal("expected file credentials option")
	}
}
