package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/wholesale-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		project, kind, name, want string
	}{
		{"shop", "topics", "orders", "projects/shop/topics/orders"},
		{"shop", "topics", " orders ", "projects/shop/topics/orders"},
		{"shop", "topics", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"shop", "subscriptions", "orders-sub", "projects/shop/subscriptions/orders-sub"},
		{"", "topics", "orders", ""},
		{"shop", "topics", "", ""},
	}
	for _, tc := range cases {
		if got := resourceName(tc.project, tc.kind, tc.name); got != tc.want {
			t.Fatalf("resourceName(%q,%q,%q) = %q, want %q", tc.project, tc.kind, tc.name, got, tc.want)
		}
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil); err == nil {
		t.Fatal("expected missing project id error")
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error on nil client")
	}
}
