package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/wholesale-backend/pkg/config"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoOrdersTopic     = errors.New("pubsub orders topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client is the outbox publisher's handle on Pub/Sub. Publishers are
// created once per topic and stopped on Close so their buffered messages
// are flushed.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient dials Pub/Sub and fails unless the orders topic, and the
// orders subscription when one is configured, already exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.OrdersTopic) == "" {
		return nil, errNoOrdersTopic
	}

	raw, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     raw,
		projectID:  projectID,
		cfg:        cfg,
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"project_id": projectID, "topic": cfg.OrdersTopic}), "pubsub client initialized")
	}
	return c, nil
}

// Ping re-checks that the configured topic and subscription exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	topic := c.topicResourceName(c.cfg.OrdersTopic)
	if _, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic}); err != nil {
		return lookupError("topic", c.cfg.OrdersTopic, err)
	}
	if sub := strings.TrimSpace(c.cfg.OrdersSubscription); sub != "" {
		req := &pubsubpb.GetSubscriptionRequest{Subscription: c.subscriptionResourceName(sub)}
		if _, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, req); err != nil {
			return lookupError("subscription", sub, err)
		}
	}
	return nil
}

func lookupError(kind, name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// Publisher returns the shared publisher for a topic id or full resource
// name, or nil when the name cannot be resolved.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.topicResourceName(name)
	if full == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[full]; ok {
		return p
	}
	p := c.client.Publisher(full)
	c.publishers[full] = p
	return p
}

// Close flushes every publisher and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

func (c *Client) subscriptionResourceName(name string) string {
	return resourceName(c.projectID, "subscriptions", name)
}

func (c *Client) topicResourceName(name string) string {
	return resourceName(c.projectID, "topics", name)
}

// resourceName expands a short id to projects/<project>/<kind>/<id>. Full
// resource names pass through unchanged.
func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}
