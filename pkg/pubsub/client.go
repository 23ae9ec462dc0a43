package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/dukahq/storefront-backend/pkg/logger"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Client wraps the Pub/Sub connection used for out-of-band payment
// reconciliation. Payment results that resolve after a checkout session was
// cancelled are published here instead of mutating the torn-down gate.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient creates a Pub/Sub v2 client for the configured project.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "pubsub client initialized")
	}

	return &Client{
		client:    psClient,
		projectID: gcp.ProjectID,
		cfg:       cfg,
	}, nil
}

// ReconciliationEvent describes a payment result that could not be applied to
// a live checkout session.
type ReconciliationEvent struct {
	AttemptID   string `json:"attempt_id"`
	SessionID   string `json:"session_id"`
	Method      string `json:"method"`
	Outcome     string `json:"outcome"`
	ProviderRef string `json:"provider_ref,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// PublishReconciliation emits one reconciliation event and waits for the server ack.
func (c *Client) PublishReconciliation(ctx context.Context, event ReconciliationEvent) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding reconciliation event: %w", err)
	}

	publisher := c.client.Publisher(c.topicResourceName(c.cfg.PaymentReconciliationTopic))
	result := publisher.Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing reconciliation event: %w", err)
	}
	return nil
}

// Close releases the Pub/Sub client resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) topicResourceName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	return fmt.Sprintf("projects/%s/topics/%s", c.projectID, n)
}
