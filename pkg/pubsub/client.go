// Package pubsub owns the Pub/Sub v2 connection: the engagements topic the
// outbox relay publishes to and the notification subscription the worker
// drains.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

var errClosed = errors.New("pubsub client not initialized")

type Client struct {
	ps           *pubsub.Client
	project      string
	topic        string
	subscription string
}

// NewClient connects and fails unless both configured resources exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	topic, err := qualify(project, "topics", cfg.EngagementsTopic)
	if err != nil {
		return nil, err
	}
	subscription, err := qualify(project, "subscriptions", cfg.NotificationSubscription)
	if err != nil {
		return nil, err
	}

	ps, err := pubsub.NewClient(ctx, project, credentials(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{ps: ps, project: project, topic: topic, subscription: subscription}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"topic": topic, "subscription": subscription}), "pubsub client initialized")
	return c, nil
}

// credentials picks inline JSON over a key file. With neither, the library
// falls back to application default credentials or PUBSUB_EMULATOR_HOST.
func credentials(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping confirms the topic and subscription still exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errClosed
	}
	_, topicErr := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	_, subErr := c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.subscription})
	return multierr.Combine(lookupError(c.topic, topicErr), lookupError(c.subscription, subErr))
}

func lookupError(name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", name)
	default:
		return fmt.Errorf("looking up %s: %w", name, err)
	}
}

// Publisher returns an ordered publisher for name, a topic id or full
// resource name. Messages sharing an ordering key arrive in publish order.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.ps == nil {
		return nil
	}
	full, err := qualify(c.project, "topics", name)
	if err != nil {
		return nil
	}
	p := c.ps.Publisher(full)
	p.EnableMessageOrdering = true
	return p
}

// NotificationSubscription is the subscription the notification worker drains.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Subscriber(c.subscription)
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}

// qualify expands an id into projects/<project>/<kind>/<id>. A name already
// qualified for kind passes through, even under another project.
func qualify(project, kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("pubsub %s name is required", strings.TrimSuffix(kind, "s"))
	}
	if strings.HasPrefix(name, "projects/") {
		parts := strings.Split(name, "/")
		if len(parts) != 4 || parts[1] == "" || parts[2] != kind || parts[3] == "" {
			return "", fmt.Errorf("%q is not a %s resource name", name, kind)
		}
		return name, nil
	}
	if strings.Contains(name, "/") {
		return "", fmt.Errorf("%q is not a valid %s id", name, kind)
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, kind, name), nil
}
