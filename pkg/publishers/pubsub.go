package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

// pubsubPublisher delivers posts to a Google Cloud Pub/Sub topic.
type pubsubPublisher struct {
	id     string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

func newPubSubPublisher(ctx context.Context, cfg PublisherConfig, deps Deps) (Publisher, error) {
	if cfg.PubSub == nil {
		return nil, configErr("publisher %q missing pubsub configuration", cfg.ID)
	}

	var opts []option.ClientOption
	if cfg.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PubSub.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubsubPublisher{
		id:     cfg.ID,
		client: client,
		topic:  client.Topic(cfg.PubSub.Topic),
		log:    ensureLogger(deps.Log),
	}, nil
}

func (g *pubsubPublisher) ID() string   { return g.id }
func (g *pubsubPublisher) Type() string { return TypePubSub }

// Publish waits for the server-assigned message id.
func (g *pubsubPublisher) Publish(ctx context.Context, p domain.Payload) (domain.Receipt, error) {
	evt := NewEvent(p)
	body, err := json.Marshal(evt)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("marshal event: %w", err)
	}

	res := g.topic.Publish(ctx, &pubsub.Message{
		Data:       body,
		Attributes: evt.messageAttributes(),
	})
	id, err := res.Get(ctx)
	if err != nil {
		g.log.ErrorObj("pubsub publisher send failed", "publisher_pubsub_error", map[string]any{
			"publisher_id": g.id,
			"natural_key":  evt.NaturalKey,
			"error":        err.Error(),
		})
		return domain.Receipt{}, fmt.Errorf("publish to pubsub: %w", err)
	}
	return domain.Receipt{ID: id}, nil
}

// Close flushes pending messages and releases the client.
func (g *pubsubPublisher) Close() error {
	g.topic.Stop()
	return g.client.Close()
}
