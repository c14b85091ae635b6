package main

import (
	"context"
	"errors"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// newCachedPublisherFactory keeps one publisher per topic for the life of the
// process so batching and ordering state survive across rows.
func newCachedPublisherFactory(client pubSubClient) publisherFactory {
	var mu sync.Mutex
	cache := make(map[string]publisher)
	return func(topic string) publisher {
		mu.Lock()
		defer mu.Unlock()
		if pub, ok := cache[topic]; ok {
			return pub
		}
		raw := client.Publisher(topic)
		if raw == nil {
			return nil
		}
		pub := newGCPPubPublisher(raw)
		cache[topic] = pub
		return pub
	}
}

func newGCPPubPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{
		PublishResult: p.Publisher.Publish(ctx, msg),
		resume: func() {
			if msg.OrderingKey != "" {
				p.Publisher.ResumePublish(msg.OrderingKey)
			}
		},
	}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
	resume func()
}

// Get waits for the server ack. A failed ordered publish pauses its key, so
// the key is resumed before the row is handed back for retry.
func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.PublishResult.Get(ctx)
	if err != nil && r.resume != nil {
		r.resume()
	}
	return id, err
}
