package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// gcpPublisher adapts *pubsub.Publisher to the publisher interface so tests
// can substitute a fake.
type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func wrapPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p: p}
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpResult{r: g.p.Publish(ctx, msg)}
}

type gcpResult struct {
	r *gcppubsub.PublishResult
}

func (g gcpResult) Get(ctx context.Context) (string, error) {
	if g.r == nil {
		return "", errNilPublishResult
	}
	return g.r.Get(ctx)
}
