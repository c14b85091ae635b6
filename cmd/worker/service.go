package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger *logger.Logger
	// Dependencies must all answer a ping before any consumer starts.
	Dependencies map[string]pinger
	Consumers    map[string]consumer
}

// Service runs the subscription consumers that react to engagement events.
// One consumer failing stops the rest.
type Service struct {
	logg      *logger.Logger
	deps      map[string]pinger
	consumers map[string]consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("consumer %s is nil", name)
		}
	}
	for name, d := range params.Dependencies {
		if d == nil {
			return nil, fmt.Errorf("dependency %s is nil", name)
		}
	}
	return &Service{logg: params.Logger, deps: params.Dependencies, consumers: params.Consumers}, nil
}

func (s *Service) ready(ctx context.Context) error {
	for _, name := range slices.Sorted(maps.Keys(s.deps)) {
		if err := s.deps[name].Ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", name), "dependency not ready", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run blocks until ctx is canceled or a consumer exits with an error.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for name, c := range s.consumers {
		group.Go(func() error {
			cctx := s.logg.WithField(groupCtx, "consumer", name)
			err := c.Run(cctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			s.logg.Error(cctx, "consumer stopped unexpectedly", err)
			return fmt.Errorf("%s: %w", name, err)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
