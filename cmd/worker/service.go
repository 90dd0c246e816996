package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

const readinessTimeout = 10 * time.Second

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger   *logger.Logger
	DB       pinger
	Redis    pinger
	PubSub   pinger
	Consumer consumer
}

// Service gates the notification consumer behind a readiness check of
// everything it writes to or reads from.
type Service struct {
	logg     *logger.Logger
	deps     map[string]pinger
	consumer consumer
}

func NewService(params ServiceParams) (*Service, error) {
	deps := map[string]pinger{"database": params.DB, "redis": params.Redis, "pubsub": params.PubSub}
	var missing error
	for name, dep := range deps {
		if dep == nil {
			missing = multierr.Append(missing, fmt.Errorf("%s client is required", name))
		}
	}
	if params.Consumer == nil {
		missing = multierr.Append(missing, errors.New("notification consumer is required"))
	}
	if params.Logger == nil {
		missing = multierr.Append(missing, errors.New("logger is required"))
	}
	if missing != nil {
		return nil, missing
	}
	return &Service{logg: params.Logger, deps: deps, consumer: params.Consumer}, nil
}

// ready pings every dependency in parallel and reports all that failed.
func (s *Service) ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for name, dep := range s.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dep.Ping(ctx); err != nil {
				s.logg.Error(s.logg.WithField(ctx, "dependency", name), "worker.dependency_down", err)
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s ping failed: %w", name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errs
}

// Run returns ctx.Err() after a clean shutdown.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.logg.Info(ctx, "worker.ready")

	if err := s.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}
