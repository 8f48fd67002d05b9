package docker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khulnasoft/ml-workspace/internal/command"
)

// Publishes images with `docker tag` and `docker push`.
type Publisher struct {
	runner command.Runner
}

// Creates a [Publisher] that shells out through runner.
func NewPublisher(runner command.Runner) *Publisher {
	return &Publisher{runner: runner}
}

// Tags the local image under the remote reference and pushes it.
func (p *Publisher) Publish(ctx context.Context, local, remote string) error {
	if err := p.runner.Run(ctx, "docker", "tag", local, remote); err != nil {
		return fmt.Errorf("%w: tag %s as %s: %w", ErrPublish, local, remote, err)
	}

	slog.Info("pushing image", "image", remote)

	if err := p.runner.Run(ctx, "docker", "push", remote); err != nil {
		return fmt.Errorf("%w: push %s: %w", ErrPublish, remote, err)
	}
	return nil
}
