//go:build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"vigil/internal/config"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config, opts []AppBuilderOption) (*App, error) {
	wire.Build(
		provideAppBuilder,
		provideAppFromBuilder,
		wire.Bind(new(appBuilderDeps), new(*AppBuilder)),
	)
	return nil, nil
}
