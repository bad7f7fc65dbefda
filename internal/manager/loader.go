package manager

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"litertlm/internal/litert"
	"litertlm/pkg/types"
)

// Loader builds an engine for one model file.
type Loader func(path string, backend litert.Backend) (*litert.Engine, error)

func defaultLoader(log zerolog.Logger) Loader {
	return func(path string, backend litert.Backend) (*litert.Engine, error) {
		return litert.Load(path, backend, litert.WithLogger(log))
	}
}

// loadEngine runs the loader, retrying only native construction failures
// with exponential backoff.
func (m *Manager) loadEngine(ctx context.Context, mdl types.Model) (*litert.Engine, error) {
	b := retry.WithMaxRetries(uint64(m.loadRetries), retry.NewExponential(m.retryBase))

	var (
		eng     *litert.Engine
		attempt int
	)
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		e, lerr := m.loader(mdl.Path, m.backend)
		if lerr != nil {
			if litert.IsKind(lerr, litert.KindNativeConstructionFailed) {
				m.log.Warn().Err(lerr).Str("model", mdl.ID).Int("attempt", attempt).Msg("engine load failed")
				return retry.RetryableError(lerr)
			}
			return lerr
		}
		eng = e
		return nil
	})
	if err != nil {
		if litert.IsKind(err, litert.KindUnavailable) {
			return nil, dependencyUnavailableError{msg: "litert-lm runtime unavailable", err: err}
		}
		return nil, err
	}
	return eng, nil
}
