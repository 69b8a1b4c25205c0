// Package resolver rewrites import specifiers for the bundler. Strategies
// are tried in order and may decline, which defers to the bundler's own
// module resolution.
package resolver

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/domain"
)

// Request describes one import to resolve.
type Request struct {
	Specifier  string `json:"specifier"`
	Importer   string `json:"importer,omitempty"`
	ResolveDir string `json:"resolve_dir,omitempty"`
}

// Result is a resolved absolute path and the strategy that produced it.
type Result struct {
	Path     string `json:"path"`
	Strategy string `json:"strategy"`
}

// Strategy resolves a request or declines with handled=false. An error is
// a hard failure and must not be confused with declining.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, req Request) (Result, bool, error)
}

// Chain tries strategies in order. The first handled result wins and an
// error stops the chain.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a chain over strategies, skipping nil entries.
func NewChain(strategies ...Strategy) *Chain {
	c := &Chain{}
	for _, s := range strategies {
		if s != nil {
			c.strategies = append(c.strategies, s)
		}
	}
	return c
}

// Name implements Strategy so chains can nest.
func (c *Chain) Name() string { return "chain" }

// Strategies returns the strategy names in order.
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve runs the chain.
func (c *Chain) Resolve(ctx context.Context, req Request) (Result, bool, error) {
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, false, domain.NewAppErrorWithCause(domain.ErrTimeout, "Resolution cancelled", 408, err, nil)
		}

		res, handled, err := s.Resolve(ctx, req)
		if err != nil {
			log.Debug().Err(err).Str("specifier", req.Specifier).Str("strategy", s.Name()).Msg("Resolution failed")
			return Result{}, false, err
		}
		if !handled {
			continue
		}
		if res.Strategy == "" {
			res.Strategy = s.Name()
		}
		log.Debug().
			Str("specifier", req.Specifier).
			Str("path", res.Path).
			Str("strategy", res.Strategy).
			Msg("Resolved specifier")
		return res, true, nil
	}
	return Result{}, false, nil
}
