package fetch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shanehull/annwatch/internal/errs"
	"github.com/shanehull/annwatch/internal/logger"
)

// Blocker remembers that a host rate limited us, across process runs.
type Blocker interface {
	Blocked(key string) (bool, error)
	Block(key string, ttl time.Duration) error
}

// Guarded skips fetching while the source is marked blocked and marks it after a
// rate-limit response. Blocker failures are logged and never stop a fetch.
type Guarded struct {
	next      Fetcher
	blocker   Blocker
	blockTime time.Duration
	log       *logger.Logger
}

func NewGuarded(next Fetcher, blocker Blocker, blockTime time.Duration) *Guarded {
	return &Guarded{
		next:      next,
		blocker:   blocker,
		blockTime: blockTime,
		log:       logger.For("fetch"),
	}
}

func (g *Guarded) Name() string { return g.next.Name() }

func (g *Guarded) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key := BlockKey(rawURL)

	blocked, err := g.blocker.Blocked(key)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("Rate limit cache unavailable")
	} else if blocked {
		return nil, errs.RateLimit("fetch", fmt.Sprintf("%s is blocked for up to %s after a rate limit", key, g.blockTime))
	}

	body, err := g.next.Fetch(ctx, rawURL)
	if err != nil && errs.KindOf(err) == errs.KindRateLimit && g.blockTime > 0 {
		if berr := g.blocker.Block(key, g.blockTime); berr != nil {
			g.log.Warn().Err(berr).Str("key", key).Msg("Failed to record rate limit")
		} else {
			g.log.Warn().Str("key", key).Dur("block", g.blockTime).Msg("Source rate limited, blocking further requests")
		}
	}
	return body, err
}

// BlockKey is the cache key under which a rate-limit block for rawURL's host is kept.
func BlockKey(rawURL string) string {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return "annwatch:ratelimit:" + host
}
