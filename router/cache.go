package router

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

// CachingRouter memoizes decisions of Next keyed by the normalized query.
// Decisions taken because the model failed are never stored, so a transient
// classifier failure is retried on the next request.
type CachingRouter struct {
	Next  Router
	cache *expirable.LRU[string, schema.Decision]
}

// NewCachingRouter keeps at most size decisions for ttl each. A non-positive
// ttl keeps them until evicted.
func NewCachingRouter(next Router, size int, ttl time.Duration) *CachingRouter {
	return &CachingRouter{Next: next, cache: expirable.NewLRU[string, schema.Decision](size, nil, ttl)}
}

func (r *CachingRouter) Route(ctx context.Context, query string) schema.Decision {
	key := cacheKey(query)
	if d, ok := r.cache.Get(key); ok {
		logger.Debugf("router: decision cache hit - %s", d.Label())
		return d
	}
	d := r.Next.Route(ctx, query)
	if cacheable(d) {
		r.cache.Add(key, d)
	}
	return d
}

// Len reports the number of cached decisions.
func (r *CachingRouter) Len() int { return r.cache.Len() }

func cacheable(d schema.Decision) bool {
	return !d.IsFallback() && d.Source != SourceRuleFallback
}

func cacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
