package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// Headers that carry the cache directive. The CDN-specific ones take
// precedence at the edge over plain Cache-Control.
var cacheHeaders = []string{"Cache-Control", "CDN-Cache-Control", "Cloudflare-CDN-Cache-Control"}

const noStoreDirective = "no-store, no-cache, must-revalidate, max-age=0"

type CachePolicy struct {
	Browser              time.Duration
	Edge                 time.Duration
	StaleWhileRevalidate time.Duration
}

var (
	// Browsers always revalidate; the edge keeps boundaries for 20 days.
	BoundaryCachePolicy = CachePolicy{Edge: 20 * 24 * time.Hour, StaleWhileRevalidate: 24 * time.Hour}

	PlacesCachePolicy = CachePolicy{Edge: 30 * 24 * time.Hour, StaleWhileRevalidate: 24 * time.Hour}

	GeneratedTextCachePolicy = CachePolicy{Edge: 24 * time.Hour, StaleWhileRevalidate: 12 * time.Hour}
)

func (p CachePolicy) Directive() string {
	return fmt.Sprintf("public, max-age=%d, s-maxage=%d, stale-while-revalidate=%d",
		int(p.Browser.Seconds()), int(p.Edge.Seconds()), int(p.StaleWhileRevalidate.Seconds()))
}

func setCacheHeaders(c *gin.Context, policy CachePolicy) {
	directive := policy.Directive()
	for _, header := range cacheHeaders {
		c.Header(header, directive)
	}
}

func setNoStoreHeaders(c *gin.Context) {
	for _, header := range cacheHeaders {
		c.Header(header, noStoreDirective)
	}
}
