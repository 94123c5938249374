package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const preflightMaxAge = "600"

// originPolicy matches exact origins and "https://*.example.ng" style
// subdomain wildcards. An empty list allows every origin.
type originPolicy struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{any: len(origins) == 0, exact: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch {
		case origin == "*":
			p.any = true
		case strings.Contains(origin, "://*."):
			scheme, host, _ := strings.Cut(origin, "://*")
			p.suffixes = append(p.suffixes, scheme+"://|"+host)
		case origin != "":
			p.exact[origin] = struct{}{}
		}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if p.any {
		return true
	}
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, s := range p.suffixes {
		scheme, host, _ := strings.Cut(s, "|")
		rest, ok := strings.CutPrefix(origin, scheme)
		if ok && strings.HasSuffix(rest, host) && len(rest) > len(host) {
			return true
		}
	}
	return false
}

func CORS(allowedOrigins []string) gin.HandlerFunc {
	policy := newOriginPolicy(allowedOrigins)
	allowHeaders := strings.Join([]string{"Authorization", "Content-Type", stepUpHeader, requestIDHeader}, ", ")
	exposeHeaders := strings.Join([]string{backupCodeUsedHeader, requestIDHeader, "Retry-After", "Content-Disposition"}, ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			h.Add("Vary", "Origin")
			if policy.allows(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
		}

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
			h.Set("Access-Control-Max-Age", preflightMaxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
