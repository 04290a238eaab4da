package middleware

import (
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"
)

// IPWhitelist restricts a route group to the given client addresses.
// Entries may be single IPs ("10.0.0.5") or CIDR ranges
// ("10.0.0.0/24"); unparseable entries are ignored. An empty list
// allows everyone.
func IPWhitelist(entries []string) gin.HandlerFunc {
	exact := make(map[string]struct{}, len(entries))
	var ranges []netip.Prefix
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			ranges = append(ranges, p)
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			exact[a.String()] = struct{}{}
		}
	}

	permitted := func(ip string) bool {
		if len(exact) == 0 && len(ranges) == 0 {
			return true
		}
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return false
		}
		if _, ok := exact[addr.String()]; ok {
			return true
		}
		for _, p := range ranges {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		if !permitted(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}
