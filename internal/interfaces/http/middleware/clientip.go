package middleware

import (
	"net"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/shared/constants"
)

// KeyFunc derives the rate-limit key for a request.
type KeyFunc func(c *gin.Context) string

// ClientIPKey keys requests by client address. Proxy headers are honoured
// only with trustProxy; otherwise any client could pick its own key.
func ClientIPKey(trustProxy bool) KeyFunc {
	return func(c *gin.Context) string {
		if trustProxy {
			for _, candidate := range strings.Split(c.GetHeader(constants.HeaderXForwardedFor), ",") {
				if ip, ok := parseIP(candidate); ok {
					return ip
				}
			}
			if ip, ok := parseIP(c.GetHeader(constants.HeaderXRealIP)); ok {
				return ip
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(c.Request.RemoteAddr))
		if err != nil {
			host = c.Request.RemoteAddr
		}
		if ip, ok := parseIP(host); ok {
			return ip
		}
		return constants.UnknownClientKey
	}
}

func parseIP(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
