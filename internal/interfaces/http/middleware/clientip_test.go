package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestClientIPKey(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr",
			remoteAddr: "203.0.113.7:4321",
			want:       "203.0.113.7",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:4321",
			want:       "2001:db8::1",
		},
		{
			name:       "proxy headers ignored when untrusted",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9"},
			want:       "10.0.0.1",
		},
		{
			name:       "first forwarded address",
			trustProxy: true,
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.2"},
			want:       "198.51.100.9",
		},
		{
			name:       "skips garbage in forwarded list",
			trustProxy: true,
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "unknown, 198.51.100.10"},
			want:       "198.51.100.10",
		},
		{
			name:       "real ip fallback",
			trustProxy: true,
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "198.51.100.11"},
			want:       "198.51.100.11",
		},
		{
			name:       "ipv4 mapped ipv6 is unmapped",
			trustProxy: true,
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "::ffff:198.51.100.12"},
			want:       "198.51.100.12",
		},
		{
			name:       "unparseable everything",
			trustProxy: true,
			remoteAddr: "pipe",
			headers:    map[string]string{"X-Forwarded-For": "nope"},
			want:       "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, ClientIPKey(tt.trustProxy)(c))
		})
	}
}
