package http_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	trusted := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		config     *pkghttp.IPConfig
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "203.0.113.7:52100",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded header ignored without trusted proxy",
			remoteAddr: "203.0.113.7:52100",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded header honored from trusted proxy",
			remoteAddr: "10.1.2.3:80",
			headers:    map[string]string{"X-Forwarded-For": "garbage, 198.51.100.1"},
			config:     trusted,
			want:       "198.51.100.1",
		},
		{
			name:       "real ip header from trusted proxy",
			remoteAddr: "10.1.2.3:80",
			headers:    map[string]string{"X-Real-IP": "198.51.100.2"},
			config:     trusted,
			want:       "198.51.100.2",
		},
		{
			name:       "untrusted proxy range",
			remoteAddr: "192.168.1.1:80",
			headers:    map[string]string{"X-Real-IP": "198.51.100.2"},
			config:     trusted,
			want:       "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(r, tt.config))
		})
	}
}

func TestUserAgent_Truncates(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("User-Agent", strings.Repeat("x", 1000))

	assert.Len(t, pkghttp.UserAgent(r), 512)
}

func TestUserAgent_KeepsValidUTF8(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		want    string
		wantLen int
	}{
		{"truncates on a rune boundary", "x" + strings.Repeat("é", 600), "x" + strings.Repeat("é", 255), 511},
		{"replaces invalid bytes", "Mozilla\xff/5.0", "Mozilla�/5.0", len("Mozilla�/5.0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.Header.Set("User-Agent", tt.ua)

			got := pkghttp.UserAgent(r)
			assert.True(t, utf8.ValidString(got))
			assert.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.want, got)
		})
	}
}
