// Package device extracts client device, IP, and location details from
// inbound HTTP requests. The extracted values are stored on session records
// at creation time and never mutated afterwards.
package device

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// Info describes the client device behind a request.
type Info struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
	Type      string `json:"type"` // desktop, mobile, tablet, bot
}

// Location is a geographic position resolved from the client IP.
// Sessions created without a GeoIP database carry a nil Location.
type Location struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Label renders a short human-readable device description for session
// listings, e.g. "Chrome 120.0 on Windows 10 (desktop)".
func (i Info) Label() string {
	browser := i.Browser
	if browser == "" {
		browser = "unknown"
	}
	os := i.OS
	if os == "" {
		os = "unknown"
	}
	return browser + " on " + os + " (" + i.Type + ")"
}

// Extract parses the request's User-Agent and resolves the client IP.
func Extract(r *http.Request) Info {
	ua := r.UserAgent()
	parsed := useragent.New(ua)

	browser, browserVersion := parsed.Browser()
	if browserVersion != "" {
		browser = browser + " " + browserVersion
	}

	osInfo := parsed.OSInfo()
	os := osInfo.Name
	if osInfo.Version != "" {
		os = os + " " + osInfo.Version
	}

	deviceType := "desktop"
	switch {
	case parsed.Bot():
		deviceType = "bot"
	case parsed.Mobile():
		deviceType = "mobile"
	case isTablet(ua):
		deviceType = "tablet"
	}

	return Info{
		IP:        ClientIP(r),
		UserAgent: ua,
		Browser:   browser,
		OS:        os,
		Type:      deviceType,
	}
}

// ClientIP resolves the originating client IP, preferring common proxy
// headers over RemoteAddr. The first valid entry wins.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Comma-separated chain; the first hop is the client.
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}

	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP"} {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			if net.ParseIP(v) != nil {
				return v
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isTablet(ua string) bool {
	ua = strings.ToLower(ua)
	for _, keyword := range []string{"ipad", "tablet", "playbook", "silk"} {
		if strings.Contains(ua, keyword) {
			return true
		}
	}
	return false
}
