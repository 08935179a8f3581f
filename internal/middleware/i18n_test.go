package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveLocale(t *testing.T, req *http.Request, lookup CountryLookup) (locale, country string) {
	t.Helper()
	handler := I18N("en", lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return locale, country
}

func TestLocaleFromExplicitHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Locale", "ru")

	locale, _ := serveLocale(t, req, nil)
	if locale != "ru" {
		t.Fatalf("locale = %q", locale)
	}
}

func TestLocaleNegotiation(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"th-TH,th;q=0.9,en;q=0.5", "th"},
		{"de-DE,de;q=0.9", "de"},
		{"es-MX", "es"},
		{"ru", "ru"},
		{"fr-FR,fr;q=0.9", "en"}, // unsupported, falls back
		{"", "en"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("accept=%q", tt.accept), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			locale, _ := serveLocale(t, req, nil)
			if locale != tt.want {
				t.Fatalf("locale = %q, want %q", locale, tt.want)
			}
		})
	}
}

func TestLocaleFromCountry(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-IPCountry", "th")

	locale, country := serveLocale(t, req, nil)
	if locale != "th" || country != "TH" {
		t.Fatalf("locale = %q, country = %q", locale, country)
	}
}

func TestCountryFromGeoIPLookup(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:4411"

	lookup := func(ip string) (string, error) {
		if ip != "198.51.100.7" {
			t.Fatalf("lookup ip = %q", ip)
		}
		return "de", nil
	}
	locale, country := serveLocale(t, req, lookup)
	if country != "DE" || locale != "de" {
		t.Fatalf("locale = %q, country = %q", locale, country)
	}
}

func TestRegionSubtagBeatsLookup(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "es-AR")

	lookup := func(ip string) (string, error) { return "TH", nil }
	locale, country := serveLocale(t, req, lookup)
	if country != "AR" {
		t.Fatalf("country = %q", country)
	}
	if locale != "es" {
		t.Fatalf("locale = %q", locale)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if ip := ClientIP(req); ip != "203.0.113.9" {
		t.Fatalf("ip = %q", ip)
	}

	req.Header.Del("X-Forwarded-For")
	if ip := ClientIP(req); ip != "10.0.0.1" {
		t.Fatalf("ip = %q", ip)
	}
}
