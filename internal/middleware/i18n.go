package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// SupportedLocales lists the locales responses are translated into; the first
// entry is the default.
var SupportedLocales = []language.Tag{language.English, language.Indonesian}

var localeMatcher = language.NewMatcher(SupportedLocales)

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// I18N stores the negotiated locale and the client's country in the request context.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			locale := detectLocale(r, defaultLocale, country)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, strings.ToUpper(country))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string, country string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, err := language.Parse(v); err == nil {
			if locale, ok := matchLocale(tag); ok {
				return locale
			}
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(tags) > 0 {
		if locale, ok := matchLocale(tags...); ok {
			return locale
		}
	}
	if strings.EqualFold(country, "ID") {
		return "id"
	}
	if fallback != "" {
		return fallback
	}
	return "en"
}

func matchLocale(tags ...language.Tag) (string, bool) {
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	base, _ := SupportedLocales[idx].Base()
	return base.String(), true
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}

// CountryFromContext returns the ISO country code stored in the request context.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}

// ResolveCountry resolves a best-effort ISO country code for the given request.
// Edge headers win over the language region, which wins over an IP lookup.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	for _, key := range []string{"CF-IPCountry", "X-Country-Code", "X-Appengine-Country"} {
		if val := strings.TrimSpace(r.Header.Get(key)); val != "" && !strings.EqualFold(val, "XX") {
			return strings.ToUpper(val)
		}
	}
	if region := localeRegion(r.Header.Get("X-Locale")); region != "" {
		return region
	}
	if region := localeRegion(r.Header.Get("Accept-Language")); region != "" {
		return region
	}
	if lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil && country != "" {
				return strings.ToUpper(country)
			}
		}
	}
	return ""
}

// localeRegion returns the explicit region of the first language tag, if any.
func localeRegion(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	region, conf := tags[0].Region()
	if conf != language.Exact {
		return ""
	}
	return region.String()
}
