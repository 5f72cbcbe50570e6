package client

import (
	"fmt"
	"net/url"
	"strings"
)

// Store is the per-call upstream tenant: which subdomain to talk to and the
// token to present. It is passed explicitly through every operation.
type Store struct {
	Key       string `json:"key" yaml:"key"`
	Label     string `json:"label" yaml:"label"`
	Subdomain string `json:"subdomain" yaml:"subdomain"`
	Token     string `json:"token" yaml:"token"`

	// BaseURL overrides https://{subdomain}.{host}; used for self-hosted
	// tenants and test servers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// Validate checks that the store can authenticate.
func (s Store) Validate() error {
	if s.Token == "" {
		return fmt.Errorf("%w: token is required", ErrMissingCredentials)
	}
	if s.Subdomain == "" && s.BaseURL == "" {
		return fmt.Errorf("%w: subdomain or base_url is required", ErrMissingCredentials)
	}
	return nil
}

// Origin returns the scheme+host the store's API is served from.
func (s Store) Origin(host string) string {
	if s.BaseURL != "" {
		return strings.TrimSuffix(s.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.%s", s.Subdomain, host)
}

// cacheScope identifies the store inside cache keys without using the token.
func (s Store) cacheScope() string {
	if s.Subdomain != "" {
		return s.Subdomain
	}
	return s.BaseURL
}

// buildURL joins origin, API version, resource path and query (with token).
func buildURL(origin, version, path string, query url.Values, token string) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("token", token)

	return fmt.Sprintf("%s/api/%s/%s?%s", origin, version, strings.Trim(path, "/"), q.Encode())
}

// redactURL hides the token so URLs can be logged and returned in errors.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
