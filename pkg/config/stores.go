package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/Sternrassler/order-export/pkg/client"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding of a stores document.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// Stores maps store keys to credentials.
type Stores map[string]client.Store

// StoreInfo is the public view of a configured store (no credentials).
type StoreInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ConfigurationError reports a missing or unknown store key.
type ConfigurationError struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: store %q: %s", e.Key, e.Reason)
}

// Lookup returns the credentials for key.
func (s Stores) Lookup(key string) (client.Store, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return client.Store{}, &ConfigurationError{Reason: "store key is required"}
	}
	store, ok := s[key]
	if !ok {
		return client.Store{}, &ConfigurationError{Key: key, Reason: "unknown store"}
	}
	return store, nil
}

// Keys returns the store keys in sorted order.
func (s Stores) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List returns key and label of every store, sorted by key.
func (s Stores) List() []StoreInfo {
	out := make([]StoreInfo, 0, len(s))
	for _, k := range s.Keys() {
		out = append(out, StoreInfo{Key: k, Label: s[k].Label})
	}
	return out
}

// storesDocument accepts both a bare key->store mapping and one nested
// under "stores".
type storesDocument struct {
	Stores map[string]client.Store `yaml:"stores" json:"stores"`
}

// ParseStores decodes a stores document. Store keys come from the mapping
// keys; a missing label defaults to the key.
func ParseStores(data []byte, format Format) (Stores, error) {
	var doc storesDocument
	var bare map[string]client.Store

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing stores JSON: %w", err)
		}
		if doc.Stores == nil {
			if err := json.Unmarshal(data, &bare); err != nil {
				return nil, fmt.Errorf("parsing stores JSON: %w", err)
			}
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing stores YAML: %w", err)
		}
		if doc.Stores == nil {
			if err := yaml.Unmarshal(data, &bare); err != nil {
				return nil, fmt.Errorf("parsing stores YAML: %w", err)
			}
		}
	}

	raw := doc.Stores
	if raw == nil {
		raw = bare
	}

	stores := make(Stores, len(raw))
	for key, store := range raw {
		store.Key = key
		if store.Label == "" {
			store.Label = key
		}
		stores[key] = store
	}
	return stores, nil
}

// LoadStoresFile reads a stores document. Files ending in .json are parsed
// as JSON, anything else as YAML.
func LoadStoresFile(path string) (Stores, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	return ParseStores(data, format)
}

// accessSecret fetches a secret payload. Replaced in tests.
var accessSecret = func(ctx context.Context, name string) ([]byte, error) {
	sm, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	defer sm.Close()

	result, err := sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("accessing secret %s: %w", name, err)
	}
	return result.Payload.Data, nil
}

// secretName formats projects/{project}/secrets/{secret}/versions/latest.
func secretName(project, secret string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, secret)
}

// loadStoresFromSecretManager reads the stores JSON document from GCP
// Secret Manager.
func loadStoresFromSecretManager(ctx context.Context, project, secret string) (Stores, error) {
	data, err := accessSecret(ctx, secretName(project, secret))
	if err != nil {
		return nil, err
	}
	stores, err := ParseStores(data, FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("parsing secret JSON: %w", err)
	}
	return stores, nil
}
