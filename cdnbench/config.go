package cdnbench

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Providers     []providerConfig     `yaml:"providers"`
	PingEndpoints []pingEndpointConfig `yaml:"ping_endpoints"`
}

type providerConfig struct {
	Key     string         `yaml:"key"`
	Name    string         `yaml:"name"`
	Ping    string         `yaml:"ping"`
	Targets []targetConfig `yaml:"targets"`
}

type targetConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	SizeMB int    `yaml:"size_mb"`
}

type pingEndpointConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoadCatalogFile reads a YAML catalog replacing the built-in one. The
// returned endpoints are nil when the file has no ping_endpoints list, so the
// caller keeps the defaults. Unknown fields are rejected.
func LoadCatalogFile(path string) (*Catalog, []PingEndpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading catalog file")
	}

	var file catalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, nil, errors.Wrap(err, "parsing catalog file")
	}

	providers := make([]Provider, 0, len(file.Providers))
	for _, provider := range file.Providers {
		targets := make([]TestTarget, 0, len(provider.Targets))
		for _, target := range provider.Targets {
			targets = append(targets, TestTarget{
				DisplayName:   target.Name,
				URL:           target.URL,
				NominalSizeMB: target.SizeMB,
			})
		}
		providers = append(providers, Provider{
			Key:     provider.Key,
			Name:    provider.Name,
			PingURL: provider.Ping,
			Targets: targets,
		})
	}

	catalog, err := NewCatalog(providers)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "catalog file %s", path)
	}

	var endpoints []PingEndpoint
	for _, endpoint := range file.PingEndpoints {
		if endpoint.Name == "" || !isHTTPURL(endpoint.URL) {
			return nil, nil, errors.Errorf("catalog file %s: ping endpoint needs a name and an http(s) URL", path)
		}
		endpoints = append(endpoints, PingEndpoint{DisplayName: endpoint.Name, URL: endpoint.URL})
	}

	logger.Printf("using catalog %s (%d providers)\n", path, len(providers))

	return catalog, endpoints, nil
}
