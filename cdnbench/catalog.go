package cdnbench

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

type Provider struct {
	Key     string
	Name    string
	PingURL string
	Targets []TestTarget
}

type Catalog struct {
	providers []Provider
}

var defaultProviders = []Provider{
	{
		Key:     "hetzner",
		Name:    "Hetzner",
		PingURL: "https://speed.hetzner.de/",
		Targets: []TestTarget{
			{DisplayName: "Hetzner 1MB", URL: "https://speed.hetzner.de/1MB.bin", NominalSizeMB: 1},
			{DisplayName: "Hetzner 10MB", URL: "https://speed.hetzner.de/10MB.bin", NominalSizeMB: 10},
			{DisplayName: "Hetzner 100MB", URL: "https://speed.hetzner.de/100MB.bin", NominalSizeMB: 100},
		},
	},
	{
		Key:     "ovh",
		Name:    "OVH",
		PingURL: "https://proof.ovh.net/",
		Targets: []TestTarget{
			{DisplayName: "OVH 1MB", URL: "https://proof.ovh.net/files/1Mb.dat", NominalSizeMB: 1},
			{DisplayName: "OVH 10MB", URL: "https://proof.ovh.net/files/10Mb.dat", NominalSizeMB: 10},
			{DisplayName: "OVH 100MB", URL: "https://proof.ovh.net/files/100Mb.dat", NominalSizeMB: 100},
		},
	},
	{
		Key:     "thinkbroadband",
		Name:    "ThinkBroadband",
		PingURL: "http://download.thinkbroadband.com/",
		Targets: []TestTarget{
			{DisplayName: "ThinkBroadband 5MB", URL: "http://download.thinkbroadband.com/5MB.zip", NominalSizeMB: 5},
			{DisplayName: "ThinkBroadband 10MB", URL: "http://download.thinkbroadband.com/10MB.zip", NominalSizeMB: 10},
			{DisplayName: "ThinkBroadband 100MB", URL: "http://download.thinkbroadband.com/100MB.zip", NominalSizeMB: 100},
		},
	},
	{
		Key:     "tele2",
		Name:    "Tele2",
		PingURL: "http://speedtest.tele2.net/",
		Targets: []TestTarget{
			{DisplayName: "Tele2 1MB", URL: "http://speedtest.tele2.net/1MB.zip", NominalSizeMB: 1},
			{DisplayName: "Tele2 10MB", URL: "http://speedtest.tele2.net/10MB.zip", NominalSizeMB: 10},
			{DisplayName: "Tele2 100MB", URL: "http://speedtest.tele2.net/100MB.zip", NominalSizeMB: 100},
		},
	},
	{
		Key:     "leaseweb",
		Name:    "Leaseweb",
		PingURL: "http://mirror.nl.leaseweb.net/speedtest/",
		Targets: []TestTarget{
			{DisplayName: "Leaseweb 10MB", URL: "http://mirror.nl.leaseweb.net/speedtest/10mb.bin", NominalSizeMB: 10},
			{DisplayName: "Leaseweb 100MB", URL: "http://mirror.nl.leaseweb.net/speedtest/100mb.bin", NominalSizeMB: 100},
		},
	},
	{
		Key:     "cachefly",
		Name:    "Cachefly",
		PingURL: "http://cachefly.cachefly.net/",
		Targets: []TestTarget{
			{DisplayName: "Cachefly 10MB", URL: "http://cachefly.cachefly.net/10mb.test", NominalSizeMB: 10},
			{DisplayName: "Cachefly 100MB", URL: "http://cachefly.cachefly.net/100mb.test", NominalSizeMB: 100},
		},
	},
	{
		Key:     "digitalocean",
		Name:    "DigitalOcean",
		PingURL: "http://speedtest-nyc1.digitalocean.com/",
		Targets: []TestTarget{
			{DisplayName: "DigitalOcean 10MB", URL: "http://speedtest-nyc1.digitalocean.com/10mb.test", NominalSizeMB: 10},
			{DisplayName: "DigitalOcean 100MB", URL: "http://speedtest-nyc1.digitalocean.com/100mb.test", NominalSizeMB: 100},
		},
	},
}

var defaultPingEndpoints = []PingEndpoint{
	{DisplayName: "Cloudflare", URL: "https://speed.cloudflare.com/__down?bytes=0"},
	{DisplayName: "Google", URL: "https://www.gstatic.com/generate_204"},
	{DisplayName: "Hetzner", URL: "https://speed.hetzner.de/"},
	{DisplayName: "OVH", URL: "https://proof.ovh.net/"},
	{DisplayName: "ThinkBroadband", URL: "http://download.thinkbroadband.com/"},
	{DisplayName: "Tele2", URL: "http://speedtest.tele2.net/"},
	{DisplayName: "Leaseweb", URL: "http://mirror.nl.leaseweb.net/"},
	{DisplayName: "Cachefly", URL: "http://cachefly.cachefly.net/"},
	{DisplayName: "DigitalOcean", URL: "http://speedtest-nyc1.digitalocean.com/"},
}

// NewCatalog validates providers and builds a catalog over them. Keys are
// lowercased; display names must be unique across the whole catalog (they are
// the join key for aggregation); targets inherit their provider's ping URL.
func NewCatalog(providers []Provider) (*Catalog, error) {
	if len(providers) == 0 {
		return nil, errors.New("catalog needs at least one provider")
	}

	seenNames := map[string]bool{}
	normalized := make([]Provider, 0, len(providers))

	for _, provider := range providers {
		if provider.Key == "" {
			return nil, errors.Errorf("provider %q: missing key", provider.Name)
		}
		if provider.Name == "" {
			return nil, errors.Errorf("provider %q: missing name", provider.Key)
		}
		if len(provider.Targets) == 0 {
			return nil, errors.Errorf("provider %q: no targets", provider.Key)
		}

		key := strings.ToLower(provider.Key)
		pingURL := provider.PingURL
		if pingURL == "" {
			pingURL = baseURL(provider.Targets[0].URL)
		}

		targets := make([]TestTarget, 0, len(provider.Targets))
		for _, target := range provider.Targets {
			if target.DisplayName == "" {
				return nil, errors.Errorf("provider %q: target without a display name", key)
			}
			if !isHTTPURL(target.URL) {
				return nil, errors.Errorf("target %q: invalid URL %q", target.DisplayName, target.URL)
			}
			if target.NominalSizeMB <= 0 {
				return nil, errors.Errorf("target %q: nominal size must be positive", target.DisplayName)
			}
			if seenNames[target.DisplayName] {
				return nil, errors.Errorf("duplicate target display name %q", target.DisplayName)
			}
			seenNames[target.DisplayName] = true

			if target.PingURL == "" {
				target.PingURL = pingURL
			}
			targets = append(targets, target)
		}

		normalized = append(normalized, Provider{
			Key:     key,
			Name:    provider.Name,
			PingURL: pingURL,
			Targets: targets,
		})
	}

	return &Catalog{providers: normalized}, nil
}

func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(defaultProviders)
	if err != nil {
		panic(err)
	}
	return catalog
}

func DefaultPingEndpoints() []PingEndpoint {
	return append([]PingEndpoint(nil), defaultPingEndpoints...)
}

// Select filters targets by provider key (case insensitive, unknown keys
// select nothing) and nominal size. Empty filters mean everything; catalog
// order is preserved.
func (c *Catalog) Select(providerKeys []string, sizesMB []int) []TestTarget {
	wantProvider := map[string]bool{}
	for _, key := range providerKeys {
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" {
			wantProvider[key] = true
		}
	}

	wantSize := map[int]bool{}
	for _, size := range sizesMB {
		wantSize[size] = true
	}

	selected := []TestTarget{}
	for _, provider := range c.providers {
		if len(wantProvider) > 0 && !wantProvider[provider.Key] {
			continue
		}
		for _, target := range provider.Targets {
			if len(wantSize) > 0 && !wantSize[target.NominalSizeMB] {
				continue
			}
			selected = append(selected, target)
		}
	}

	return selected
}

// ProviderOf finds the provider owning the target with the given display
// name.
func (c *Catalog) ProviderOf(displayName string) (Provider, bool) {
	for _, provider := range c.providers {
		for _, target := range provider.Targets {
			if target.DisplayName == displayName {
				return provider, true
			}
		}
	}
	return Provider{}, false
}

func (c *Catalog) Providers() []Provider {
	return append([]Provider(nil), c.providers...)
}

func isHTTPURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	return err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func baseURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Path = "/"
	parsed.RawQuery = ""
	return parsed.String()
}
