package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"smartswap/native/loyalty"
)

// LoadCampaigns reads a TOML campaign file and returns the validated
// registry. An empty path yields the built-in registry.
func LoadCampaigns(path string) (*loyalty.Registry, error) {
	if strings.TrimSpace(path) == "" {
		return loyalty.DefaultRegistry(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("campaign file: %w", err)
	}
	file := CampaignFile{}
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("decode campaign file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("campaign file %s: unknown key %s", path, undecoded[0].String())
	}
	return BuildRegistry(file)
}

// ParseCampaigns decodes campaign definitions from TOML text.
func ParseCampaigns(data string) (*loyalty.Registry, error) {
	file := CampaignFile{}
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, fmt.Errorf("decode campaigns: %w", err)
	}
	return BuildRegistry(file)
}

// BuildRegistry assembles and validates the registry described by file.
func BuildRegistry(file CampaignFile) (*loyalty.Registry, error) {
	list := make([]*loyalty.Campaign, 0, len(file.Campaigns)+2)
	if file.IncludeDefaults {
		list = append(list, loyalty.DefaultCampaigns(file.SKRMint, file.OTDMint)...)
	}
	for _, c := range file.Campaigns {
		list = append(list, c.Campaign())
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("campaign file defines no campaigns")
	}
	registry, err := loyalty.NewRegistry(list...)
	if err != nil {
		return nil, err
	}
	if err := registry.RequirePerpetual(); err != nil {
		return nil, err
	}
	return registry, nil
}
