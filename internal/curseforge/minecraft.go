package curseforge

import (
	"context"
	"net/url"
)

func (c *Client) GetMinecraftVersions(ctx context.Context) ([]MinecraftVersion, error) {
	var out []MinecraftVersion
	if _, err := c.get(ctx, "/v1/minecraft/version", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetModLoaders lists mod loaders, restricted to one game version when
// version is not empty.
func (c *Client) GetModLoaders(ctx context.Context, version string) ([]ModLoader, error) {
	q := url.Values{}
	if version != "" {
		q.Set("version", version)
	}
	var out []ModLoader
	if _, err := c.get(ctx, "/v1/minecraft/modloader", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
