package curseforge

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

func (c *Client) GetGame(ctx context.Context, game Identifier) (*Game, error) {
	var g Game
	if _, err := c.get(ctx, fmt.Sprintf("/v1/games/%d", game.Identity()), nil, &g); err != nil {
		return nil, err
	}
	g.c = c
	return &g, nil
}

func (c *Client) GetGames(ctx context.Context, p PageOptions) ([]*Game, Pagination, error) {
	q := url.Values{}
	c.paging(q, p)
	var gs []*Game
	pg, err := c.get(ctx, "/v1/games", q, &gs)
	if err != nil {
		return nil, Pagination{}, err
	}
	c.bindGames(gs)
	return gs, pageOf(pg), nil
}

// GetGameBySlug pages through the game list until slug matches.
func (c *Client) GetGameBySlug(ctx context.Context, slug string) (*Game, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	p := PageOptions{}
	for {
		gs, pg, err := c.GetGames(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, g := range gs {
			if strings.EqualFold(g.Slug, slug) {
				return g, nil
			}
		}
		if !pg.HasNext() {
			return nil, fmt.Errorf("game %q: %w", slug, ErrNotFound)
		}
		p = pg.Next()
	}
}

// AllGames collects every page of the game list.
func (c *Client) AllGames(ctx context.Context) ([]*Game, error) {
	var all []*Game
	p := PageOptions{}
	for {
		gs, pg, err := c.GetGames(ctx, p)
		if err != nil {
			return nil, err
		}
		all = append(all, gs...)
		if !pg.HasNext() {
			return all, nil
		}
		p = pg.Next()
	}
}

func (c *Client) GetGameVersions(ctx context.Context, game Identifier) ([]GameVersionsByType, error) {
	var out []GameVersionsByType
	if _, err := c.get(ctx, fmt.Sprintf("/v1/games/%d/versions", game.Identity()), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetGameVersionTypes(ctx context.Context, game Identifier) ([]*GameVersionType, error) {
	var out []*GameVersionType
	if _, err := c.get(ctx, fmt.Sprintf("/v1/games/%d/version-types", game.Identity()), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCategories lists the categories of game. A nil class lists every
// category; otherwise only those under that top-level class.
func (c *Client) GetCategories(ctx context.Context, game Identifier, class Identifier) ([]*Category, error) {
	q := url.Values{}
	q.Set("gameId", fmt.Sprint(game.Identity()))
	if class != nil {
		q.Set("classId", fmt.Sprint(class.Identity()))
	}
	var cats []*Category
	if _, err := c.get(ctx, "/v1/categories", q, &cats); err != nil {
		return nil, err
	}
	c.bindCategories(cats)
	return cats, nil
}

// Categories lists this game's categories, optionally under class.
func (g *Game) Categories(ctx context.Context, class Identifier) ([]*Category, error) {
	if err := g.c.bound(); err != nil {
		return nil, err
	}
	return g.c.GetCategories(ctx, g, class)
}

func (g *Game) SearchMods(ctx context.Context, opts SearchOptions) ([]*Mod, Pagination, error) {
	if err := g.c.bound(); err != nil {
		return nil, Pagination{}, err
	}
	return g.c.SearchMods(ctx, g, opts)
}

func (g *Game) Featured(ctx context.Context, versionType Identifier, excluded ...int) (*FeaturedMods, error) {
	if err := g.c.bound(); err != nil {
		return nil, err
	}
	return g.c.GetFeaturedMods(ctx, g, versionType, excluded...)
}

func (g *Game) Versions(ctx context.Context) ([]GameVersionsByType, error) {
	if err := g.c.bound(); err != nil {
		return nil, err
	}
	return g.c.GetGameVersions(ctx, g)
}

// Mods searches this category's game restricted to the category.
func (cat *Category) Mods(ctx context.Context, opts SearchOptions) ([]*Mod, Pagination, error) {
	if err := cat.c.bound(); err != nil {
		return nil, Pagination{}, err
	}
	if cat.IsClass != nil && *cat.IsClass {
		opts.Class = cat
	} else {
		opts.Category = cat
	}
	return cat.c.SearchMods(ctx, ID(cat.GameID), opts)
}
