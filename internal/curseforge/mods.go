package curseforge

import (
	"context"
	"fmt"
	"net/url"
)

// SearchOptions are the optional filters of the mod search endpoint.
type SearchOptions struct {
	Class             Identifier
	Category          Identifier
	GameVersion       string
	SearchFilter      string
	SortField         SortField
	SortOrder         SortOrder
	ModLoaderType     ModLoaderType
	GameVersionTypeID int
	AuthorID          int
	Slug              string
	PageOptions
}

func (o SearchOptions) values() url.Values {
	q := url.Values{}
	if o.Class != nil {
		q.Set("classId", fmt.Sprint(o.Class.Identity()))
	}
	if o.Category != nil {
		q.Set("categoryId", fmt.Sprint(o.Category.Identity()))
	}
	if o.GameVersion != "" {
		q.Set("gameVersion", o.GameVersion)
	}
	if o.SearchFilter != "" {
		q.Set("searchFilter", o.SearchFilter)
	}
	if o.SortField != 0 {
		q.Set("sortField", fmt.Sprint(int(o.SortField)))
	}
	if o.SortOrder != "" {
		q.Set("sortOrder", string(o.SortOrder))
	}
	if o.ModLoaderType != LoaderAny {
		q.Set("modLoaderType", fmt.Sprint(int(o.ModLoaderType)))
	}
	if o.GameVersionTypeID != 0 {
		q.Set("gameVersionTypeId", fmt.Sprint(o.GameVersionTypeID))
	}
	if o.AuthorID != 0 {
		q.Set("authorId", fmt.Sprint(o.AuthorID))
	}
	if o.Slug != "" {
		q.Set("slug", o.Slug)
	}
	return q
}

func (c *Client) SearchMods(ctx context.Context, game Identifier, opts SearchOptions) ([]*Mod, Pagination, error) {
	q := opts.values()
	q.Set("gameId", fmt.Sprint(game.Identity()))
	c.paging(q, opts.PageOptions)
	var mods []*Mod
	pg, err := c.get(ctx, "/v1/mods/search", q, &mods)
	if err != nil {
		return nil, Pagination{}, err
	}
	c.bindMods(mods)
	return mods, pageOf(pg), nil
}

// GetModBySlug finds the mod with slug in game, optionally restricted to class.
func (c *Client) GetModBySlug(ctx context.Context, game Identifier, class Identifier, slug string) (*Mod, error) {
	mods, _, err := c.SearchMods(ctx, game, SearchOptions{Class: class, Slug: slug})
	if err != nil {
		return nil, err
	}
	for _, m := range mods {
		if m.Slug == slug {
			return m, nil
		}
	}
	return nil, fmt.Errorf("mod %q: %w", slug, ErrNotFound)
}

func (c *Client) GetMod(ctx context.Context, mod Identifier) (*Mod, error) {
	var m Mod
	if _, err := c.get(ctx, fmt.Sprintf("/v1/mods/%d", mod.Identity()), nil, &m); err != nil {
		return nil, err
	}
	c.bindMods([]*Mod{&m})
	return &m, nil
}

// GetMods fetches several mods in one request.
func (c *Client) GetMods(ctx context.Context, ids ...int) ([]*Mod, error) {
	if len(ids) == 0 {
		return []*Mod{}, nil
	}
	body := struct {
		ModIDs []int `json:"modIds"`
	}{ids}
	var mods []*Mod
	if _, err := c.post(ctx, "/v1/mods", body, &mods); err != nil {
		return nil, err
	}
	c.bindMods(mods)
	return mods, nil
}

func (c *Client) GetFeaturedMods(ctx context.Context, game Identifier, versionType Identifier, excluded ...int) (*FeaturedMods, error) {
	body := struct {
		GameID            int   `json:"gameId"`
		ExcludedModIDs    []int `json:"excludedModIds"`
		GameVersionTypeID *int  `json:"gameVersionTypeId,omitempty"`
	}{GameID: game.Identity(), ExcludedModIDs: excluded}
	if body.ExcludedModIDs == nil {
		body.ExcludedModIDs = []int{}
	}
	if versionType != nil {
		id := versionType.Identity()
		body.GameVersionTypeID = &id
	}
	var out FeaturedMods
	if _, err := c.post(ctx, "/v1/mods/featured", body, &out); err != nil {
		return nil, err
	}
	c.bindMods(out.Featured)
	c.bindMods(out.Popular)
	c.bindMods(out.RecentlyUpdated)
	return &out, nil
}

// GetModDescription returns the mod description as HTML.
func (c *Client) GetModDescription(ctx context.Context, mod Identifier) (string, error) {
	var s string
	if _, err := c.get(ctx, fmt.Sprintf("/v1/mods/%d/description", mod.Identity()), nil, &s); err != nil {
		return "", err
	}
	return s, nil
}

func (m *Mod) Files(ctx context.Context, q FileQuery) ([]*File, Pagination, error) {
	if err := m.c.bound(); err != nil {
		return nil, Pagination{}, err
	}
	return m.c.GetFiles(ctx, m, q)
}

func (m *Mod) File(ctx context.Context, fileID int) (*File, error) {
	if err := m.c.bound(); err != nil {
		return nil, err
	}
	return m.c.GetFile(ctx, m, fileID)
}

func (m *Mod) Description(ctx context.Context) (string, error) {
	if err := m.c.bound(); err != nil {
		return "", err
	}
	return m.c.GetModDescription(ctx, m)
}

// Game fetches the game this mod belongs to.
func (m *Mod) Game(ctx context.Context) (*Game, error) {
	if err := m.c.bound(); err != nil {
		return nil, err
	}
	return m.c.GetGame(ctx, ID(m.GameID))
}
