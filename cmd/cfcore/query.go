package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jxwalker/cfcore/internal/curseforge"
	"github.com/jxwalker/cfcore/internal/deps"
)

func (co common) apiClient() (*env, *curseforge.Client, error) {
	e, err := co.load()
	if err != nil {
		return nil, nil, err
	}
	c, err := e.client(nil)
	if err != nil {
		return nil, nil, err
	}
	return e, c, nil
}

// resolveGame accepts a numeric id or a slug. An unknown slug fails with the
// closest known slugs as suggestions.
func resolveGame(ctx context.Context, c *curseforge.Client, s string) (*curseforge.Game, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("--game is required")
	}
	if id, err := strconv.Atoi(s); err == nil {
		return c.GetGame(ctx, curseforge.ID(id))
	}
	g, err := c.GetGameBySlug(ctx, s)
	if err == nil || !curseforge.IsNotFound(err) {
		return g, err
	}
	all, lerr := c.AllGames(ctx)
	if lerr != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(all))
	for _, g := range all {
		slugs = append(slugs, g.Slug)
	}
	if sug := suggest(s, slugs, 3); len(sug) > 0 {
		return nil, fmt.Errorf("%w (did you mean: %s?)", err, strings.Join(sug, ", "))
	}
	return nil, err
}

// suggest returns up to n candidates closest to s.
func suggest(s string, candidates []string, n int) []string {
	ranks := fuzzy.RankFindFold(s, candidates)
	if len(ranks) == 0 {
		// fall back to the reverse direction for typos longer than the target
		for _, c := range candidates {
			if fuzzy.MatchFold(c, s) {
				ranks = append(ranks, fuzzy.Rank{Source: s, Target: c, Distance: fuzzy.LevenshteinDistance(s, c)})
			}
		}
	}
	sort.Sort(ranks)
	var out []string
	for _, r := range ranks {
		if len(out) == n {
			break
		}
		out = append(out, r.Target)
	}
	return out
}

func handleFile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("file", flag.ContinueOnError)
	co := commonFlags(fs)
	modID := fs.Int("mod", 0, "mod id")
	fileID := fs.Int("file", 0, "file id")
	changelog := fs.Bool("changelog", false, "print the changelog (HTML)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modID <= 0 || *fileID <= 0 {
		return errors.New("--mod and --file are required")
	}
	e, c, err := co.apiClient()
	if err != nil {
		return err
	}
	f, err := c.GetFile(ctx, curseforge.ID(*modID), *fileID)
	if err != nil {
		return e.friendly(err)
	}
	if *changelog {
		s, err := f.Changelog(ctx)
		if err != nil {
			return e.friendly(err)
		}
		fmt.Println(s)
		return nil
	}
	if *co.jsonOut {
		return printJSON(f)
	}
	fmt.Printf("%s (%s)\n", f.DisplayName, f.FileName)
	fmt.Printf("  mod=%d file=%d %s  %s  %s\n", f.ModID, f.ID, f.ReleaseType, humanize.Bytes(uint64(f.FileLength)), f.FileDate.Format("2006-01-02"))
	fmt.Printf("  versions: %s\n", strings.Join(f.GameVersions, ", "))
	for _, h := range f.Hashes {
		fmt.Printf("  %s: %s\n", h.Algo, h.Value)
	}
	fmt.Printf("  fingerprint: %d\n", f.FileFingerprint)
	if f.DownloadURL == "" {
		fmt.Println(faint.Render("  no download url (distribution disabled by author)"))
	} else {
		fmt.Printf("  url: %s\n", f.DownloadURL)
	}
	for _, d := range f.Dependencies {
		fmt.Printf("  dep: mod=%d %s\n", d.ModID, d.Relation)
	}
	return nil
}

func handleDeps(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deps", flag.ContinueOnError)
	co := commonFlags(fs)
	modID := fs.Int("mod", 0, "mod id")
	fileID := fs.Int("file", 0, "file id")
	relations := fs.String("relations", "required", "comma list: required,optional,embedded-library,tool,incompatible,include")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modID <= 0 || *fileID <= 0 {
		return errors.New("--mod and --file are required")
	}
	kinds, err := parseRelations(*relations)
	if err != nil {
		return err
	}
	e, c, err := co.apiClient()
	if err != nil {
		return err
	}
	f, err := c.GetFile(ctx, curseforge.ID(*modID), *fileID)
	if err != nil {
		return e.friendly(err)
	}
	files, err := f.GetDependencies(ctx, kinds...)
	if err != nil {
		return e.friendly(err)
	}
	if *co.jsonOut {
		return printJSON(files)
	}
	rel := map[int]deps.Relation{}
	for _, d := range f.Dependencies {
		rel[d.ModID] = d.Relation
	}
	t := &table{head: []string{"MOD", "FILE", "RELATION", "NAME", "SIZE"}}
	for _, d := range files {
		t.add(strconv.Itoa(d.ModID), strconv.Itoa(d.ID), rel[d.ModID].String(), d.FileName, humanize.Bytes(uint64(d.FileLength)))
	}
	t.render(os.Stdout)
	return nil
}

func handleMod(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mod", flag.ContinueOnError)
	co := commonFlags(fs)
	modID := fs.Int("id", 0, "mod id")
	slug := fs.String("slug", "", "mod slug (requires --game)")
	game := fs.String("game", "", "game id or slug for --slug")
	files := fs.Bool("files", false, "list the mod's files")
	gameVersion := fs.String("game-version", "", "filter --files by game version")
	desc := fs.Bool("description", false, "print the description (HTML)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, c, err := co.apiClient()
	if err != nil {
		return err
	}
	var m *curseforge.Mod
	switch {
	case *modID > 0:
		m, err = c.GetMod(ctx, curseforge.ID(*modID))
	case *slug != "":
		var g *curseforge.Game
		if g, err = resolveGame(ctx, c, *game); err == nil {
			m, err = c.GetModBySlug(ctx, g, nil, *slug)
		}
	default:
		return errors.New("--id or --slug is required")
	}
	if err != nil {
		return e.friendly(err)
	}
	if *desc {
		s, err := m.Description(ctx)
		if err != nil {
			return e.friendly(err)
		}
		fmt.Println(s)
		return nil
	}
	if *files {
		list, _, err := m.Files(ctx, curseforge.FileQuery{GameVersion: *gameVersion})
		if err != nil {
			return e.friendly(err)
		}
		if *co.jsonOut {
			return printJSON(list)
		}
		t := &table{head: []string{"FILE", "TYPE", "NAME", "SIZE", "DATE"}}
		for _, f := range list {
			t.add(strconv.Itoa(f.ID), f.ReleaseType.String(), f.FileName, humanize.Bytes(uint64(f.FileLength)), f.FileDate.Format("2006-01-02"))
		}
		t.render(os.Stdout)
		return nil
	}
	if *co.jsonOut {
		return printJSON(m)
	}
	fmt.Printf("%s [%s] id=%d game=%d\n", m.Name, m.Slug, m.ID, m.GameID)
	fmt.Printf("  %s\n", m.Summary)
	fmt.Printf("  downloads: %s  main file: %d  updated %s\n", humanize.Comma(int64(m.DownloadCount)), m.MainFileID, humanize.Time(m.DateModified))
	for _, a := range m.Authors {
		fmt.Printf("  author: %s\n", a.Name)
	}
	return nil
}

func handleSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	co := commonFlags(fs)
	game := fs.String("game", "432", "game id or slug")
	query := fs.String("query", "", "search text")
	class := fs.Int("class", 0, "class (top-level category) id")
	category := fs.Int("category", 0, "category id")
	gameVersion := fs.String("game-version", "", "game version, e.g. 1.20.1")
	loader := fs.String("loader", "", "mod loader: forge|fabric|quilt|neoforge")
	page := fs.Int("page", 0, "page number starting at 0")
	size := fs.Int("page-size", 0, "results per page (max 50)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, c, err := co.apiClient()
	if err != nil {
		return err
	}
	g, err := resolveGame(ctx, c, *game)
	if err != nil {
		return e.friendly(err)
	}
	opts := curseforge.SearchOptions{
		SearchFilter: *query,
		GameVersion:  *gameVersion,
		SortField:    curseforge.SortPopularity,
		SortOrder:    curseforge.Descending,
	}
	if *class > 0 {
		opts.Class = curseforge.ID(*class)
	}
	if *category > 0 {
		opts.Category = curseforge.ID(*category)
	}
	if *loader != "" {
		lt, err := parseLoader(*loader)
		if err != nil {
			return err
		}
		opts.ModLoaderType = lt
	}
	ps := *size
	if ps <= 0 {
		ps = e.cfg.API.PageSize
	}
	opts.PageOptions = curseforge.PageOptions{Index: *page * ps, PageSize: ps}
	mods, pg, err := g.SearchMods(ctx, opts)
	if err != nil {
		return e.friendly(err)
	}
	if *co.jsonOut {
		return printJSON(map[string]any{"data": mods, "pagination": pg})
	}
	t := &table{head: []string{"ID", "SLUG", "NAME", "DOWNLOADS"}}
	for _, m := range mods {
		t.add(strconv.Itoa(m.ID), m.Slug, m.Name, humanize.Comma(int64(m.DownloadCount)))
	}
	t.render(os.Stdout)
	fmt.Println(faint.Render(fmt.Sprintf("%d-%d of %d", pg.Index+1, pg.Index+pg.ResultCount, pg.TotalCount)))
	return nil
}

func parseLoader(s string) (curseforge.ModLoaderType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for lt := curseforge.LoaderAny; lt <= curseforge.LoaderNeoForge; lt++ {
		if lt.String() == s {
			return lt, nil
		}
	}
	return 0, fmt.Errorf("unknown mod loader %q", s)
}

func handleGame(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("game", flag.ContinueOnError)
	co := commonFlags(fs)
	game := fs.String("game", "", "game id or slug (empty lists all games)")
	versions := fs.Bool("versions", false, "list game versions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, c, err := co.apiClient()
	if err != nil {
		return err
	}
	if *game == "" {
		all, err := c.AllGames(ctx)
		if err != nil {
			return e.friendly(err)
		}
		if *co.jsonOut {
			return printJSON(all)
		}
		t := &table{head: []string{"ID", "SLUG", "NAME"}}
		for _, g := range all {
			t.add(strconv.Itoa(g.ID), g.Slug, g.Name)
		}
		t.render(os.Stdout)
		return nil
	}
	g, err := resolveGame(ctx, c, *game)
	if err != nil {
		return e.friendly(err)
	}
	if *versions {
		vs, err := g.Versions(ctx)
		if err != nil {
			return e.friendly(err)
		}
		if *co.jsonOut {
			return printJSON(vs)
		}
		for _, v := range vs {
			fmt.Printf("type %d: %s\n", v.Type, strings.Join(v.Versions, ", "))
		}
		return nil
	}
	if *co.jsonOut {
		return printJSON(g)
	}
	fmt.Printf("%s [%s] id=%d\n", g.Name, g.Slug, g.ID)
	return nil
}

func handleCategories(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ContinueOnError)
	co := commonFlags(fs)
	game := fs.String("game", "432", "game id or slug")
	class := fs.Int("class", 0, "only categories under this class id")
	filter := fs.String("filter", "", "fuzzy filter on category name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, c, err := co.apiClient()
	if err != nil {
		return err
	}
	g, err := resolveGame(ctx, c, *game)
	if err != nil {
		return e.friendly(err)
	}
	var classID curseforge.Identifier
	if *class > 0 {
		classID = curseforge.ID(*class)
	}
	cats, err := g.Categories(ctx, classID)
	if err != nil {
		return e.friendly(err)
	}
	cats = filterCategories(cats, *filter)
	if *co.jsonOut {
		return printJSON(cats)
	}
	t := &table{head: []string{"ID", "CLASS", "SLUG", "NAME"}}
	for _, cat := range cats {
		cls := "-"
		if cat.ClassID != nil {
			cls = strconv.Itoa(*cat.ClassID)
		}
		if cat.IsClass != nil && *cat.IsClass {
			cls = "class"
		}
		t.add(strconv.Itoa(cat.ID), cls, cat.Slug, cat.Name)
	}
	t.render(os.Stdout)
	return nil
}

// filterCategories keeps categories whose name or slug fuzzily contains q,
// best match first.
func filterCategories(cats []*curseforge.Category, q string) []*curseforge.Category {
	q = strings.TrimSpace(q)
	if q == "" {
		return cats
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name + " " + c.Slug
	}
	ranks := fuzzy.RankFindFold(q, names)
	sort.Sort(ranks)
	out := make([]*curseforge.Category, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, cats[r.OriginalIndex])
	}
	return out
}
