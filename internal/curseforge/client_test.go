package curseforge

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/jxwalker/cfcore/internal/config"
	"github.com/jxwalker/cfcore/internal/deps"
	"github.com/jxwalker/cfcore/internal/downloader"
	"github.com/jxwalker/cfcore/internal/logging"
)

const testKey = "test-key-1234"

// fakeAPI is a minimal CurseForge API plus a CDN that redirects once.
type fakeAPI struct {
	t     *testing.T
	srv   *httptest.Server
	files map[string]map[string]any // "mod/file" -> file json
	mu    sync.Mutex
	seen  []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, files: map[string]map[string]any{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/", f.api)
	mux.HandleFunc("/cdn/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/edge/"+strings.TrimPrefix(r.URL.Path, "/cdn/"), http.StatusFound)
	})
	mux.HandleFunc("/edge/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "" {
			t.Errorf("api key leaked to download host")
		}
		_, _ = w.Write([]byte{1, 2, 3})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func writeData(w http.ResponseWriter, data any, pg *Pagination) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "pagination": pg})
}

func (f *fakeAPI) api(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-api-key") != testKey {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	f.mu.Lock()
	f.seen = append(f.seen, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	f.mu.Unlock()
	p := strings.TrimPrefix(r.URL.Path, "/v1/")
	switch {
	case p == "games":
		idx, _ := strconv.Atoi(r.URL.Query().Get("index"))
		all := []map[string]any{
			{"id": 432, "name": "Minecraft", "slug": "minecraft"},
			{"id": 1, "name": "World of Warcraft", "slug": "wow"},
			{"id": 78022, "name": "Minecraft Bedrock", "slug": "minecraft-bedrock"},
		}
		if idx >= len(all) {
			writeData(w, []any{}, &Pagination{Index: idx, PageSize: 2, TotalCount: len(all)})
			return
		}
		end := idx + 2
		if end > len(all) {
			end = len(all)
		}
		writeData(w, all[idx:end], &Pagination{Index: idx, PageSize: 2, ResultCount: end - idx, TotalCount: len(all)})
	case p == "games/432":
		writeData(w, map[string]any{"id": 432, "name": "Minecraft", "slug": "minecraft"}, nil)
	case p == "mods/search":
		writeData(w, []map[string]any{{"id": 238222, "gameId": 432, "slug": "jei", "name": "Just Enough Items"}},
			&Pagination{Index: 0, PageSize: 50, ResultCount: 1, TotalCount: 1})
	case p == "mods" && r.Method == http.MethodPost:
		var body struct {
			ModIDs []int `json:"modIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var out []map[string]any
		for _, id := range body.ModIDs {
			out = append(out, map[string]any{"id": id})
		}
		writeData(w, out, nil)
	case p == "fingerprints" && r.Method == http.MethodPost:
		var body struct {
			Fingerprints []int64 `json:"fingerprints"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeData(w, map[string]any{
			"isCacheBuilt":          true,
			"exactMatches":          []map[string]any{{"id": 238222, "file": map[string]any{"id": 10, "modId": 238222}}},
			"exactFingerprints":     body.Fingerprints[:1],
			"unmatchedFingerprints": body.Fingerprints[1:],
		}, nil)
	case strings.HasPrefix(p, "mods/") && strings.Contains(p, "/files/"):
		parts := strings.Split(p, "/") // mods, {mod}, files, {file}[, changelog]
		if len(parts) == 5 && parts[4] == "changelog" {
			writeData(w, "<p>fixed</p>", nil)
			return
		}
		key := parts[1] + "/" + parts[3]
		fj, ok := f.files[key]
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		writeData(w, fj, nil)
	case p == "status/503":
		w.WriteHeader(http.StatusServiceUnavailable)
	case p == "status/500":
		w.WriteHeader(http.StatusInternalServerError)
	case p == "status/400":
		http.Error(w, "bad", http.StatusBadRequest)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) addFile(modID, fileID int, extra map[string]any) {
	fj := map[string]any{
		"id":       fileID,
		"modId":    modID,
		"gameId":   432,
		"fileName": fmt.Sprintf("mod-%d-%d.jar", modID, fileID),
	}
	for k, v := range extra {
		fj[k] = v
	}
	f.files[fmt.Sprintf("%d/%d", modID, fileID)] = fj
}

func newTestClient(t *testing.T, f *fakeAPI) (*Client, *config.Config) {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.API.Key = testKey
	cfg.API.BaseURL = f.srv.URL
	c, err := New(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, cfg
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.API.KeyEnv = "CFCORE_TEST_UNSET_KEY"
	if _, err := New(cfg, nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := New(cfg, nil, WithAPIKey("k")); err != nil {
		t.Fatalf("WithAPIKey: %v", err)
	}
}

func TestStatusMapping(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f)
	ctx := context.Background()
	cases := map[string]error{
		"/v1/status/400": ErrBadRequest,
		"/v1/status/500": ErrInternalServer,
		"/v1/status/503": ErrServiceUnavailable,
		"/v1/nothing":    ErrNotFound,
	}
	for path, want := range cases {
		_, err := c.get(ctx, path, nil, nil)
		if !errors.Is(err, want) {
			t.Fatalf("%s: expected %v, got %v", path, want, err)
		}
		var ae *APIError
		if !errors.As(err, &ae) || ae.Path != path {
			t.Fatalf("%s: expected APIError, got %#v", path, err)
		}
	}

	bad, err := New(config.Default(t.TempDir()), nil, WithAPIKey("wrong"), WithBaseURL(f.srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bad.GetGame(ctx, ID(432)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGetGameBySlugWalksPages(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f)
	g, err := c.GetGameBySlug(context.Background(), "Minecraft-Bedrock")
	if err != nil {
		t.Fatalf("GetGameBySlug: %v", err)
	}
	if g.ID != 78022 || g.c != c {
		t.Fatalf("unexpected game %+v", g)
	}
	if _, err := c.GetGameBySlug(context.Background(), "nope"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	all, err := c.AllGames(context.Background())
	if err != nil || len(all) != 3 {
		t.Fatalf("AllGames=%d %v", len(all), err)
	}
}

func TestSearchModsQuery(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f)
	g, err := c.GetGame(context.Background(), ID(432))
	if err != nil {
		t.Fatal(err)
	}
	mods, pg, err := g.SearchMods(context.Background(), SearchOptions{
		SearchFilter:  "jei",
		Class:         ID(6),
		ModLoaderType: LoaderForge,
		SortField:     SortPopularity,
		SortOrder:     Descending,
		PageOptions:   PageOptions{PageSize: 500},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(mods) != 1 || mods[0].Slug != "jei" || pg.HasNext() {
		t.Fatalf("unexpected search result %+v %+v", mods, pg)
	}
	last := f.seen[len(f.seen)-1]
	for _, want := range []string{"gameId=432", "classId=6", "modLoaderType=1", "sortField=2", "sortOrder=desc", "searchFilter=jei", "pageSize=50"} {
		if !strings.Contains(last, want) {
			t.Fatalf("query %q missing %q", last, want)
		}
	}
}

func TestGetModsPosts(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f)
	mods, err := c.GetMods(context.Background(), 1, 2, 3)
	if err != nil || len(mods) != 3 || mods[2].ID != 3 {
		t.Fatalf("GetMods=%v %v", mods, err)
	}
}

func TestFingerprintMatches(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f)
	res, err := c.GetFingerprintMatches(context.Background(), 111, 222)
	if err != nil {
		t.Fatalf("fingerprints: %v", err)
	}
	if len(res.ExactMatches) != 1 || res.ExactMatches[0].File.c != c || len(res.UnmatchedFingerprints) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func sha1Hex(b []byte) string { s := sha1.Sum(b); return hex.EncodeToString(s[:]) }

func TestFileDownloadFollowsRedirectAndVerifies(t *testing.T) {
	f := newFakeAPI(t)
	f.addFile(1, 10, map[string]any{
		"downloadUrl": f.srv.URL + "/cdn/mod-1-10.jar",
		"hashes": []map[string]any{
			{"value": strings.ToUpper(sha1Hex([]byte{1, 2, 3})), "algo": 1},
			{"value": "ffffffffffffffffffffffffffffffff", "algo": 2},
		},
	})
	f.addFile(1, 11, map[string]any{
		"downloadUrl": f.srv.URL + "/cdn/mod-1-11.jar",
		"hashes":      []map[string]any{{"value": strings.Repeat("a", 40), "algo": 1}},
	})
	f.addFile(1, 12, map[string]any{"downloadUrl": nil})
	c, cfg := newTestClient(t, f)
	ctx := context.Background()

	file, err := c.GetFile(ctx, ID(1), 10)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "out.jar")
	ok, err := file.Download(ctx, dest, true)
	if err != nil || !ok {
		t.Fatalf("Download ok=%v err=%v", ok, err)
	}
	if b, _ := os.ReadFile(dest); string(b) != "\x01\x02\x03" {
		t.Fatalf("content=%v", b)
	}

	bad, err := c.GetFile(ctx, ID(1), 11)
	if err != nil {
		t.Fatal(err)
	}
	ok, err = bad.Download(ctx, "", true)
	if err != nil || ok {
		t.Fatalf("mismatch should give false,nil: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(cfg.General.DownloadRoot, "mod-1-11.jar")); err != nil {
		t.Fatalf("default destination not used: %v", err)
	}
	ok, err = bad.Download(ctx, filepath.Join(t.TempDir(), "skip.jar"), false)
	if err != nil || !ok {
		t.Fatalf("verify=false should give true: ok=%v err=%v", ok, err)
	}

	none, err := c.GetFile(ctx, ID(1), 12)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := none.Download(ctx, "", true); !errors.Is(err, downloader.ErrNoDownloadURL) {
		t.Fatalf("expected ErrNoDownloadURL, got %v", err)
	}

	log, err := file.Changelog(ctx)
	if err != nil || log != "<p>fixed</p>" {
		t.Fatalf("changelog=%q %v", log, err)
	}
}

func TestGetDependenciesFiltersAndOrders(t *testing.T) {
	f := newFakeAPI(t)
	f.addFile(1, 10, map[string]any{"dependencies": []map[string]any{
		{"modId": 2, "fileId": 20, "relationType": 3},
		{"modId": 3, "fileId": 30, "relationType": 2},
		{"modId": 4, "fileId": 40, "relationType": 3},
	}})
	f.addFile(2, 20, nil)
	f.addFile(3, 30, nil)
	f.addFile(4, 40, nil)
	for _, workers := range []int{1, 3} {
		c, _ := newTestClient(t, f)
		c.depWorkers = workers
		file, err := c.GetFile(context.Background(), ID(1), 10)
		if err != nil {
			t.Fatal(err)
		}
		got, err := file.GetDependencies(context.Background())
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if len(got) != 2 || got[0].ID != 20 || got[1].ID != 40 {
			t.Fatalf("workers=%d: unexpected deps %+v", workers, got)
		}
		all, err := file.GetDependencies(context.Background(), deps.RequiredDependency, deps.OptionalDependency)
		if err != nil || len(all) != 3 || all[1].ID != 30 {
			t.Fatalf("workers=%d: unexpected deps %+v %v", workers, all, err)
		}
	}
}

func TestGetDependenciesFailFast(t *testing.T) {
	f := newFakeAPI(t)
	f.addFile(1, 10, map[string]any{"dependencies": []map[string]any{
		{"modId": 2, "fileId": 20, "relationType": 3},
		{"modId": 9, "fileId": 99, "relationType": 3},
	}})
	f.addFile(2, 20, nil)
	c, _ := newTestClient(t, f)
	file, err := c.GetFile(context.Background(), ID(1), 10)
	if err != nil {
		t.Fatal(err)
	}
	got, err := file.GetDependencies(context.Background())
	if got != nil || !IsNotFound(err) {
		t.Fatalf("expected not found and no results, got %v %v", got, err)
	}
	var re *deps.ResolutionError
	if !errors.As(err, &re) || re.ModID != 9 {
		t.Fatalf("expected ResolutionError for mod 9, got %v", err)
	}
}

func TestPaginationHasNext(t *testing.T) {
	cases := []struct {
		p    Pagination
		want bool
	}{
		{Pagination{Index: 0, ResultCount: 50, TotalCount: 120}, true},
		{Pagination{Index: 100, ResultCount: 20, TotalCount: 120}, false},
		{Pagination{Index: 0, ResultCount: 0, TotalCount: 10}, false},
	}
	for _, tc := range cases {
		if got := tc.p.HasNext(); got != tc.want {
			t.Fatalf("%+v HasNext=%v", tc.p, got)
		}
	}
}


func TestUnboundResourcesReturnErrUnbound(t *testing.T) {
	var f File
	raw := `{"id":7,"modId":3,"fileName":"a b.jar","downloadUrl":"https://edge.test/a.jar","dependencies":[{"modId":1,"fileId":2,"relationType":3}]}`
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := f.Mod(ctx); !errors.Is(err, ErrUnbound) {
		t.Fatalf("Mod: %v", err)
	}
	if _, err := f.Changelog(ctx); !errors.Is(err, ErrUnbound) {
		t.Fatalf("Changelog: %v", err)
	}
	if _, err := f.GetDependencies(ctx); !errors.Is(err, ErrUnbound) {
		t.Fatalf("GetDependencies: %v", err)
	}
	if _, err := f.Download(ctx, filepath.Join(t.TempDir(), "a.jar"), true); !errors.Is(err, ErrUnbound) {
		t.Fatalf("Download: %v", err)
	}
	if got := f.DefaultDest(); got != "a-b.jar" {
		t.Fatalf("DefaultDest=%q", got)
	}

	m := &Mod{ID: 3}
	if _, _, err := m.Files(ctx, FileQuery{}); !errors.Is(err, ErrUnbound) {
		t.Fatalf("Mod.Files: %v", err)
	}
	g := &Game{ID: 432}
	if _, err := g.Categories(ctx, nil); !errors.Is(err, ErrUnbound) {
		t.Fatalf("Game.Categories: %v", err)
	}
	cat := &Category{ID: 6}
	if _, _, err := cat.Mods(ctx, SearchOptions{}); !errors.Is(err, ErrUnbound) {
		t.Fatalf("Category.Mods: %v", err)
	}
}
