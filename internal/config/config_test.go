package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmp := t.TempDir()
	c, err := Load(writeConfig(t,
		"version: 1",
		"general:",
		"  data_root: \""+tmp+"/data\"",
		"  download_root: \""+tmp+"/dl\"",
	))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.API.BaseURL != DefaultBaseURL {
		t.Fatalf("base url=%q", c.API.BaseURL)
	}
	if c.Network.MaxRedirects != DefaultMaxRedirects {
		t.Fatalf("max redirects=%d", c.Network.MaxRedirects)
	}
	if c.API.KeyEnv != DefaultKeyEnv || c.API.PageSize != DefaultPageSize {
		t.Fatalf("api defaults not applied: %+v", c.API)
	}
	if !c.StagePartials() || !c.VerifyDownloads() {
		t.Fatalf("stage/verify should default to true")
	}
	if c.Concurrency.DependencyWorkers != 1 {
		t.Fatalf("dependency workers=%d", c.Concurrency.DependencyWorkers)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("CFCORE_TEST_ROOT", tmp)
	c, err := Load(writeConfig(t,
		"version: 1",
		"general:",
		"  data_root: \"${CFCORE_TEST_ROOT}/data\"",
		"  download_root: \"${CFCORE_TEST_ROOT}/dl\"",
		"api:",
		"  base_url: \"https://example.test/\"",
		"validation:",
		"  verify_downloads: false",
	))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.General.DataRoot != tmp+"/data" {
		t.Fatalf("data_root=%q", c.General.DataRoot)
	}
	if c.API.BaseURL != "https://example.test" {
		t.Fatalf("trailing slash not trimmed: %q", c.API.BaseURL)
	}
	if c.VerifyDownloads() {
		t.Fatalf("verify_downloads=false not honored")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string][]string{
		"version":  {"version: 2", "general:", "  data_root: /a", "  download_root: /b"},
		"data":     {"version: 1", "general:", "  download_root: /b"},
		"redirect": {"version: 1", "general:", "  data_root: /a", "  download_root: /b", "network:", "  max_redirects: -1"},
		"pagesize": {"version: 1", "general:", "  data_root: /a", "  download_root: /b", "api:", "  page_size: 80"},
		"level":    {"version: 1", "general:", "  data_root: /a", "  download_root: /b", "logging:", "  level: loud"},
		"metrics":  {"version: 1", "general:", "  data_root: /a", "  download_root: /b", "metrics:", "  prometheus_textfile:", "    enabled: true"},
	}
	for name, lines := range cases {
		if _, err := Load(writeConfig(t, lines...)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestAPIKeyPrefersLiteral(t *testing.T) {
	t.Setenv("CFCORE_TEST_KEY", "from-env")
	c := Default(t.TempDir())
	c.API.KeyEnv = "CFCORE_TEST_KEY"
	if got := c.APIKey(); got != "from-env" {
		t.Fatalf("APIKey=%q", got)
	}
	c.API.Key = " literal "
	if got := c.APIKey(); got != "literal" {
		t.Fatalf("APIKey=%q", got)
	}
}

func TestValidateDetailedMissingKey(t *testing.T) {
	c := Default(t.TempDir())
	c.API.KeyEnv = "CFCORE_TEST_UNSET_KEY"
	errs := c.ValidateDetailed()
	if len(errs) != 1 || errs[0].Field != "api.key_env" {
		t.Fatalf("unexpected detailed errors: %+v", errs)
	}
	if err := c.ValidateWithFriendlyErrors(); err == nil || !strings.Contains(err.Error(), "CFCORE_TEST_UNSET_KEY") {
		t.Fatalf("friendly error should name the env var, got %v", err)
	}
}
