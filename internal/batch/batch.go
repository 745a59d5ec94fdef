// Package batch reads YAML files listing many downloads to run in one go.
package batch

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type File struct {
	Version int   `yaml:"version"`
	Jobs    []Job `yaml:"jobs"`
}

// Job is either a mod file (mod + file) or a direct URL with optional hashes.
type Job struct {
	Mod  int    `yaml:"mod"`
	File int    `yaml:"file"`
	URL  string `yaml:"url"`
	SHA1 string `yaml:"sha1"`
	MD5  string `yaml:"md5"`
	Dest string `yaml:"dest"`
	// WithDeps lists dependency relations to download alongside, e.g. [required].
	WithDeps []string `yaml:"with_deps"`
	// Verify overrides validation.verify_downloads for this job.
	Verify *bool `yaml:"verify"`
}

func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("unsupported batch version: %d", f.Version)
	}
	if len(f.Jobs) == 0 {
		return nil, fmt.Errorf("batch has no jobs")
	}
	for i, j := range f.Jobs {
		if err := j.validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
	}
	return &f, nil
}

func (j Job) validate() error {
	hasURL := strings.TrimSpace(j.URL) != ""
	hasFile := j.Mod > 0 || j.File > 0
	switch {
	case hasURL && hasFile:
		return fmt.Errorf("url and mod/file are mutually exclusive")
	case hasURL:
		if len(j.WithDeps) > 0 {
			return fmt.Errorf("with_deps needs mod/file")
		}
	case j.Mod <= 0 || j.File <= 0:
		return fmt.Errorf("mod and file are required")
	case j.SHA1 != "" || j.MD5 != "":
		return fmt.Errorf("sha1/md5 apply to url jobs only")
	}
	return nil
}
