package curseforge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jxwalker/cfcore/internal/deps"
	"github.com/jxwalker/cfcore/internal/downloader"
	"github.com/jxwalker/cfcore/internal/util"
)

// FileQuery filters the file list of a mod.
type FileQuery struct {
	GameVersion       string
	ModLoaderType     ModLoaderType
	GameVersionTypeID int
	PageOptions
}

// GetFile fetches one file of a mod. It is the lookup used to resolve
// dependency descriptors.
func (c *Client) GetFile(ctx context.Context, mod Identifier, fileID int) (*File, error) {
	var f File
	if _, err := c.get(ctx, fmt.Sprintf("/v1/mods/%d/files/%d", mod.Identity(), fileID), nil, &f); err != nil {
		return nil, err
	}
	f.c = c
	return &f, nil
}

func (c *Client) GetFiles(ctx context.Context, mod Identifier, fq FileQuery) ([]*File, Pagination, error) {
	q := url.Values{}
	if fq.GameVersion != "" {
		q.Set("gameVersion", fq.GameVersion)
	}
	if fq.ModLoaderType != LoaderAny {
		q.Set("modLoaderType", strconv.Itoa(int(fq.ModLoaderType)))
	}
	if fq.GameVersionTypeID != 0 {
		q.Set("gameVersionTypeId", strconv.Itoa(fq.GameVersionTypeID))
	}
	c.paging(q, fq.PageOptions)
	var files []*File
	pg, err := c.get(ctx, fmt.Sprintf("/v1/mods/%d/files", mod.Identity()), q, &files)
	if err != nil {
		return nil, Pagination{}, err
	}
	c.bindFiles(files)
	return files, pageOf(pg), nil
}

// GetFilesByID fetches files by id regardless of mod.
func (c *Client) GetFilesByID(ctx context.Context, ids ...int) ([]*File, error) {
	if len(ids) == 0 {
		return []*File{}, nil
	}
	body := struct {
		FileIDs []int `json:"fileIds"`
	}{ids}
	var files []*File
	if _, err := c.post(ctx, "/v1/mods/files", body, &files); err != nil {
		return nil, err
	}
	c.bindFiles(files)
	return files, nil
}

// GetFileChangelog returns the changelog of a file as HTML.
func (c *Client) GetFileChangelog(ctx context.Context, mod Identifier, file Identifier) (string, error) {
	var s string
	if _, err := c.get(ctx, fmt.Sprintf("/v1/mods/%d/files/%d/changelog", mod.Identity(), file.Identity()), nil, &s); err != nil {
		return "", err
	}
	return s, nil
}

func (c *Client) GetFileDownloadURL(ctx context.Context, mod Identifier, file Identifier) (string, error) {
	var s string
	if _, err := c.get(ctx, fmt.Sprintf("/v1/mods/%d/files/%d/download-url", mod.Identity(), file.Identity()), nil, &s); err != nil {
		return "", err
	}
	return s, nil
}

// Mod fetches the mod this file belongs to.
func (f *File) Mod(ctx context.Context) (*Mod, error) {
	if err := f.c.bound(); err != nil {
		return nil, err
	}
	return f.c.GetMod(ctx, ID(f.ModID))
}

func (f *File) Changelog(ctx context.Context) (string, error) {
	if err := f.c.bound(); err != nil {
		return "", err
	}
	return f.c.GetFileChangelog(ctx, ID(f.ModID), f)
}

// DefaultDest is where the file lands when no destination is given:
// download_root, the expanded layout, then the sanitized file name. An
// unbound file yields just the sanitized name.
func (f *File) DefaultDest() string {
	tokens := map[string]string{
		"game_id":      strconv.Itoa(f.GameID),
		"mod_id":       strconv.Itoa(f.ModID),
		"file_id":      strconv.Itoa(f.ID),
		"release_type": f.ReleaseType.String(),
	}
	name := f.FileName
	if name == "" {
		name = util.URLPathBase(f.DownloadURL)
	}
	if f.c == nil {
		return util.SafeFileName(name)
	}
	return util.DestPath(f.c.downloadRoot, f.c.layout, tokens, name)
}

// DownloadOptions tunes DownloadFile.
type DownloadOptions struct {
	Dest     string
	Verify   bool
	Progress downloader.ProgressFunc
}

// Download fetches the file to dest and, when verify is set, checks it
// against the declared hashes. The result is false only when a digest was
// compared and did not match. An empty dest uses DefaultDest.
func (f *File) Download(ctx context.Context, dest string, verify bool) (bool, error) {
	res, err := f.DownloadFile(ctx, DownloadOptions{Dest: dest, Verify: verify})
	if err != nil {
		return false, err
	}
	return res.OK(), nil
}

// DownloadFile is Download with progress reporting and the full result.
func (f *File) DownloadFile(ctx context.Context, opts DownloadOptions) (*downloader.Result, error) {
	if err := f.c.bound(); err != nil {
		return nil, err
	}
	if f.DownloadURL == "" {
		return nil, fmt.Errorf("mod %d file %d: %w", f.ModID, f.ID, downloader.ErrNoDownloadURL)
	}
	dest := opts.Dest
	if dest == "" {
		dest = f.DefaultDest()
	}
	return f.c.dl.Download(ctx, downloader.Request{
		URL:      f.DownloadURL,
		Dest:     dest,
		Digests:  f.Hashes,
		Verify:   opts.Verify,
		ModID:    f.ModID,
		FileID:   f.ID,
		Size:     f.FileLength,
		Progress: opts.Progress,
	})
}

// GetDependencies resolves the dependency descriptors of this file whose
// relation is in kinds (required dependencies when kinds is empty). Results
// follow declaration order; the first failed lookup fails the call.
func (f *File) GetDependencies(ctx context.Context, kinds ...deps.Relation) ([]*File, error) {
	if err := f.c.bound(); err != nil {
		return nil, err
	}
	w := &deps.Walker[*File]{
		Lookup: func(ctx context.Context, modID, fileID int) (*File, error) {
			return f.c.GetFile(ctx, ID(modID), fileID)
		},
		Workers: f.c.depWorkers,
		Log:     f.c.log,
	}
	return w.Walk(ctx, f.Dependencies, kinds...)
}
