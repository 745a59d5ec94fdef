package curseforge

import (
	"time"

	"github.com/jxwalker/cfcore/internal/deps"
	"github.com/jxwalker/cfcore/internal/integrity"
)

// Identifier is anything that can stand in for a numeric id: a bare ID or a
// resource already fetched from the API.
type Identifier interface {
	Identity() int
}

// ID wraps a bare numeric id.
type ID int

func (i ID) Identity() int { return int(i) }

type CoreStatus int

const (
	CoreDraft CoreStatus = iota + 1
	CoreTest
	CorePendingReview
	CoreRejected
	CoreApproved
	CoreLive
)

type CoreAPIStatus int

const (
	APIPrivate CoreAPIStatus = iota + 1
	APIPublic
)

type ReleaseType int

const (
	Release ReleaseType = iota + 1
	Beta
	Alpha
)

func (r ReleaseType) String() string {
	switch r {
	case Release:
		return "release"
	case Beta:
		return "beta"
	case Alpha:
		return "alpha"
	}
	return "unknown"
}

type FileStatus int

const (
	FileProcessing FileStatus = iota + 1
	FileChangesRequired
	FileUnderReview
	FileApproved
	FileRejected
	FileMalwareDetected
	FileDeleted
	FileArchived
	FileTesting
	FileReleased
	FileReadyForReview
	FileDeprecated
	FileBaking
	FileAwaitingPublishing
	FileFailedPublishing
)

type ModStatus int

const (
	ModNew ModStatus = iota + 1
	ModChangesRequired
	ModUnderSoftReview
	ModApproved
	ModRejected
	ModChangesMade
	ModInactive
	ModAbandoned
	ModDeleted
	ModUnderReview
)

type ModLoaderType int

const (
	LoaderAny ModLoaderType = iota
	LoaderForge
	LoaderCauldron
	LoaderLiteLoader
	LoaderFabric
	LoaderQuilt
	LoaderNeoForge
)

var loaderNames = []string{"any", "forge", "cauldron", "liteloader", "fabric", "quilt", "neoforge"}

func (m ModLoaderType) String() string {
	if int(m) >= 0 && int(m) < len(loaderNames) {
		return loaderNames[m]
	}
	return "unknown"
}

type SortField int

const (
	SortFeatured SortField = iota + 1
	SortPopularity
	SortLastUpdated
	SortName
	SortAuthor
	SortTotalDownloads
	SortCategory
	SortGameVersion
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Pagination is the paging block returned by list endpoints.
type Pagination struct {
	Index       int `json:"index"`
	PageSize    int `json:"pageSize"`
	ResultCount int `json:"resultCount"`
	TotalCount  int `json:"totalCount"`
}

// HasNext reports whether another page exists after this one.
func (p Pagination) HasNext() bool {
	return p.ResultCount > 0 && p.Index+p.ResultCount < p.TotalCount
}

// Next returns paging options for the following page.
func (p Pagination) Next() PageOptions {
	return PageOptions{Index: p.Index + p.ResultCount, PageSize: p.PageSize}
}

// PageOptions selects a page. PageSize is clamped to the API maximum of 50;
// zero uses the client default.
type PageOptions struct {
	Index    int
	PageSize int
}

type GameAssets struct {
	IconURL  string `json:"iconUrl"`
	TileURL  string `json:"tileUrl"`
	CoverURL string `json:"coverUrl"`
}

type Game struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	DateModified time.Time     `json:"dateModified"`
	Assets       GameAssets    `json:"assets"`
	Status       CoreStatus    `json:"status"`
	APIStatus    CoreAPIStatus `json:"apiStatus"`

	c *Client
}

func (g *Game) Identity() int { return g.ID }

type GameVersionsByType struct {
	Type     int      `json:"type"`
	Versions []string `json:"versions"`
}

type GameVersionType struct {
	ID     int    `json:"id"`
	GameID int    `json:"gameId"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
}

func (t *GameVersionType) Identity() int { return t.ID }

type Category struct {
	ID               int       `json:"id"`
	GameID           int       `json:"gameId"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	URL              string    `json:"url"`
	IconURL          string    `json:"iconUrl"`
	DateModified     time.Time `json:"dateModified"`
	IsClass          *bool     `json:"isClass"`
	ClassID          *int      `json:"classId"`
	ParentCategoryID *int      `json:"parentCategoryId"`
	DisplayIndex     *int      `json:"displayIndex"`

	c *Client
}

func (cat *Category) Identity() int { return cat.ID }

type ModLinks struct {
	WebsiteURL string `json:"websiteUrl"`
	WikiURL    string `json:"wikiUrl"`
	IssuesURL  string `json:"issuesUrl"`
	SourceURL  string `json:"sourceUrl"`
}

type ModAuthor struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ModAsset struct {
	ID           int    `json:"id"`
	ModID        int    `json:"modId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
	URL          string `json:"url"`
}

type FileIndex struct {
	GameVersion       string        `json:"gameVersion"`
	FileID            int           `json:"fileId"`
	Filename          string        `json:"filename"`
	ReleaseType       ReleaseType   `json:"releaseType"`
	GameVersionTypeID *int          `json:"gameVersionTypeId"`
	ModLoader         ModLoaderType `json:"modLoader"`
}

type Mod struct {
	ID                   int         `json:"id"`
	GameID               int         `json:"gameId"`
	Name                 string      `json:"name"`
	Slug                 string      `json:"slug"`
	Links                ModLinks    `json:"links"`
	Summary              string      `json:"summary"`
	Status               ModStatus   `json:"status"`
	DownloadCount        float64     `json:"downloadCount"`
	IsFeatured           bool        `json:"isFeatured"`
	PrimaryCategoryID    int         `json:"primaryCategoryId"`
	Categories           []*Category `json:"categories"`
	ClassID              *int        `json:"classId"`
	Authors              []ModAuthor `json:"authors"`
	Logo                 *ModAsset   `json:"logo"`
	Screenshots          []ModAsset  `json:"screenshots"`
	MainFileID           int         `json:"mainFileId"`
	LatestFiles          []*File     `json:"latestFiles"`
	LatestFilesIndexes   []FileIndex `json:"latestFilesIndexes"`
	DateCreated          time.Time   `json:"dateCreated"`
	DateModified         time.Time   `json:"dateModified"`
	DateReleased         time.Time   `json:"dateReleased"`
	AllowModDistribution *bool       `json:"allowModDistribution"`
	GamePopularityRank   int         `json:"gamePopularityRank"`
	IsAvailable          bool        `json:"isAvailable"`
	ThumbsUpCount        int         `json:"thumbsUpCount"`

	c *Client
}

func (m *Mod) Identity() int { return m.ID }

type SortableGameVersion struct {
	GameVersionName        string    `json:"gameVersionName"`
	GameVersionPadded      string    `json:"gameVersionPadded"`
	GameVersion            string    `json:"gameVersion"`
	GameVersionReleaseDate time.Time `json:"gameVersionReleaseDate"`
	GameVersionTypeID      *int      `json:"gameVersionTypeId"`
}

type FileModule struct {
	Name        string `json:"name"`
	Fingerprint int64  `json:"fingerprint"`
}

type File struct {
	ID                   int                   `json:"id"`
	GameID               int                   `json:"gameId"`
	ModID                int                   `json:"modId"`
	IsAvailable          bool                  `json:"isAvailable"`
	DisplayName          string                `json:"displayName"`
	FileName             string                `json:"fileName"`
	ReleaseType          ReleaseType           `json:"releaseType"`
	FileStatus           FileStatus            `json:"fileStatus"`
	Hashes               []integrity.Digest    `json:"hashes"`
	FileDate             time.Time             `json:"fileDate"`
	FileLength           int64                 `json:"fileLength"`
	DownloadCount        int64                 `json:"downloadCount"`
	DownloadURL          string                `json:"downloadUrl"`
	GameVersions         []string              `json:"gameVersions"`
	SortableGameVersions []SortableGameVersion `json:"sortableGameVersions"`
	Dependencies         []deps.Descriptor     `json:"dependencies"`
	ExposeAsAlternative  *bool                 `json:"exposeAsAlternative"`
	ParentProjectFileID  *int                  `json:"parentProjectFileId"`
	AlternateFileID      *int                  `json:"alternateFileId"`
	IsServerPack         *bool                 `json:"isServerPack"`
	ServerPackFileID     *int                  `json:"serverPackFileId"`
	FileFingerprint      int64                 `json:"fileFingerprint"`
	Modules              []FileModule          `json:"modules"`

	c *Client
}

func (f *File) Identity() int { return f.ID }

// FeaturedMods is the response of the featured endpoint.
type FeaturedMods struct {
	Featured        []*Mod `json:"featured"`
	Popular         []*Mod `json:"popular"`
	RecentlyUpdated []*Mod `json:"recentlyUpdated"`
}

type FingerprintMatch struct {
	ID          int     `json:"id"`
	File        *File   `json:"file"`
	LatestFiles []*File `json:"latestFiles"`
}

type FingerprintMatchResult struct {
	IsCacheBuilt             bool               `json:"isCacheBuilt"`
	ExactMatches             []FingerprintMatch `json:"exactMatches"`
	ExactFingerprints        []int64            `json:"exactFingerprints"`
	PartialMatches           []FingerprintMatch `json:"partialMatches"`
	PartialMatchFingerprints map[string][]int64 `json:"partialMatchFingerprints"`
	InstalledFingerprints    []int64            `json:"installedFingerprints"`
	UnmatchedFingerprints    []int64            `json:"unmatchedFingerprints"`
}

type FolderFingerprint struct {
	FolderName   string  `json:"foldername"`
	Fingerprints []int64 `json:"fingerprints"`
}

type FuzzyMatch struct {
	ID           int     `json:"id"`
	File         *File   `json:"file"`
	LatestFiles  []*File `json:"latestFiles"`
	Fingerprints []int64 `json:"fingerprints"`
}

type MinecraftVersion struct {
	ID                    int       `json:"id"`
	GameVersionID         int       `json:"gameVersionId"`
	VersionString         string    `json:"versionString"`
	JarDownloadURL        string    `json:"jarDownloadUrl"`
	JSONDownloadURL       string    `json:"jsonDownloadUrl"`
	Approved              bool      `json:"approved"`
	DateModified          time.Time `json:"dateModified"`
	GameVersionTypeID     int       `json:"gameVersionTypeId"`
	GameVersionStatus     int       `json:"gameVersionStatus"`
	GameVersionTypeStatus int       `json:"gameVersionTypeStatus"`
}

type ModLoader struct {
	Name         string        `json:"name"`
	GameVersion  string        `json:"gameVersion"`
	Latest       bool          `json:"latest"`
	Recommended  bool          `json:"recommended"`
	DateModified time.Time     `json:"dateModified"`
	Type         ModLoaderType `json:"type"`
}
