package curseforge

import "context"

// GetFingerprintMatches looks up files by their CurseForge fingerprint.
func (c *Client) GetFingerprintMatches(ctx context.Context, fingerprints ...int64) (*FingerprintMatchResult, error) {
	body := struct {
		Fingerprints []int64 `json:"fingerprints"`
	}{fingerprints}
	var out FingerprintMatchResult
	if _, err := c.post(ctx, "/v1/fingerprints", body, &out); err != nil {
		return nil, err
	}
	for i := range out.ExactMatches {
		c.bindMatch(&out.ExactMatches[i])
	}
	for i := range out.PartialMatches {
		c.bindMatch(&out.PartialMatches[i])
	}
	return &out, nil
}

func (c *Client) GetFingerprintsFuzzy(ctx context.Context, game Identifier, folders []FolderFingerprint) ([]FuzzyMatch, error) {
	body := struct {
		GameID       int                 `json:"gameId"`
		Fingerprints []FolderFingerprint `json:"fingerprints"`
	}{game.Identity(), folders}
	var out struct {
		FuzzyMatches []FuzzyMatch `json:"fuzzyMatches"`
	}
	if _, err := c.post(ctx, "/v1/fingerprints/fuzzy", body, &out); err != nil {
		return nil, err
	}
	for i := range out.FuzzyMatches {
		m := &out.FuzzyMatches[i]
		c.bindFiles([]*File{m.File})
		c.bindFiles(m.LatestFiles)
	}
	return out.FuzzyMatches, nil
}

func (c *Client) bindMatch(m *FingerprintMatch) {
	c.bindFiles([]*File{m.File})
	c.bindFiles(m.LatestFiles)
}
