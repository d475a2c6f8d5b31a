package upload

import (
	"errors"
	"fmt"
)

// ErrRequiredAssetMissing blocks record creation when the archive or cover
// was supplied but did not upload.
var ErrRequiredAssetMissing = errors.New("required asset missing")

type Asset struct {
	Category Category `json:"category"`
	URL      string   `json:"url"`
	Path     string   `json:"path"`
}

func (a Asset) empty() bool {
	return a.Path == "" && a.URL == ""
}

// Assets is the set of stored files a game record points at.
type Assets struct {
	Archive     Asset
	Cover       Asset
	Screenshots []Asset
}

// Supplied records which files the submission carried.
type Supplied struct {
	Archive     bool
	Cover       bool
	Screenshots int
}

// Compose maps batch results onto a game's assets by category tag.
// Archive and cover fail closed; screenshots that failed are dropped.
// Files that were not supplied keep the prior asset. Uploaded screenshots
// replace the whole prior list; if every supplied screenshot failed the
// prior list is kept.
func Compose(batch BatchResult, supplied Supplied, prior Assets) (Assets, error) {
	out := Assets{
		Archive:     prior.Archive,
		Cover:       prior.Cover,
		Screenshots: prior.Screenshots,
	}

	if supplied.Archive {
		r, ok := first(batch.Results, CategoryArchive)
		if !ok {
			return Assets{}, fmt.Errorf("%w: game archive", ErrRequiredAssetMissing)
		}
		out.Archive = r.asset()
	}
	if supplied.Cover {
		r, ok := first(batch.Results, CategoryCover)
		if !ok {
			return Assets{}, fmt.Errorf("%w: cover image", ErrRequiredAssetMissing)
		}
		out.Cover = r.asset()
	}
	if supplied.Screenshots > 0 && batch.Uploaded(CategoryScreenshot) > 0 {
		shots := make([]Asset, 0, supplied.Screenshots)
		for _, r := range batch.Results {
			if r.Category == CategoryScreenshot {
				shots = append(shots, r.asset())
			}
		}
		out.Screenshots = shots
	}

	if out.Archive.empty() {
		return Assets{}, fmt.Errorf("%w: game archive", ErrRequiredAssetMissing)
	}
	if out.Cover.empty() {
		return Assets{}, fmt.Errorf("%w: cover image", ErrRequiredAssetMissing)
	}
	return out, nil
}

// Replaced lists prior assets that a no longer references.
func (a Assets) Replaced(prior Assets) []Asset {
	keep := map[string]bool{a.Archive.Path: true, a.Cover.Path: true}
	for _, s := range a.Screenshots {
		keep[s.Path] = true
	}

	var gone []Asset
	for _, p := range prior.All() {
		if !keep[p.Path] {
			gone = append(gone, p)
		}
	}
	return gone
}

// All returns every non-empty asset.
func (a Assets) All() []Asset {
	var all []Asset
	for _, x := range append([]Asset{a.Archive, a.Cover}, a.Screenshots...) {
		if x.Path != "" {
			all = append(all, x)
		}
	}
	return all
}

func (r Result) asset() Asset {
	return Asset{Category: r.Category, URL: r.PublicURL, Path: r.Path}
}

func first(results []Result, c Category) (Result, bool) {
	for _, r := range results {
		if r.Category == c {
			return r, true
		}
	}
	return Result{}, false
}
