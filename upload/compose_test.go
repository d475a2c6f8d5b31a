package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(c Category, idx int, path string) Result {
	return Result{Category: c, Index: idx, Path: path, PublicURL: "https://cdn.test/" + path}
}

func TestComposeCreate(t *testing.T) {
	batch := BatchResult{
		OverallSuccess: false,
		Results: []Result{
			result(CategoryArchive, 0, "g.zip"),
			result(CategoryCover, 1, "c.png"),
			result(CategoryScreenshot, 2, "s1.png"),
			result(CategoryScreenshot, 4, "s3.png"),
		},
		Errors: []ItemError{{File: "s2.png", Message: "upload failed"}},
	}

	assets, err := Compose(batch, Supplied{Archive: true, Cover: true, Screenshots: 3}, Assets{})
	require.NoError(t, err)

	assert.Equal(t, "g.zip", assets.Archive.Path)
	assert.Equal(t, "https://cdn.test/g.zip", assets.Archive.URL)
	assert.Equal(t, "c.png", assets.Cover.Path)
	require.Len(t, assets.Screenshots, 2)
	assert.Equal(t, "s1.png", assets.Screenshots[0].Path)
	assert.Equal(t, "s3.png", assets.Screenshots[1].Path)
}

func TestComposeFailsClosedOnRequiredAssets(t *testing.T) {
	shots := []Result{
		result(CategoryScreenshot, 2, "s1.png"),
		result(CategoryScreenshot, 3, "s2.png"),
		result(CategoryScreenshot, 4, "s3.png"),
	}

	t.Run("missing archive", func(t *testing.T) {
		batch := BatchResult{Results: append([]Result{result(CategoryCover, 1, "c.png")}, shots...)}
		_, err := Compose(batch, Supplied{Archive: true, Cover: true, Screenshots: 3}, Assets{})
		assert.ErrorIs(t, err, ErrRequiredAssetMissing)
		assert.Contains(t, err.Error(), "game archive")
	})

	t.Run("missing cover", func(t *testing.T) {
		batch := BatchResult{Results: append([]Result{result(CategoryArchive, 0, "g.zip")}, shots...)}
		_, err := Compose(batch, Supplied{Archive: true, Cover: true, Screenshots: 3}, Assets{})
		assert.ErrorIs(t, err, ErrRequiredAssetMissing)
		assert.Contains(t, err.Error(), "cover image")
	})

	t.Run("nothing supplied and nothing stored", func(t *testing.T) {
		_, err := Compose(BatchResult{OverallSuccess: true}, Supplied{}, Assets{})
		assert.ErrorIs(t, err, ErrRequiredAssetMissing)
	})
}

func TestComposeIgnoresResultOrder(t *testing.T) {
	batch := BatchResult{Results: []Result{
		result(CategoryScreenshot, 0, "s1.png"),
		result(CategoryCover, 1, "c.png"),
		result(CategoryArchive, 2, "g.zip"),
	}}

	assets, err := Compose(batch, Supplied{Archive: true, Cover: true, Screenshots: 1}, Assets{})
	require.NoError(t, err)
	assert.Equal(t, "g.zip", assets.Archive.Path)
	assert.Equal(t, "c.png", assets.Cover.Path)
	assert.Equal(t, "s1.png", assets.Screenshots[0].Path)
}

func priorAssets() Assets {
	return Assets{
		Archive: Asset{Category: CategoryArchive, URL: "u/old.zip", Path: "old.zip"},
		Cover:   Asset{Category: CategoryCover, URL: "u/old.png", Path: "old.png"},
		Screenshots: []Asset{
			{Category: CategoryScreenshot, URL: "u/o1.png", Path: "o1.png"},
			{Category: CategoryScreenshot, URL: "u/o2.png", Path: "o2.png"},
		},
	}
}

func TestComposeEditRetainsUnreplacedAssets(t *testing.T) {
	prior := priorAssets()
	batch := BatchResult{OverallSuccess: true, Results: []Result{result(CategoryCover, 0, "new.png")}}

	assets, err := Compose(batch, Supplied{Cover: true}, prior)
	require.NoError(t, err)

	assert.Equal(t, prior.Archive, assets.Archive)
	assert.Equal(t, "new.png", assets.Cover.Path)
	assert.Equal(t, prior.Screenshots, assets.Screenshots)

	gone := assets.Replaced(prior)
	require.Len(t, gone, 1)
	assert.Equal(t, "old.png", gone[0].Path)
	assert.Equal(t, CategoryCover, gone[0].Category)
}

func TestComposeEditReplacesScreenshotsWholesale(t *testing.T) {
	prior := priorAssets()
	batch := BatchResult{OverallSuccess: true, Results: []Result{result(CategoryScreenshot, 0, "n1.png")}}

	assets, err := Compose(batch, Supplied{Screenshots: 1}, prior)
	require.NoError(t, err)

	require.Len(t, assets.Screenshots, 1)
	assert.Equal(t, "n1.png", assets.Screenshots[0].Path)

	gone := assets.Replaced(prior)
	require.Len(t, gone, 2)
	assert.Equal(t, "o1.png", gone[0].Path)
	assert.Equal(t, "o2.png", gone[1].Path)
}

func TestComposeEditKeepsScreenshotsWhenEveryOneFailed(t *testing.T) {
	prior := priorAssets()
	batch := BatchResult{Errors: []ItemError{
		{File: "n1.png", Message: "upload failed"},
		{File: "n2.png", Message: "upload failed"},
	}}

	assets, err := Compose(batch, Supplied{Screenshots: 2}, prior)
	require.NoError(t, err)
	assert.Equal(t, prior.Screenshots, assets.Screenshots)
	assert.Empty(t, assets.Replaced(prior))
}

func TestBatchResultUploaded(t *testing.T) {
	batch := BatchResult{Results: []Result{
		result(CategoryArchive, 0, "g.zip"),
		result(CategoryScreenshot, 1, "s1.png"),
		result(CategoryScreenshot, 2, "s2.png"),
	}}
	assert.Equal(t, 2, batch.Uploaded(CategoryScreenshot))
	assert.Equal(t, 0, batch.Uploaded(CategoryCover))
}

func TestComposeEditFailsWhenSuppliedArchiveFailed(t *testing.T) {
	batch := BatchResult{Errors: []ItemError{{File: "new.zip", Message: "upload failed"}}}

	_, err := Compose(batch, Supplied{Archive: true}, priorAssets())
	assert.ErrorIs(t, err, ErrRequiredAssetMissing)
}

func TestAssetsAll(t *testing.T) {
	assert.Len(t, priorAssets().All(), 4)
	assert.Empty(t, Assets{}.All())
}
