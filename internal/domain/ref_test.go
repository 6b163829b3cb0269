package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImageRef(t *testing.T) {
	tests := []struct {
		id   string
		want ImageRef
	}{
		{"wp_media_w1_55", WordpressMediaRef{WebsiteID: "w1", MediaID: 55}},
		{"wp_media_site_with_underscores_7", WordpressMediaRef{WebsiteID: "site_with_underscores", MediaID: 7}},
		{"wp_post_w1_10_featured", WordpressPostRef{WebsiteID: "w1", PostID: 10, Featured: true}},
		{"wp_post_w1_10_content_2", WordpressPostRef{WebsiteID: "w1", PostID: 10, Index: 2}},
		{"content_c1_0", ContentRef{ContentID: "c1", Index: 0}},
		{"content_3f1c-aa_b_4", ContentRef{ContentID: "3f1c-aa_b", Index: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseImageRef(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.id, got.String())
		})
	}
}

func TestParseImageRefInvalid(t *testing.T) {
	ids := []string{
		"",
		"wp_media_w1",
		"wp_media_w1_abc",
		"wp_media_w1_0",
		"wp_post_w1_10",
		"wp_post_w1_10_content_x",
		"wp_post_w1_10_gallery_1",
		"content_c1",
		"content_c1_-1",
		"cloudinary_abc_1",
	}

	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			_, err := ParseImageRef(id)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidImageID))
			assert.True(t, IsKind(err, KindSource))
		})
	}
}

func TestRefKind(t *testing.T) {
	assert.Equal(t, SourceWordpress, WordpressMediaRef{}.Kind())
	assert.Equal(t, SourceWordpress, WordpressPostRef{}.Kind())
	assert.Equal(t, SourceContent, ContentRef{}.Kind())
}

func TestNewBatchResultBalances(t *testing.T) {
	outcomes := []ItemOutcome{
		{ImageID: "a", Result: &ItemResult{ImageID: "a", Status: ItemUpdated}},
		{ImageID: "b", Err: errors.New("boom")},
		{ImageID: "c", Result: &ItemResult{ImageID: "c", Status: ItemProcessedLocally}},
		{ImageID: "d"},
	}

	res := NewBatchResult(outcomes)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, res.Total, len(res.Results.Success)+len(res.Results.Failed))
	assert.Equal(t, []string{"b", "d"}, res.Results.Failed)
	assert.Equal(t, "a", res.Results.Success[0].ImageID)
	assert.Equal(t, "50.0%", res.SuccessRate)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "boom", res.Errors[0].Message)
}

func TestOptionsDefaults(t *testing.T) {
	opts := ProcessOptions{Action: ActionScramble}.WithDefaults()

	assert.Equal(t, DefaultQuality, opts.Quality)
	assert.Equal(t, DefaultMaxWidth, opts.MaxWidth)
	assert.Equal(t, DefaultScrambleIntensity, opts.Intensity())
	assert.Equal(t, WatermarkCenter, opts.WatermarkPosition)

	zero := ProcessOptions{Action: ActionScramble, ScrambleIntensity: new(int)}.WithDefaults()
	assert.Equal(t, 0, zero.Intensity())
}
