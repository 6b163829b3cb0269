package htmlimg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const article = `<p>Intro</p>
<IMG class="hero" SRC='https://cdn.example.com/a.jpg' alt="first">
<p>text <img alt="src=fake" data-src="lazy.png"></p>
<script>var s = "<img src=ignored.png>";</script>
<img src=data:image/png;base64,iVBORw0KGgo= />
<img
  src="https://cdn.example.com/b.webp?x=1&amp;y=2" width="10">`

func TestFind(t *testing.T) {
	tags := Find(article)
	require.Len(t, tags, 4)

	assert.Equal(t, "https://cdn.example.com/a.jpg", tags[0].Src)
	assert.Equal(t, "", tags[1].Src)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", tags[2].Src)
	assert.Equal(t, "https://cdn.example.com/b.webp?x=1&y=2", tags[3].Src)

	for _, tag := range tags {
		assert.Equal(t, tag.Raw, article[tag.Start:tag.End])
	}
	assert.Equal(t, `<IMG class="hero" SRC='https://cdn.example.com/a.jpg' alt="first">`, tags[0].Raw)
}

func TestNthSkipsTagsWithoutSrc(t *testing.T) {
	tag, ok := Nth(article, 1)
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", tag.Src)

	_, ok = Nth(article, 3)
	assert.False(t, ok)
	_, ok = Nth(article, -1)
	assert.False(t, ok)
	_, ok = Nth("", 0)
	assert.False(t, ok)
}

func TestReplaceSrcPreservesDocument(t *testing.T) {
	tag, ok := Nth(article, 0)
	require.True(t, ok)

	out, err := ReplaceSrc(article, tag, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)

	want := `<IMG class="hero" SRC="data:image/jpeg;base64,AAAA" alt="first">`
	assert.Equal(t, article[:tag.Start]+want+article[tag.End:], out)

	replaced, ok := Nth(out, 0)
	require.True(t, ok)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", replaced.Src)
}

func TestReplaceSrcUnquotedAndMultiline(t *testing.T) {
	for _, index := range []int{1, 2} {
		tag, ok := Nth(article, index)
		require.True(t, ok)

		out, err := ReplaceSrc(article, tag, "new.png")
		require.NoError(t, err)

		got, ok := Nth(out, index)
		require.True(t, ok)
		assert.Equal(t, "new.png", got.Src)
		assert.Len(t, Find(out), 4)
	}
}

func TestReplaceSrcIgnoresLookalikeAttributes(t *testing.T) {
	body := `<img alt="a src=b" data-src="x" src="real.jpg">`
	tags := Find(body)
	require.Len(t, tags, 1)

	out, err := ReplaceSrc(body, tags[0], "swapped.jpg")
	require.NoError(t, err)
	assert.Equal(t, `<img alt="a src=b" data-src="x" src="swapped.jpg">`, out)
}

func TestReplaceSrcDetectsChangedDocument(t *testing.T) {
	tag, ok := Nth(article, 0)
	require.True(t, ok)

	_, err := ReplaceSrc("<p>rewritten</p>", tag, "x")
	assert.ErrorIs(t, err, ErrTagChanged)

	noSrc := Find(`<img alt="x">`)[0]
	_, err = ReplaceSrc(`<img alt="x">`, noSrc, "y")
	assert.ErrorIs(t, err, ErrNoSrc)
}

func TestDataURI(t *testing.T) {
	uri := EncodeDataURI("image/png", []byte{1, 2, 3, 250})
	assert.Equal(t, "data:image/png;base64,AQID+g==", uri)
	assert.True(t, IsDataURI(uri))
	assert.True(t, IsDataURI("DATA:image/gif;base64,R0lG"))
	assert.False(t, IsDataURI("https://example.com/data:x"))

	mime, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte{1, 2, 3, 250}, data)

	mime, data, err = DecodeDataURI("data:image/svg+xml,%3Csvg%3E")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", mime)
	assert.Equal(t, "<svg>", string(data))

	_, data, err = DecodeDataURI("data:image/png;base64,AQID\n+g")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 250}, data)

	_, _, err = DecodeDataURI("https://example.com/a.png")
	assert.ErrorIs(t, err, ErrNotDataURI)

	_, _, err = DecodeDataURI("data:image/png;base64")
	assert.Error(t, err)
}
