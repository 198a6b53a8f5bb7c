package resolve

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageURL_RelativePaths(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		base    string
		want    string
	}{
		{"root relative", `<img src="/a.png">`, "https://ex.com", "https://ex.com/a.png"},
		{"document relative", `<img src="img/a.png">`, "https://ex.com/blog/post.html", "https://ex.com/blog/img/a.png"},
		{"parent relative", `<img src="../a.png">`, "https://ex.com/blog/2024/post", "https://ex.com/blog/a.png"},
		{"protocol relative", `<img src="//cdn.ex.com/a.png">`, "https://ex.com", "https://cdn.ex.com/a.png"},
		{"query preserved", `<img src="a.png?w=200&h=100">`, "https://ex.com/", "https://ex.com/a.png?w=200&h=100"},
		{"fragment preserved", `<img src="sprite.svg#icon">`, "https://ex.com/", "https://ex.com/sprite.svg#icon"},
		{"absolute untouched", `<img src="http://other.org/b.jpg">`, "https://ex.com", "http://other.org/b.jpg"},
		{"bare percent", `<img src="img/50%.png">`, "https://ex.com/dir/page", "https://ex.com/dir/img/50%25.png"},
		{"bad escape", `<img src="a%zz.png">`, "https://ex.com/dir/page", "https://ex.com/dir/a%25zz.png"},
		{"valid and stray escapes", `<img src="50%20%.png">`, "https://ex.com/", "https://ex.com/50%20%25.png"},
		{"stray percent in fragment", `<img src="sprite.svg#a%">`, "https://ex.com/", "https://ex.com/sprite.svg#a%25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ImageURL(tt.snippet, tt.base)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			parsed, err := url.Parse(got)
			require.NoError(t, err)
			assert.True(t, parsed.IsAbs())
		})
	}
}

func TestImageURL_MatchesStandardResolution(t *testing.T) {
	base := "https://ex.com/docs/guide/index.html?lang=de"
	for _, src := range []string{"a.png", "./b/c.gif", "/d.webp", "../../e.jpg", "?v=2", "//x.org/y.png"} {
		got, ok := ImageURL(`<img src="`+src+`">`, base)
		require.True(t, ok, src)

		b, _ := url.Parse(base)
		r, _ := url.Parse(src)
		assert.Equal(t, b.ResolveReference(r).String(), got, src)
	}
}

func TestEscapeStrayPercents(t *testing.T) {
	assert.Equal(t, "a.png", escapeStrayPercents("a.png"))
	assert.Equal(t, "50%25.png", escapeStrayPercents("50%.png"))
	assert.Equal(t, "%41%25zz%25", escapeStrayPercents("%41%zz%"))
	assert.Equal(t, "%2f%25a", escapeStrayPercents("%2f%a"))
}

func TestImageURL_FirstImageWins(t *testing.T) {
	got, ok := ImageURL(`<a href="/"><img src="/first.png"><img src="/second.png"></a>`, "https://ex.com")
	require.True(t, ok)
	assert.Equal(t, "https://ex.com/first.png", got)
}

func TestImageURL_NoImage(t *testing.T) {
	for _, snippet := range []string{
		`<span class="icon"></span>`,
		`<input type="image" src="/btn.png">`,
		``,
		`<img alt="">`,
		`<img src="">`,
		`<img src="   ">`,
	} {
		_, ok := ImageURL(snippet, "https://ex.com")
		assert.False(t, ok, snippet)
	}
}

func TestImageURL_InvalidBase(t *testing.T) {
	_, ok := ImageURL(`<img src="/a.png">`, "not a url")
	assert.False(t, ok)
}

func TestFirstImageSource(t *testing.T) {
	src, ok := FirstImageSource(`<div><img class="hero" src=" /hero.jpg "></div>`)
	require.True(t, ok)
	assert.Equal(t, "/hero.jpg", src)
}
