package content_test

import (
	"testing"

	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	t.Run("converts headings and paragraphs", func(t *testing.T) {
		t.Parallel()

		html := `<h1>ModNPC Class Reference</h1><p>This class serves as a place for you to place all your properties.</p>`

		md, err := content.NewConverter().Convert(html)

		require.NoError(t, err)
		assert.Contains(t, md, "# ModNPC Class Reference")
		assert.Contains(t, md, "This class serves as a place")
	})

	t.Run("converts links", func(t *testing.T) {
		t.Parallel()

		html := `<p>See <a href="https://docs.tmodloader.net/docs/stable/class_mod_item.html">ModItem</a>.</p>`

		md, err := content.NewConverter().Convert(html)

		require.NoError(t, err)
		assert.Contains(t, md, "[ModItem](https://docs.tmodloader.net/docs/stable/class_mod_item.html)")
	})

	t.Run("converts member tables", func(t *testing.T) {
		t.Parallel()

		html := `<table><tr><th>Type</th><th>Member</th></tr><tr><td>int</td><td>lifeMax</td></tr></table>`

		md, err := content.NewConverter().Convert(html)

		require.NoError(t, err)
		assert.Contains(t, md, "lifeMax")
		assert.Contains(t, md, "|")
	})

	t.Run("blank input converts to empty string", func(t *testing.T) {
		t.Parallel()

		for _, in := range []string{"", "   ", "\n\t"} {
			md, err := content.NewConverter().Convert(in)

			require.NoError(t, err)
			assert.Empty(t, md)
		}
	})
}

func TestExtractAndConvert_BodyOnlyPage(t *testing.T) {
	t.Parallel()

	page := `<!DOCTYPE html><html><head><title>Item</title><style>p{}</style></head>
<body><h2>Item</h2><p>Represents an item in the world.</p><script>init();</script></body></html>`

	region, err := content.NewExtractor(content.Options{}).Extract(page)
	require.NoError(t, err)

	md, err := content.NewConverter().Convert(region)

	require.NoError(t, err)
	assert.NotEmpty(t, md)
	assert.Contains(t, md, "Represents an item in the world.")
	assert.NotContains(t, md, "init()")
}
