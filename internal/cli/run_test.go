package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/internal/function"
	"github.com/samvad-hq/rss-opinion/pkg/providers"
)

func TestSelectSources(t *testing.T) {
	reg, err := providers.ParseRegistry([]byte(`[
  {"name": "El ABC", "rss_link": "https://abc.example/rss", "editorial": "right"},
  {"name": "El Pais", "rss_link": "https://pais.example/rss", "editorial": "left"}
]`), ".json")
	require.NoError(t, err)
	app := &function.App{Sources: reg}

	all, err := selectSources(app, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := selectSources(app, []string{"El Pais"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "elpais", one[0].Key)

	_, err = selectSources(app, []string{"La Razon"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "rssopinion dev (none)\n", out.String())
}
