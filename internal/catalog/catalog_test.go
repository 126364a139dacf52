package catalog

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
brand:
  name: Acme
  site_url: https://acme.test
  logo_url: https://cdn.acme.test/logo.png
hero:
  headline: Save big
  primary_cta: Go
steps:
  - title: One
    body: Do it
forms:
  - key: general
    title: Book
    label: General form
    url: https://forms.acme.test/general
  - key: vip
    title: Book
    label: VIP form
    url: https://forms.acme.test/vip
packages:
  - id: a
    name: Alpha
    spend: 100
    back: 50
    form: vip
  - id: b
    name: Beta
    spend: 200
    back: 100
    form: general
`

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	require.Len(t, c.Packages, 3)
	jump, err := c.Package("p1")
	require.NoError(t, err)
	assert.Equal(t, "The Jumpstart", jump.Name)
	assert.Equal(t, 250, jump.Spend)
	assert.Equal(t, 125, jump.Back)

	featured := 0
	for _, p := range c.Packages {
		if p.Featured {
			featured++
			assert.Equal(t, "p3", p.ID)
		}
	}
	assert.Equal(t, 1, featured)
	assert.Len(t, c.Testimonials, 6)
	assert.Len(t, c.FAQs, 4)
	assert.Len(t, c.Steps, 3)
}

func TestDefaultCatalogFormRouting(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	jump, err := c.FormFor("p1")
	require.NoError(t, err)
	assert.Equal(t, "jumpstart", jump.Key)
	assert.Contains(t, jump.Label, "Jumpstart")

	for _, id := range []string{"p2", "p3", ""} {
		f, err := c.FormFor(id)
		require.NoError(t, err)
		assert.Equal(t, FormGeneral, f.Key, "selection %q", id)
	}

	_, err = c.FormFor("p9")
	assert.ErrorIs(t, err, ErrUnknownPackage)

	more, err := c.Form(FormMoreCredits)
	require.NoError(t, err)
	assert.Contains(t, more.URL, "WantmorecreditsForm")
}

func TestLoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{"offer.yaml": &fstest.MapFile{Data: []byte(minimal)}}
	c, err := Load(fsys, "offer.yaml")
	require.NoError(t, err)

	f, err := c.FormFor("a")
	require.NoError(t, err)
	assert.Equal(t, "vip", f.Key)
	assert.Equal(t, []string{"https://forms.acme.test"}, c.FormHosts())
	assert.Equal(t, []string{"https://cdn.acme.test"}, c.ImageHosts())

	_, err = Load(fsys, "missing.yaml")
	assert.Error(t, err)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"malformed yaml":   "brand: [",
		"unknown form":     minimal + "  - id: c\n    name: Gamma\n    spend: 1\n    back: 1\n    form: nope\n",
		"duplicate id":     minimal + "  - id: a\n    name: Again\n    spend: 1\n    back: 1\n    form: general\n",
		"zero spend":       minimal + "  - id: c\n    name: Gamma\n    spend: 0\n    back: 1\n    form: general\n",
		"plain http form":  strings.Replace(minimal, "https://forms.acme.test/general", "http://forms.acme.test/general", 1),
		"no general form":  strings.Replace(strings.Replace(minimal, "key: general", "key: other", 1), "form: general", "form: vip", 1),
		"missing packages": "brand:\n  name: Acme\n  site_url: https://acme.test\n  logo_url: https://acme.test/l.png\nhero:\n  headline: h\n  primary_cta: c\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}
