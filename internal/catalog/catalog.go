// Package catalog loads the offer's packages, forms and page copy.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/curb360/offersite/web"
)

// DefaultPath is the location of the catalog inside web.Content.
const DefaultPath = "content/offer.yaml"

const (
	// FormGeneral is used when no package, or a package without its own form, is selected.
	FormGeneral = "general"
	// FormMoreCredits is the "want more credits" enquiry form.
	FormMoreCredits = "more_credits"
)

var (
	// ErrInvalidCatalog indicates the catalog failed validation.
	ErrInvalidCatalog = errors.New("catalog: invalid")
	// ErrUnknownPackage indicates a package id outside the catalog.
	ErrUnknownPackage = errors.New("catalog: unknown package")
	// ErrUnknownForm indicates a form key outside the catalog.
	ErrUnknownForm = errors.New("catalog: unknown form")
)

// Brand holds the company identity shown in the navbar and footer.
type Brand struct {
	Name    string `yaml:"name" validate:"required"`
	Tagline string `yaml:"tagline"`
	SiteURL string `yaml:"site_url" validate:"required,url"`
	LogoURL string `yaml:"logo_url" validate:"required,url"`
	About   string `yaml:"about"`
}

// Hero is the top-of-page copy.
type Hero struct {
	Badge         string `yaml:"badge"`
	Headline      string `yaml:"headline" validate:"required"`
	Subheadline   string `yaml:"subheadline"`
	Lead          string `yaml:"lead"`
	PrimaryCTA    string `yaml:"primary_cta" validate:"required"`
	SecondaryCTA  string `yaml:"secondary_cta"`
	FinePrint     string `yaml:"fine_print"`
	BackgroundURL string `yaml:"background_url" validate:"omitempty,url"`
}

// NavItem is an in-page navigation link.
type NavItem struct {
	Label string `yaml:"label" validate:"required"`
	Href  string `yaml:"href" validate:"required"`
}

// Step is one explainer step.
type Step struct {
	Title string `yaml:"title" validate:"required"`
	Body  string `yaml:"body" validate:"required"`
}

// Form is a third-party hosted form embedded in a frame.
type Form struct {
	Key   string `yaml:"key" json:"key" validate:"required"`
	Title string `yaml:"title" json:"title" validate:"required"`
	Label string `yaml:"label" json:"label" validate:"required"`
	URL   string `yaml:"url" json:"url" validate:"required,url,startswith=https://"`
}

// Package is a pricing tier.
type Package struct {
	ID          string   `yaml:"id" validate:"required"`
	Name        string   `yaml:"name" validate:"required"`
	Spend       int      `yaml:"spend" validate:"gt=0"`
	Back        int      `yaml:"back" validate:"gt=0"`
	Form        string   `yaml:"form" validate:"required"`
	Icon        string   `yaml:"icon"`
	Featured    bool     `yaml:"featured"`
	Description string   `yaml:"description"`
	Features    []string `yaml:"features" validate:"dive,required"`
}

// Testimonial is a customer quote.
type Testimonial struct {
	ID      string `yaml:"id" validate:"required"`
	Name    string `yaml:"name" validate:"required"`
	Role    string `yaml:"role"`
	Content string `yaml:"content" validate:"required"`
	Avatar  string `yaml:"avatar" validate:"omitempty,url"`
}

// FAQ is a question and answer pair.
type FAQ struct {
	Question string `yaml:"question" validate:"required"`
	Answer   string `yaml:"answer" validate:"required"`
}

// Contact is a footer contact line.
type Contact struct {
	Label string `yaml:"label" validate:"required"`
	Value string `yaml:"value" validate:"required"`
	Href  string `yaml:"href"`
}

// Catalog is the full page content.
type Catalog struct {
	Brand        Brand         `yaml:"brand"`
	Hero         Hero          `yaml:"hero"`
	Nav          []NavItem     `yaml:"nav" validate:"dive"`
	Steps        []Step        `yaml:"steps" validate:"min=1,dive"`
	Forms        []Form        `yaml:"forms" validate:"min=1,dive"`
	Packages     []Package     `yaml:"packages" validate:"min=1,dive"`
	Terms        string        `yaml:"terms"`
	Testimonials []Testimonial `yaml:"testimonials" validate:"dive"`
	FAQs         []FAQ         `yaml:"faqs" validate:"dive"`
	Contacts     []Contact     `yaml:"contacts" validate:"dive"`

	packages map[string]Package
	forms    map[string]Form
}

// Default loads the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(web.Content, DefaultPath)
}

// Load reads and validates a catalog from fsys.
func Load(fsys fs.FS, path string) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates YAML catalog content.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c.forms = make(map[string]Form, len(c.Forms))
	for _, f := range c.Forms {
		if _, dup := c.forms[f.Key]; dup {
			return fmt.Errorf("%w: duplicate form %q", ErrInvalidCatalog, f.Key)
		}
		c.forms[f.Key] = f
	}
	if _, ok := c.forms[FormGeneral]; !ok {
		return fmt.Errorf("%w: missing %q form", ErrInvalidCatalog, FormGeneral)
	}

	c.packages = make(map[string]Package, len(c.Packages))
	for _, p := range c.Packages {
		if _, dup := c.packages[p.ID]; dup {
			return fmt.Errorf("%w: duplicate package %q", ErrInvalidCatalog, p.ID)
		}
		if _, ok := c.forms[p.Form]; !ok {
			return fmt.Errorf("%w: package %q references unknown form %q", ErrInvalidCatalog, p.ID, p.Form)
		}
		c.packages[p.ID] = p
	}
	return nil
}

// Package returns the package with id.
func (c *Catalog) Package(id string) (Package, error) {
	p, ok := c.packages[id]
	if !ok {
		return Package{}, fmt.Errorf("%w: %q", ErrUnknownPackage, id)
	}
	return p, nil
}

// Form returns the form registered under key.
func (c *Catalog) Form(key string) (Form, error) {
	f, ok := c.forms[key]
	if !ok {
		return Form{}, fmt.Errorf("%w: %q", ErrUnknownForm, key)
	}
	return f, nil
}

// FormFor resolves the booking form for a package selection. An empty
// selection gets the general form.
func (c *Catalog) FormFor(packageID string) (Form, error) {
	if packageID == "" {
		return c.Form(FormGeneral)
	}
	p, err := c.Package(packageID)
	if err != nil {
		return Form{}, err
	}
	return c.Form(p.Form)
}

// FormHosts lists the origins of all embedded forms, sorted.
func (c *Catalog) FormHosts() []string {
	urls := make([]string, 0, len(c.Forms))
	for _, f := range c.Forms {
		urls = append(urls, f.URL)
	}
	return origins(urls)
}

// ImageHosts lists the origins of remote images, sorted.
func (c *Catalog) ImageHosts() []string {
	urls := []string{c.Brand.LogoURL, c.Hero.BackgroundURL}
	for _, t := range c.Testimonials {
		urls = append(urls, t.Avatar)
	}
	return origins(urls)
}

func origins(urls []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}
	sort.Strings(out)
	return out
}
