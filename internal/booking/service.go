package booking

import (
	"errors"
	"fmt"

	"github.com/curb360/offersite/internal/catalog"
	"github.com/curb360/offersite/internal/offer"
	"github.com/curb360/offersite/internal/platform/httpx"
)

var (
	// ErrOfferExpired is returned for every booking request once the offer has ended.
	ErrOfferExpired = fmt.Errorf("booking: offer has ended: %w", httpx.ErrGone)
	// ErrOfferPending is returned before the first offer evaluation has been published.
	ErrOfferPending = fmt.Errorf("booking: offer state not yet known: %w", httpx.ErrUnavailable)
	// ErrUnknownPackage is returned for package ids outside the catalog.
	ErrUnknownPackage = fmt.Errorf("booking: unknown package: %w", httpx.ErrNotFound)
)

// Selection is the form chosen for a booking request.
type Selection struct {
	PackageID string           `json:"package_id,omitempty"`
	Package   *catalog.Package `json:"-"`
	Form      catalog.Form     `json:"form"`
}

// Service resolves booking requests against the shared offer state.
type Service struct {
	offer   offer.Reader
	catalog *catalog.Catalog
}

// NewService constructs a booking Service.
func NewService(reader offer.Reader, cat *catalog.Catalog) *Service {
	return &Service{offer: reader, catalog: cat}
}

// Open returns the booking form for packageID. An empty id selects the
// general form. Requests are refused once the offer has expired.
func (s *Service) Open(packageID string) (Selection, error) {
	if err := s.ensureActive(); err != nil {
		return Selection{}, err
	}
	sel := Selection{PackageID: packageID}
	if packageID != "" {
		pkg, err := s.catalog.Package(packageID)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: %q", ErrUnknownPackage, packageID)
		}
		sel.Package = &pkg
	}
	form, err := s.catalog.FormFor(packageID)
	if err != nil {
		return Selection{}, err
	}
	sel.Form = form
	return sel, nil
}

// MoreCredits returns the enquiry form for buyers who need a larger bundle.
func (s *Service) MoreCredits() (catalog.Form, error) {
	if err := s.ensureActive(); err != nil {
		return catalog.Form{}, err
	}
	return s.catalog.Form(catalog.FormMoreCredits)
}

func (s *Service) ensureActive() error {
	if s.offer == nil {
		return errors.New("booking: offer reader not configured")
	}
	snap, ok := s.offer.Snapshot()
	if !ok {
		return ErrOfferPending
	}
	if snap.Expired {
		return ErrOfferExpired
	}
	return nil
}
