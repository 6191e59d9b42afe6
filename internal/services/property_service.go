// Package services – PropertyService
//
// This file implements PropertyService, which owns the lifecycle of property
// listings. It validates listing fields, enforces owner-only mutation,
// applies the public listing filters, and resolves stored media keys into
// time-limited URLs before anything reaches a client. Price bounds are
// compared as exact decimals in this layer because the column is an
// exact-precision string, never a float.
//
// Service-level errors (ErrPropertyNotFound, ErrForbidden, ValidationError)
// are returned for predictable cases so handlers can map them to HTTP
// results consistently.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hklets/go-rental-backend/internal/domain"
	"github.com/hklets/go-rental-backend/internal/repo"
	"github.com/hklets/go-rental-backend/internal/storage"
)

// PropertyRepo defines the repository contract required by PropertyService.
type PropertyRepo interface {
	Create(ctx context.Context, db *gorm.DB, p *domain.Property) error
	Get(ctx context.Context, db *gorm.DB, id string) (*domain.Property, error)
	List(ctx context.Context, db *gorm.DB, q repo.PropertyQuery) ([]domain.Property, error)
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Property, error)
	Save(ctx context.Context, db *gorm.DB, p *domain.Property) error
	Delete(ctx context.Context, db *gorm.DB, id string) error
}

// PropertyService provides listing CRUD with owner-only mutation and
// server-side media resolution.
type PropertyService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the property repository used by this service.
	Repo PropertyRepo
	// Resolver turns stable media keys into presigned URLs on reads.
	Resolver storage.Resolver
	// Bucket is used to normalize legacy URL-form media references.
	Bucket string
}

// PropertyInput carries the fields of a create request. OwnerID is never
// part of it; ownership always comes from the resolved session.
type PropertyInput struct {
	Title          string
	Description    string
	Price          string
	Size           int
	District       string
	Equipment      string
	Photos         []string
	VirtualTourKey *string
}

// PropertyPatch is a partial update; nil fields are left untouched.
// An empty VirtualTourKey clears the stored key.
type PropertyPatch struct {
	Title          *string
	Description    *string
	Price          *string
	Size           *int
	District       *string
	Equipment      *string
	Photos         *[]string
	VirtualTourKey *string
}

// PropertyFilter is the public listing filter set. All bounds are inclusive.
type PropertyFilter struct {
	District string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	MinSize  *int
	MaxSize  *int
}

// PropertyView is the client-facing shape of a property: the stored record
// with media keys replaced by freshly resolved URLs.
type PropertyView struct {
	domain.Property
	Photos         []string `json:"photos"`
	VirtualTourURL string   `json:"virtual_tour_url,omitempty"`
}

// List returns all properties matching the filter, media resolved. A filter
// district outside the fixed enumeration is silently dropped rather than
// erroring; price bounds are applied here as exact decimals.
func (s *PropertyService) List(ctx context.Context, f PropertyFilter) ([]PropertyView, error) {
	tr := otel.Tracer("services/PropertyService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("filter.district", f.District)),
	)
	defer span.End()

	district := f.District
	if district != "" && !domain.ValidDistrict(district) {
		district = ""
	}

	props, err := s.Repo.List(ctx, s.DB, repo.PropertyQuery{
		District: district,
		MinSize:  f.MinSize,
		MaxSize:  f.MaxSize,
	})
	if err != nil {
		return nil, err
	}

	out := make([]PropertyView, 0, len(props))
	for i := range props {
		if !priceInRange(props[i].Price, f.MinPrice, f.MaxPrice) {
			continue
		}
		out = append(out, s.view(ctx, &props[i]))
	}
	return out, nil
}

// Get returns a single property by ID, media resolved.
func (s *PropertyService) Get(ctx context.Context, id string) (*PropertyView, error) {
	p, err := s.Repo.Get(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	v := s.view(ctx, p)
	return &v, nil
}

// ListByOwner returns all of ownerID's properties, media resolved.
func (s *PropertyService) ListByOwner(ctx context.Context, ownerID string) ([]PropertyView, error) {
	props, err := s.Repo.ListByOwner(ctx, s.DB, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]PropertyView, 0, len(props))
	for i := range props {
		out = append(out, s.view(ctx, &props[i]))
	}
	return out, nil
}

// Create validates the input and persists a new listing owned by ownerID.
// Media references are normalized to stable keys before they are stored;
// the database never holds URL-form values.
func (s *PropertyService) Create(ctx context.Context, ownerID string, in PropertyInput) (*PropertyView, error) {
	tr := otel.Tracer("services/PropertyService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", ownerID)),
	)
	defer span.End()

	var invalid []string
	if strings.TrimSpace(in.Title) == "" {
		invalid = append(invalid, "title")
	}
	if in.Size < 1 {
		invalid = append(invalid, "size")
	}
	if !domain.ValidDistrict(in.District) {
		invalid = append(invalid, "district")
	}
	if _, err := decimal.NewFromString(in.Price); err != nil {
		invalid = append(invalid, "price")
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{Fields: invalid}
	}

	p := &domain.Property{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price,
		Size:        in.Size,
		District:    in.District,
		Equipment:   in.Equipment,
		Photos:      s.normalizeKeys(in.Photos),
	}
	if in.VirtualTourKey != nil && *in.VirtualTourKey != "" {
		k := storage.NormalizeKey(*in.VirtualTourKey, s.Bucket)
		p.VirtualTourKey = &k
	}

	if err := s.Repo.Create(ctx, s.DB, p); err != nil {
		return nil, err
	}
	v := s.view(ctx, p)
	return &v, nil
}

// Update applies a partial patch to a property owned by ownerID. Fields
// absent from the patch are left untouched; changed fields are re-validated.
func (s *PropertyService) Update(ctx context.Context, id, ownerID string, patch PropertyPatch) (*PropertyView, error) {
	p, err := s.Repo.Get(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	var invalid []string
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			invalid = append(invalid, "title")
		} else {
			p.Title = strings.TrimSpace(*patch.Title)
		}
	}
	if patch.Size != nil {
		if *patch.Size < 1 {
			invalid = append(invalid, "size")
		} else {
			p.Size = *patch.Size
		}
	}
	if patch.District != nil {
		if !domain.ValidDistrict(*patch.District) {
			invalid = append(invalid, "district")
		} else {
			p.District = *patch.District
		}
	}
	if patch.Price != nil {
		if _, err := decimal.NewFromString(*patch.Price); err != nil {
			invalid = append(invalid, "price")
		} else {
			p.Price = *patch.Price
		}
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{Fields: invalid}
	}

	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Equipment != nil {
		p.Equipment = *patch.Equipment
	}
	if patch.Photos != nil {
		p.Photos = s.normalizeKeys(*patch.Photos)
	}
	if patch.VirtualTourKey != nil {
		if *patch.VirtualTourKey == "" {
			p.VirtualTourKey = nil
		} else {
			k := storage.NormalizeKey(*patch.VirtualTourKey, s.Bucket)
			p.VirtualTourKey = &k
		}
	}

	if err := s.Repo.Save(ctx, s.DB, p); err != nil {
		return nil, err
	}
	v := s.view(ctx, p)
	return &v, nil
}

// Delete removes a property owned by ownerID. Dependent chats and messages
// are removed by FK cascade.
func (s *PropertyService) Delete(ctx context.Context, id, ownerID string) error {
	p, err := s.Repo.Get(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return ErrPropertyNotFound
		}
		return err
	}
	if p.OwnerID != ownerID {
		return ErrForbidden
	}
	return s.Repo.Delete(ctx, s.DB, id)
}

// view resolves a property's media keys into presigned URLs. Resolution
// failures degrade to the raw key so a storage hiccup never hides a listing.
func (s *PropertyService) view(ctx context.Context, p *domain.Property) PropertyView {
	v := PropertyView{Property: *p, Photos: make([]string, 0, len(p.Photos))}
	for _, key := range p.Photos {
		v.Photos = append(v.Photos, s.resolve(ctx, key))
	}
	if p.VirtualTourKey != nil && *p.VirtualTourKey != "" {
		v.VirtualTourURL = s.resolve(ctx, *p.VirtualTourKey)
	}
	return v
}

func (s *PropertyService) resolve(ctx context.Context, key string) string {
	key = storage.NormalizeKey(key, s.Bucket)
	if s.Resolver == nil {
		return key
	}
	url, err := s.Resolver.Resolve(ctx, key)
	if err != nil {
		return key
	}
	return url
}

// normalizeKeys maps every stored photo reference to key form, tolerating
// legacy URL values in the input.
func (s *PropertyService) normalizeKeys(values []string) domain.StringList {
	out := make(domain.StringList, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, storage.NormalizeKey(v, s.Bucket))
		}
	}
	return out
}

// priceInRange compares the stored decimal string against inclusive bounds.
// An unparsable stored price (should not happen; writes are validated) is
// excluded from bounded queries rather than treated as zero.
func priceInRange(price string, min, max *decimal.Decimal) bool {
	if min == nil && max == nil {
		return true
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return false
	}
	if min != nil && d.Cmp(*min) < 0 {
		return false
	}
	if max != nil && d.Cmp(*max) > 0 {
		return false
	}
	return true
}

// isNotFound reports whether err is the repo's missing-record error.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
