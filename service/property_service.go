package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mtaaspace/domain"
	"mtaaspace/errors"
)

const DefaultFeaturedLimit = 6

// PropertyService owns the listing collection: CRUD with validation and
// defaults, search filtering, and the derived featured view. New listings
// are not auto-featured; an agent flags them explicitly via Update.
type PropertyService struct {
	store    domain.PropertyStore
	bus      *domain.ChangeBus
	tracer   trace.Tracer
	logger   *logrus.Logger
	validate *validator.Validate
}

func NewPropertyService(store domain.PropertyStore, bus *domain.ChangeBus, tracer trace.Tracer, logger *logrus.Logger) *PropertyService {
	return &PropertyService{
		store:    store,
		bus:      bus,
		tracer:   tracer,
		logger:   logger,
		validate: validator.New(),
	}
}

// List returns the properties matching filter in stable collection order. A
// nil or empty filter returns everything.
func (service *PropertyService) List(ctx context.Context, filter *domain.SearchFilter) ([]*domain.Property, error) {
	ctx, span := service.tracer.Start(ctx, "PropertyService.List")
	defer span.End()

	properties, err := service.store.GetAll(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if filter.IsEmpty() {
		return properties, nil
	}
	return filter.Apply(properties), nil
}

// GetByID looks a listing up by its identifier, tolerating numeric and
// string forms of the same id. A blank id is answered immediately with
// not-found, no lookup attempted.
func (service *PropertyService) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	ctx, span := service.tracer.Start(ctx, "PropertyService.GetByID")
	defer span.End()

	id = domain.NormalizeID(id)
	if id == "" {
		return nil, errors.NewNotFoundError("property", id)
	}
	return service.store.GetByID(ctx, id)
}

func (service *PropertyService) Create(ctx context.Context, draft *domain.PropertyDraft) (*domain.Property, error) {
	ctx, span := service.tracer.Start(ctx, "PropertyService.Create")
	defer span.End()

	if draft == nil {
		return nil, errors.NewValidationError(errors.InvalidRequestFormatError)
	}
	if err := service.validate.Struct(draft); err != nil {
		return nil, errors.NewValidationError("%s", draftValidationMessage(err))
	}

	property := &domain.Property{
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Price:       *draft.Price,
		Location:    strings.TrimSpace(draft.Location),
		Bedrooms:    *draft.Bedrooms,
		Bathrooms:   *draft.Bathrooms,
		Area:        *draft.Area,
		Kind:        draft.Kind,
		LeaseTerm:   draft.LeaseTerm,
		Deposit:     draft.Deposit,
		Amenities:   append([]string{}, draft.Amenities...),
		Images:      append([]string(nil), draft.Images...),
		Featured:    false,
		Available:   true,
		CreatedAt:   time.Now().UTC(),
		AgentID:     draft.AgentID,
	}
	if len(property.Images) == 0 {
		property.Images = []string{domain.PlaceholderImage}
	}

	stored, err := service.store.Insert(ctx, property)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.bus.Publish(domain.PropertiesChanged)
	return stored, nil
}

// Update merges the patch over the stored record; fields absent from the
// patch are preserved. The merged record must still satisfy the creation
// invariants.
func (service *PropertyService) Update(ctx context.Context, id string, patch *domain.PropertyPatch) (*domain.Property, error) {
	ctx, span := service.tracer.Start(ctx, "PropertyService.Update")
	defer span.End()

	if patch == nil {
		return nil, errors.NewValidationError(errors.InvalidRequestFormatError)
	}

	existing, err := service.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	merged := existing.Clone()
	patch.Apply(merged)
	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt

	if err := validateInvariants(merged); err != nil {
		return nil, err
	}

	stored, err := service.store.Update(ctx, merged)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.bus.Publish(domain.PropertiesChanged)
	return stored, nil
}

func (service *PropertyService) Remove(ctx context.Context, id string) error {
	ctx, span := service.tracer.Start(ctx, "PropertyService.Remove")
	defer span.End()

	id = domain.NormalizeID(id)
	if id == "" {
		return errors.NewNotFoundError("property", id)
	}

	if err := service.store.Delete(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	service.bus.Publish(domain.PropertiesChanged)
	return nil
}

// Featured is the derived view: available listings, newest first, truncated
// to limit (default 6). It is recomputed from the collection on every call,
// never persisted on its own.
func (service *PropertyService) Featured(ctx context.Context, limit int) ([]*domain.Property, error) {
	ctx, span := service.tracer.Start(ctx, "PropertyService.Featured")
	defer span.End()

	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}

	properties, err := service.store.GetAll(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	available := make([]*domain.Property, 0, len(properties))
	for _, p := range properties {
		if p.Available {
			available = append(available, p)
		}
	}

	sort.SliceStable(available, func(i, j int) bool {
		return available[i].CreatedAt.After(available[j].CreatedAt)
	})

	if len(available) > limit {
		available = available[:limit]
	}
	return available, nil
}

// ByAgent returns the listings owned by one agent, in collection order.
func (service *PropertyService) ByAgent(ctx context.Context, agentID string) ([]*domain.Property, error) {
	ctx, span := service.tracer.Start(ctx, "PropertyService.ByAgent")
	defer span.End()

	properties, err := service.store.GetAll(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	owned := make([]*domain.Property, 0)
	for _, p := range properties {
		if domain.SameID(p.AgentID, agentID) {
			owned = append(owned, p)
		}
	}
	return owned, nil
}

func validateInvariants(p *domain.Property) error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.NewValidationError("Title cannot be empty")
	}
	if strings.TrimSpace(p.Location) == "" {
		return errors.NewValidationError("Location cannot be empty")
	}
	if p.Price < 0 {
		return errors.NewValidationError("Price cannot be negative")
	}
	if p.Bedrooms < 0 {
		return errors.NewValidationError("Bedrooms cannot be negative")
	}
	if p.Bathrooms < 0 {
		return errors.NewValidationError("Bathrooms cannot be negative")
	}
	if p.Area <= 0 {
		return errors.NewValidationError("Area must be positive")
	}
	if len(p.Images) == 0 {
		return errors.NewValidationError("Images cannot be empty")
	}
	return nil
}

func draftValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.InvalidRequestFormatError
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return e.Field() + " cannot be empty"
	case "gte":
		return e.Field() + " cannot be negative"
	case "gt":
		return e.Field() + " must be positive"
	case "oneof":
		return "Type must be one of apartment, house, studio, bedsitter, maisonette, townhouse"
	default:
		return errors.InvalidRequestFormatError
	}
}
