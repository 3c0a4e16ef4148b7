package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"mtaaspace/domain"
	"mtaaspace/errors"
	"mtaaspace/store"
)

func newPropertyService() (*PropertyService, *domain.ChangeBus) {
	bus := domain.NewChangeBus()
	kv := store.NewMemoryStore()
	propertyStore := store.NewPropertyKVStore(kv, logrus.New())
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	return NewPropertyService(propertyStore, bus, tracer, logrus.New()), bus
}

func draft(title string) *domain.PropertyDraft {
	price := int64(25000)
	bedrooms := 2
	bathrooms := 1.5
	area := 80.0
	return &domain.PropertyDraft{
		Title:     title,
		Price:     &price,
		Location:  "Kilimani, Nairobi",
		Bedrooms:  &bedrooms,
		Bathrooms: &bathrooms,
		Area:      &area,
		Kind:      domain.Apartment,
		AgentID:   "agent-1",
	}
}

func TestCreate_ThenGetByIDReturnsSameRecord(t *testing.T) {
	service, _ := newPropertyService()
	ctx := context.Background()

	created, err := service.Create(ctx, draft("Two bedroom in Kilimani"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	found, err := service.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestCreate_AppliesDefaults(t *testing.T) {
	service, _ := newPropertyService()

	created, err := service.Create(context.Background(), draft("Studio in Ngara"))
	require.NoError(t, err)

	assert.True(t, created.Available)
	assert.False(t, created.Featured, "new listings are not auto-featured")
	assert.Equal(t, []string{domain.PlaceholderImage}, created.Images)
	assert.NotNil(t, created.Amenities)
	assert.Empty(t, created.Amenities)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCreate_MissingTitleFailsAndLeavesCollectionUntouched(t *testing.T) {
	service, _ := newPropertyService()
	ctx := context.Background()

	_, err := service.Create(ctx, draft(""))
	assert.True(t, errors.IsValidation(err))

	all, err := service.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreate_MissingNumericFieldFails(t *testing.T) {
	service, _ := newPropertyService()

	d := draft("No price")
	d.Price = nil
	_, err := service.Create(context.Background(), d)
	assert.True(t, errors.IsValidation(err))
}

func TestCreate_ZeroBedroomsIsValid(t *testing.T) {
	service, _ := newPropertyService()

	d := draft("Bedsitter in Kasarani")
	zero := 0
	d.Bedrooms = &zero
	d.Kind = domain.Bedsitter

	created, err := service.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 0, created.Bedrooms)
}

func TestGetByID_BlankIDIsNotFoundWithoutLookup(t *testing.T) {
	service, _ := newPropertyService()

	_, err := service.GetByID(context.Background(), "  ")
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdate_MergesPartialData(t *testing.T) {
	service, _ := newPropertyService()
	ctx := context.Background()

	created, err := service.Create(ctx, draft("Two bedroom in Kilimani"))
	require.NoError(t, err)

	newPrice := int64(27000)
	updated, err := service.Update(ctx, created.ID, &domain.PropertyPatch{Price: &newPrice})
	require.NoError(t, err)

	assert.Equal(t, int64(27000), updated.Price)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.Location, updated.Location)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, created.ID, updated.ID)
}

func TestUpdate_MissingIDIsNotFound(t *testing.T) {
	service, _ := newPropertyService()

	title := "ghost"
	_, err := service.Update(context.Background(), "ghost", &domain.PropertyPatch{Title: &title})
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdate_CannotBreakInvariants(t *testing.T) {
	service, _ := newPropertyService()
	ctx := context.Background()

	created, err := service.Create(ctx, draft("Two bedroom in Kilimani"))
	require.NoError(t, err)

	negative := int64(-5)
	_, err = service.Update(ctx, created.ID, &domain.PropertyPatch{Price: &negative})
	assert.True(t, errors.IsValidation(err))

	unchanged, err := service.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Price, unchanged.Price)
}

func TestRemove_SecondCallReportsNotFound(t *testing.T) {
	service, _ := newPropertyService()
	ctx := context.Background()

	created, err := service.Create(ctx, draft("To remove"))
	require.NoError(t, err)

	require.NoError(t, service.Remove(ctx, created.ID))
	err = service.Remove(ctx, created.ID)
	assert.True(t, errors.IsNotFound(err))

	all, err := service.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFeatured_ReturnsNewestAvailableFirst(t *testing.T) {
	bus := domain.NewChangeBus()
	kv := store.NewMemoryStore()
	propertyStore := store.NewPropertyKVStore(kv, logrus.New())
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	service := NewPropertyService(propertyStore, bus, tracer, logrus.New())
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		_, err := propertyStore.Insert(ctx, &domain.Property{
			Title:     fmt.Sprintf("listing %d", i),
			Available: true,
			Images:    []string{domain.PlaceholderImage},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	featured, err := service.Featured(ctx, 0)
	require.NoError(t, err)
	require.Len(t, featured, 6)

	assert.Equal(t, "listing 7", featured[0].Title)
	assert.Equal(t, "listing 2", featured[5].Title)
	for i := 1; i < len(featured); i++ {
		assert.False(t, featured[i].CreatedAt.After(featured[i-1].CreatedAt))
	}
}

func TestFeatured_SkipsUnavailable(t *testing.T) {
	service, _ := newPropertyService()
	ctx := context.Background()

	created, err := service.Create(ctx, draft("Soon unavailable"))
	require.NoError(t, err)

	unavailable := false
	_, err = service.Update(ctx, created.ID, &domain.PropertyPatch{Available: &unavailable})
	require.NoError(t, err)

	featured, err := service.Featured(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, featured)
}

func TestList_AppliesFilter(t *testing.T) {
	service, _ := newPropertyService()
	ctx := context.Background()

	_, err := service.Create(ctx, draft("Two bedroom in Kilimani"))
	require.NoError(t, err)

	d := draft("Bedsitter in Kasarani")
	cheap := int64(12000)
	zero := 0
	d.Price = &cheap
	d.Bedrooms = &zero
	d.Kind = domain.Bedsitter
	d.Location = "Kasarani"
	_, err = service.Create(ctx, d)
	require.NoError(t, err)

	result, err := service.List(ctx, &domain.SearchFilter{MaxPrice: 15000})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Bedsitter in Kasarani", result[0].Title)
}

func TestByAgent(t *testing.T) {
	service, _ := newPropertyService()
	ctx := context.Background()

	_, err := service.Create(ctx, draft("Listing A"))
	require.NoError(t, err)

	d := draft("Listing B")
	d.AgentID = "agent-2"
	_, err = service.Create(ctx, d)
	require.NoError(t, err)

	owned, err := service.ByAgent(ctx, "agent-1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Listing A", owned[0].Title)
}

func TestMutationsPublishChanges(t *testing.T) {
	service, bus := newPropertyService()
	ctx := context.Background()

	changes := 0
	bus.Subscribe(func(kind domain.ChangeKind) {
		if kind == domain.PropertiesChanged {
			changes++
		}
	})

	created, err := service.Create(ctx, draft("Watched listing"))
	require.NoError(t, err)
	require.NoError(t, service.Remove(ctx, created.ID))

	assert.Equal(t, 2, changes)
}
