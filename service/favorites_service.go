package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"mtaaspace/domain"
	"mtaaspace/errors"
	"mtaaspace/store"
)

// FavoritesService owns the saved-listing set of whoever is bound to it.
// Snapshots of the full property are kept, insertion-ordered, and the whole
// set is written through to the store on every mutation. Whether the caller
// is allowed to favorite at all is the calling layer's problem, not this
// one's.
type FavoritesService struct {
	kv     domain.KeyValueStore
	bus    *domain.ChangeBus
	logger *logrus.Logger

	userID    string
	favorites []*domain.Property
}

func NewFavoritesService(kv domain.KeyValueStore, bus *domain.ChangeBus, logger *logrus.Logger) *FavoritesService {
	service := &FavoritesService{
		kv:     kv,
		bus:    bus,
		logger: logger,
	}
	service.reload(context.Background())
	return service
}

// Bind switches the service to another identity and reloads that identity's
// set. An empty id means no authenticated user; those favorites live under
// the unscoped key.
func (service *FavoritesService) Bind(ctx context.Context, userID string) {
	if service.userID == userID {
		return
	}
	service.userID = userID
	service.reload(ctx)
	service.bus.Publish(domain.FavoritesChanged)
}

func (service *FavoritesService) key() string {
	if service.userID == "" {
		return domain.KeyFavorites
	}
	return domain.KeyFavorites + ":" + service.userID
}

func (service *FavoritesService) reload(ctx context.Context) {
	service.favorites = nil
	if _, err := store.Load(ctx, service.kv, service.key(), &service.favorites); err != nil {
		service.logger.Printf("error loading favorites: %v", err)
		service.favorites = nil
	}
}

func (service *FavoritesService) persist(ctx context.Context) error {
	set := service.favorites
	if set == nil {
		set = []*domain.Property{}
	}
	return store.Save(ctx, service.kv, service.key(), set)
}

// Add saves the listing. Adding one that is already saved is a no-op.
func (service *FavoritesService) Add(ctx context.Context, property *domain.Property) error {
	if property == nil || domain.NormalizeID(property.ID) == "" {
		return errors.NewValidationError(errors.InvalidRequestFormatError)
	}
	if service.IsFavorite(property.ID) {
		return nil
	}

	service.favorites = append(service.favorites, property.Clone())
	if err := service.persist(ctx); err != nil {
		service.favorites = service.favorites[:len(service.favorites)-1]
		return err
	}

	service.bus.Publish(domain.FavoritesChanged)
	return nil
}

// Remove drops the listing from the set. Removing one that is not saved is
// a no-op.
func (service *FavoritesService) Remove(ctx context.Context, propertyID string) error {
	remaining := make([]*domain.Property, 0, len(service.favorites))
	for _, fav := range service.favorites {
		if domain.SameID(fav.ID, propertyID) {
			continue
		}
		remaining = append(remaining, fav)
	}
	if len(remaining) == len(service.favorites) {
		return nil
	}

	previous := service.favorites
	service.favorites = remaining
	if err := service.persist(ctx); err != nil {
		service.favorites = previous
		return err
	}

	service.bus.Publish(domain.FavoritesChanged)
	return nil
}

func (service *FavoritesService) IsFavorite(propertyID string) bool {
	for _, fav := range service.favorites {
		if domain.SameID(fav.ID, propertyID) {
			return true
		}
	}
	return false
}

// List returns the saved listings in the order they were added.
func (service *FavoritesService) List() []*domain.Property {
	result := make([]*domain.Property, 0, len(service.favorites))
	for _, fav := range service.favorites {
		result = append(result, fav.Clone())
	}
	return result
}
