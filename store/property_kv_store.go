package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mtaaspace/domain"
	"mtaaspace/errors"
)

// PropertyKVStore keeps the whole listing collection as one JSON array under
// KeyProperties, insertion-ordered. Every mutation rewrites the array, so a
// failed write leaves the stored collection exactly as it was.
type PropertyKVStore struct {
	kv     domain.KeyValueStore
	logger *logrus.Logger
}

func NewPropertyKVStore(kv domain.KeyValueStore, logger *logrus.Logger) *PropertyKVStore {
	return &PropertyKVStore{
		kv:     kv,
		logger: logger,
	}
}

func (s *PropertyKVStore) load(ctx context.Context) ([]*domain.Property, error) {
	var properties []*domain.Property
	if _, err := Load(ctx, s.kv, domain.KeyProperties, &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

func (s *PropertyKVStore) save(ctx context.Context, properties []*domain.Property) error {
	return Save(ctx, s.kv, domain.KeyProperties, properties)
}

func (s *PropertyKVStore) GetAll(ctx context.Context) ([]*domain.Property, error) {
	return s.load(ctx)
}

func (s *PropertyKVStore) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	properties, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range properties {
		if domain.SameID(p.ID, id) {
			return p, nil
		}
	}
	return nil, errors.NewNotFoundError("property", id)
}

func (s *PropertyKVStore) Insert(ctx context.Context, property *domain.Property) (*domain.Property, error) {
	properties, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if property.ID == "" {
		property.ID = uuid.NewString()
	}
	for _, p := range properties {
		if domain.SameID(p.ID, property.ID) {
			property.ID = uuid.NewString()
			break
		}
	}

	properties = append(properties, property)
	if err := s.save(ctx, properties); err != nil {
		s.logger.Printf("error persisting property %s: %v", property.ID, err)
		return nil, err
	}
	return property, nil
}

func (s *PropertyKVStore) Update(ctx context.Context, property *domain.Property) (*domain.Property, error) {
	properties, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	updated := false
	for i, p := range properties {
		if domain.SameID(p.ID, property.ID) {
			properties[i] = property
			updated = true
			break
		}
	}
	if !updated {
		return nil, errors.NewNotFoundError("property", property.ID)
	}

	if err := s.save(ctx, properties); err != nil {
		return nil, err
	}
	return property, nil
}

func (s *PropertyKVStore) Delete(ctx context.Context, id string) error {
	properties, err := s.load(ctx)
	if err != nil {
		return err
	}

	remaining := properties[:0]
	found := false
	for _, p := range properties {
		if domain.SameID(p.ID, id) {
			found = true
			continue
		}
		remaining = append(remaining, p)
	}
	if !found {
		return errors.NewNotFoundError("property", id)
	}
	return s.save(ctx, remaining)
}
