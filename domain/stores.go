package domain

import (
	"context"
	"encoding/json"
)

// KeyValueStore is the single durability contract of the core. Values are
// JSON documents keyed by name. A missing key yields (nil, nil); so does a
// stored value that no longer parses, which implementations log and treat
// as absent rather than failing the caller.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Well-known keys. The adapter itself is key-agnostic; these are the names
// the services persist under.
const (
	KeyToken      = "token"
	KeyUser       = "user"
	KeyUsers      = "users"
	KeyProperties = "properties"
	KeyFavorites  = "favorites"
	KeyInquiries  = "inquiries"
)

// PropertyStore owns the listing collection. The local implementation keeps
// the whole collection under KeyProperties; the remote one forwards each
// operation to the property service.
type PropertyStore interface {
	GetAll(ctx context.Context) ([]*Property, error)
	GetByID(ctx context.Context, id string) (*Property, error)
	Insert(ctx context.Context, property *Property) (*Property, error)
	Update(ctx context.Context, property *Property) (*Property, error)
	Delete(ctx context.Context, id string) error
}

// AuthBackend authenticates credentials and resolves tokens back to users.
type AuthBackend interface {
	Login(ctx context.Context, credentials *Credentials) (*Session, error)
	Signup(ctx context.Context, request *SignupRequest) (*Session, error)
	WhoAmI(ctx context.Context, token string) (*User, error)
}
