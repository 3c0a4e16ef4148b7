package domain

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"
)

// PlaceholderImage is substituted when a listing is created without photos.
const PlaceholderImage = "https://images.unsplash.com/photo-1545324418-cc1a3fa10c00?w=400&h=300&fit=crop"

type PropertyKind string

const (
	Apartment  PropertyKind = "apartment"
	House      PropertyKind = "house"
	Studio     PropertyKind = "studio"
	Bedsitter  PropertyKind = "bedsitter"
	Maisonette PropertyKind = "maisonette"
	Townhouse  PropertyKind = "townhouse"
)

type Property struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Price       int64        `json:"price"`
	Location    string       `json:"location"`
	Bedrooms    int          `json:"bedrooms"`
	Bathrooms   float64      `json:"bathrooms"`
	Area        float64      `json:"area"`
	Kind        PropertyKind `json:"type"`
	LeaseTerm   string       `json:"leaseTerm,omitempty"`
	Deposit     int64        `json:"deposit,omitempty"`
	Amenities   []string     `json:"amenities"`
	Images      []string     `json:"images"`
	Featured    bool         `json:"featured"`
	Available   bool         `json:"available"`
	CreatedAt   time.Time    `json:"createdAt"`
	AgentID     string       `json:"agentId"`
}

// UnmarshalJSON accepts records from the property service and older local
// snapshots, where the identifier arrives as "id" or "_id" and as either a
// number or a string. Whatever the shape, the canonical string id is set
// before the record enters the rest of the core.
func (p *Property) UnmarshalJSON(data []byte) error {
	type alias Property
	aux := struct {
		ID    json.RawMessage `json:"id"`
		AltID json.RawMessage `json:"_id"`
		*alias
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := aux.ID
	if len(raw) == 0 || string(raw) == "null" {
		raw = aux.AltID
	}
	p.ID = NormalizeID(rawToString(raw))
	return nil
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// NormalizeID maps numeric and string forms of the same identifier to one
// comparable string. "25000" and 25000 refer to the same listing.
func NormalizeID(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(strings.Trim(string(mustMarshal(v)), `"`))
	}
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// SameID reports whether two identifiers refer to the same record once
// both are normalized.
func SameID(a, b interface{}) bool {
	na := NormalizeID(a)
	return na != "" && na == NormalizeID(b)
}

// Clone returns a deep copy so callers can never mutate stored records.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Amenities = append([]string(nil), p.Amenities...)
	cp.Images = append([]string(nil), p.Images...)
	return &cp
}

func (p *Property) ToJSON(w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(p)
}

func (p *Property) FromJSON(r io.Reader) error {
	d := json.NewDecoder(r)
	return d.Decode(p)
}

// PropertyDraft is the payload for creating a listing. Pointer fields
// distinguish a missing value from a legitimate zero (a bedsitter has zero
// bedrooms, a price of zero is not a price at all when absent).
type PropertyDraft struct {
	Title       string       `json:"title" validate:"required"`
	Description string       `json:"description"`
	Price       *int64       `json:"price" validate:"required,gte=0"`
	Location    string       `json:"location" validate:"required"`
	Bedrooms    *int         `json:"bedrooms" validate:"required,gte=0"`
	Bathrooms   *float64     `json:"bathrooms" validate:"required,gte=0"`
	Area        *float64     `json:"area" validate:"required,gt=0"`
	Kind        PropertyKind `json:"type" validate:"required,oneof=apartment house studio bedsitter maisonette townhouse"`
	LeaseTerm   string       `json:"leaseTerm"`
	Deposit     int64        `json:"deposit"`
	Amenities   []string     `json:"amenities"`
	Images      []string     `json:"images"`
	AgentID     string       `json:"agentId"`
}

// PropertyPatch carries a partial update. Nil fields leave the stored value
// untouched.
type PropertyPatch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Price       *int64        `json:"price,omitempty"`
	Location    *string       `json:"location,omitempty"`
	Bedrooms    *int          `json:"bedrooms,omitempty"`
	Bathrooms   *float64      `json:"bathrooms,omitempty"`
	Area        *float64      `json:"area,omitempty"`
	Kind        *PropertyKind `json:"type,omitempty"`
	LeaseTerm   *string       `json:"leaseTerm,omitempty"`
	Deposit     *int64        `json:"deposit,omitempty"`
	Amenities   *[]string     `json:"amenities,omitempty"`
	Images      *[]string     `json:"images,omitempty"`
	Featured    *bool         `json:"featured,omitempty"`
	Available   *bool         `json:"available,omitempty"`
}

// Apply merges the patch over the property in place.
func (patch *PropertyPatch) Apply(p *Property) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Bedrooms != nil {
		p.Bedrooms = *patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		p.Bathrooms = *patch.Bathrooms
	}
	if patch.Area != nil {
		p.Area = *patch.Area
	}
	if patch.Kind != nil {
		p.Kind = *patch.Kind
	}
	if patch.LeaseTerm != nil {
		p.LeaseTerm = *patch.LeaseTerm
	}
	if patch.Deposit != nil {
		p.Deposit = *patch.Deposit
	}
	if patch.Amenities != nil {
		p.Amenities = append([]string(nil), (*patch.Amenities)...)
	}
	if patch.Images != nil {
		p.Images = append([]string(nil), (*patch.Images)...)
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if patch.Available != nil {
		p.Available = *patch.Available
	}
}

type Agent struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"reviewCount,omitempty"`
	Avatar      string  `json:"avatar,omitempty"`
}

type UserType string

const (
	RenterRole UserType = "renter"
	AgentRole  UserType = "agent"
)

type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserType `json:"userType"`
	Phone string   `json:"phone,omitempty"`
}

// Session is the authenticated identity plus its access token. Token and
// user are always set and cleared together.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserType `json:"userType" validate:"required,oneof=renter agent"`
	Phone    string   `json:"phone"`
}

type InquiryStatus string

const (
	InquiryNew       InquiryStatus = "new"
	InquiryContacted InquiryStatus = "contacted"
	InquiryClosed    InquiryStatus = "closed"
)

type Inquiry struct {
	ID         string        `json:"id"`
	PropertyID string        `json:"propertyId"`
	AgentID    string        `json:"agentId"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone,omitempty"`
	Message    string        `json:"message"`
	Status     InquiryStatus `json:"status"`
	Read       bool          `json:"read"`
	CreatedAt  time.Time     `json:"createdAt"`
}

type InquiryDraft struct {
	PropertyID string `json:"propertyId"`
	AgentID    string `json:"agentId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone"`
	Message    string `json:"message" validate:"required"`
}
