package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyUnmarshal_NumericID(t *testing.T) {
	payload := []byte(`{"id": 1712600000000, "title": "Bedsitter in Ruaka", "price": 12000}`)

	var p Property
	require.NoError(t, json.Unmarshal(payload, &p))

	assert.Equal(t, "1712600000000", p.ID)
	assert.Equal(t, "Bedsitter in Ruaka", p.Title)
	assert.Equal(t, int64(12000), p.Price)
}

func TestPropertyUnmarshal_AltIDFallback(t *testing.T) {
	payload := []byte(`{"_id": "663a1f", "title": "Studio in Ngara"}`)

	var p Property
	require.NoError(t, json.Unmarshal(payload, &p))
	assert.Equal(t, "663a1f", p.ID)
}

func TestPropertyUnmarshal_CanonicalIDWinsOverAlt(t *testing.T) {
	payload := []byte(`{"id": "abc", "_id": "def"}`)

	var p Property
	require.NoError(t, json.Unmarshal(payload, &p))
	assert.Equal(t, "abc", p.ID)
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "42", NormalizeID(42))
	assert.Equal(t, "42", NormalizeID("42"))
	assert.Equal(t, "42", NormalizeID(float64(42)))
	assert.Equal(t, "", NormalizeID(nil))
	assert.Equal(t, "abc", NormalizeID(" abc "))
}

func TestSameID(t *testing.T) {
	assert.True(t, SameID("42", 42))
	assert.True(t, SameID(42, "42"))
	assert.False(t, SameID("42", "43"))
	assert.False(t, SameID("", ""))
}

func TestClone_IsDeep(t *testing.T) {
	original := &Property{
		ID:        "1",
		Amenities: []string{"wifi", "parking"},
		Images:    []string{"a.jpg"},
	}

	cp := original.Clone()
	cp.Amenities[0] = "borehole"
	cp.Images[0] = "b.jpg"

	assert.Equal(t, "wifi", original.Amenities[0])
	assert.Equal(t, "a.jpg", original.Images[0])
}

func TestPatchApply_PreservesAbsentFields(t *testing.T) {
	p := &Property{
		ID:       "1",
		Title:    "Two bedroom in Kilimani",
		Price:    25000,
		Location: "Kilimani",
		Bedrooms: 2,
	}

	newPrice := int64(27000)
	patch := &PropertyPatch{Price: &newPrice}
	patch.Apply(p)

	assert.Equal(t, int64(27000), p.Price)
	assert.Equal(t, "Two bedroom in Kilimani", p.Title)
	assert.Equal(t, "Kilimani", p.Location)
	assert.Equal(t, 2, p.Bedrooms)
}

func TestPatchApply_CanFlagFeaturedAndAvailability(t *testing.T) {
	p := &Property{ID: "1", Available: true}

	featured := true
	unavailable := false
	patch := &PropertyPatch{Featured: &featured, Available: &unavailable}
	patch.Apply(p)

	assert.True(t, p.Featured)
	assert.False(t, p.Available)
}
