package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ULDPreset is a reusable container type definition.
type ULDPreset struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Code      string  `json:"code"` // IATA type code, e.g. AKE
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	MaxWeight float64 `json:"max_weight"`
}

// NewULDPreset creates a new ULDPreset with a generated ID.
func NewULDPreset(name, code string, length, width, height, maxWeight float64) ULDPreset {
	return ULDPreset{
		ID:        uuid.New().String()[:8],
		Name:      name,
		Code:      code,
		Length:    length,
		Width:     width,
		Height:    height,
		MaxWeight: maxWeight,
	}
}

// ToContainers expands the preset into qty containers named CODE-1..CODE-n.
func (p ULDPreset) ToContainers(qty int) []Container {
	out := make([]Container, 0, qty)
	for k := 1; k <= qty; k++ {
		out = append(out, NewContainer(fmt.Sprintf("%s-%d", p.Code, k), p.Length, p.Width, p.Height, p.MaxWeight))
	}
	return out
}

// Fleet holds the user's saved container types.
type Fleet struct {
	ULDs []ULDPreset `json:"ulds"`
}

// DefaultFleet returns the common lower and main deck unit load devices.
// Dimensions are inner usable extents in cm, limits in kg.
func DefaultFleet() Fleet {
	return Fleet{
		ULDs: []ULDPreset{
			NewULDPreset("LD3 container", "AKE", 153, 156, 163, 1588),
			NewULDPreset("LD3 container (no forklift)", "AKN", 153, 156, 163, 1588),
			NewULDPreset("LD7 pallet 96in", "PMC", 317, 243, 163, 6804),
			NewULDPreset("LD7 pallet 88in", "PAG", 317, 223, 163, 6033),
			NewULDPreset("LD11 pallet half", "PLA", 317, 153, 163, 3175),
		},
	}
}

// FindByCode returns a pointer to the first preset with the given type code, or nil.
func (f *Fleet) FindByCode(code string) *ULDPreset {
	for i := range f.ULDs {
		if f.ULDs[i].Code == code {
			return &f.ULDs[i]
		}
	}
	return nil
}

// FindByID returns a pointer to the preset with the given ID, or nil.
func (f *Fleet) FindByID(id string) *ULDPreset {
	for i := range f.ULDs {
		if f.ULDs[i].ID == id {
			return &f.ULDs[i]
		}
	}
	return nil
}

// Codes returns the type codes of all presets.
func (f *Fleet) Codes() []string {
	codes := make([]string, len(f.ULDs))
	for i, u := range f.ULDs {
		codes[i] = u.Code
	}
	return codes
}
