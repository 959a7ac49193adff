// Package property provides the listing domain model shared by the client stores.
package property

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evcraddock/house-market/internal/apperr"
)

// Availability is how a listing is offered.
type Availability string

const (
	ForRent Availability = "Rent"
	ForSale Availability = "Sell"
	ForBoth Availability = "Both"
)

// ValidAvailability returns true if s is a known availability mode.
func ValidAvailability(s string) bool {
	switch Availability(s) {
	case ForRent, ForSale, ForBoth:
		return true
	}
	return false
}

// Floor holds the room counts for one floor of a listing.
type Floor struct {
	FloorNo   int `json:"floor_no"`
	BedroomNo int `json:"bedroom_no"`
	BathNo    int `json:"bath_no"`
	HallNo    int `json:"hall_no"`
	KitchenNo int `json:"kitchen_no"`
}

// Image is an uploaded listing photo.
type Image struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Property is a marketed listing, keyed by its parcel number (APN).
type Property struct {
	APN                 string       `json:"apn,omitempty"`
	Title               string       `json:"title"`
	Type                string       `json:"type,omitempty"`
	Status              string       `json:"status,omitempty"`
	AvailableFor        Availability `json:"available_for"`
	State               string       `json:"state,omitempty"`
	City                string       `json:"city,omitempty"`
	District            string       `json:"district,omitempty"`
	LocalAddress        string       `json:"local_address,omitempty"`
	Pincode             string       `json:"pincode,omitempty"`
	MapURL              string       `json:"map_url,omitempty"`
	TourURL             string       `json:"tour_url,omitempty"`
	NeighborhoodInfo    string       `json:"neighborhood_info,omitempty"`
	Area                *float64     `json:"area,omitempty"`
	BuiltYear           *int64       `json:"built_year,omitempty"`
	MonthlyRent         *float64     `json:"monthly_rent,omitempty"`
	SecurityDeposit     *float64     `json:"security_deposit,omitempty"`
	Price               *float64     `json:"price,omitempty"`
	Floors              []Floor      `json:"floors,omitempty"`
	Images              []Image      `json:"images,omitempty"`
	IndividualAmenities []string     `json:"individual_amenities,omitempty"`
	SharedAmenities     []string     `json:"shared_amenities,omitempty"`
	OwnerID             string       `json:"owner_id,omitempty"`
	OwnerName           string       `json:"owner_name,omitempty"`
	OwnerEmail          string       `json:"owner_email,omitempty"`
	OwnerPhone          string       `json:"owner_phone,omitempty"`
	IsWish              bool         `json:"is_wish"`
}

// Clone returns a deep copy of p.
func (p Property) Clone() Property {
	c := p
	c.Area = clonePtr(p.Area)
	c.BuiltYear = clonePtr(p.BuiltYear)
	c.MonthlyRent = clonePtr(p.MonthlyRent)
	c.SecurityDeposit = clonePtr(p.SecurityDeposit)
	c.Price = clonePtr(p.Price)
	c.Floors = cloneSlice(p.Floors)
	c.Images = cloneSlice(p.Images)
	c.IndividualAmenities = cloneSlice(p.IndividualAmenities)
	c.SharedAmenities = cloneSlice(p.SharedAmenities)
	return c
}

// Address joins the location fields the way listings display them.
func (p Property) Address() string {
	var parts []string
	for _, s := range []string{p.LocalAddress, p.District, p.City, p.State} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Totals sums room counts across all floors.
type Totals struct {
	Beds     int `json:"beds"`
	Baths    int `json:"baths"`
	Halls    int `json:"halls"`
	Kitchens int `json:"kitchens"`
}

// Totals returns the room counts summed over every floor.
func (p Property) Totals() Totals {
	var t Totals
	for _, f := range p.Floors {
		t.Beds += f.BedroomNo
		t.Baths += f.BathNo
		t.Halls += f.HallNo
		t.Kitchens += f.KitchenNo
	}
	return t
}

// Patch is a partial update keyed by JSON field name.
type Patch map[string]interface{}

// readOnlyFields cannot be changed through a Patch.
var readOnlyFields = map[string]bool{
	"apn":      true,
	"is_wish":  true,
	"owner_id": true,
}

// Merge overlays patch onto p and returns the result. p is not modified.
// Unknown or read-only keys are rejected with a validation error.
func Merge(p Property, patch Patch) (Property, error) {
	for k := range patch {
		if readOnlyFields[k] {
			return Property{}, apperr.Validation("field %q cannot be updated", k)
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return Property{}, fmt.Errorf("marshaling property: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return Property{}, fmt.Errorf("decoding property fields: %w", err)
	}
	for k, v := range patch {
		if v == nil {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return Property{}, apperr.Validation("encoding patch: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	var out Property
	if err := dec.Decode(&out); err != nil {
		return Property{}, apperr.Validation("applying patch: %v", err)
	}
	return out, nil
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
