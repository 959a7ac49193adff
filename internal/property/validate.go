package property

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/evcraddock/house-market/internal/apperr"
)

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("property.json", schemaJSON)

// Validate checks p against the listing schema, including the pricing
// fields required by its availability mode. The returned error wraps
// apperr.ErrValidation.
func Validate(p Property) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling property: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decoding property: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return apperr.Validation("%s", strings.Join(leafMessages(ve), "; "))
		}
		return apperr.Validation("%v", err)
	}
	return nil
}

// RequiredPricing returns the pricing fields an availability mode needs.
func RequiredPricing(a Availability) []string {
	switch a {
	case ForRent:
		return []string{"monthly_rent", "security_deposit"}
	case ForSale:
		return []string{"price"}
	case ForBoth:
		return []string{"monthly_rent", "security_deposit", "price"}
	}
	return nil
}

// leafMessages flattens a validation error tree into "location: message" strings.
func leafMessages(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := strings.TrimPrefix(ve.InstanceLocation, "/")
		if loc == "" {
			return []string{ve.Message}
		}
		return []string{loc + ": " + ve.Message}
	}

	seen := make(map[string]bool)
	var out []string
	for _, c := range ve.Causes {
		for _, m := range leafMessages(c) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out
}
