// Package buybox reads, validates and stores buy box documents.
package buybox

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/buybox/internal/scoring"
)

//go:embed schema.json
var schemaJSON string

var schema = gojsonschema.NewStringLoader(schemaJSON)

// BuyBox is a saved set of investment criteria.
type BuyBox struct {
	ID        string           `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	IsActive  bool             `json:"is_active" yaml:"is_active"`
	Criteria  scoring.Criteria `json:"criteria" yaml:"criteria"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" yaml:"updated_at"`
}

// Scoring returns the view of the buy box the scoring engine consumes.
func (b *BuyBox) Scoring() scoring.BuyBox {
	return scoring.BuyBox{ID: b.ID, Name: b.Name, Criteria: b.Criteria.Clone()}
}

// LoadFile decodes and validates a buy box document from disk.
func LoadFile(path string) (*BuyBox, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading buy box: %w", err)
	}
	b, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Decode parses a YAML or JSON buy box document. The document is checked
// against the buy box schema before its criteria are validated; both kinds
// of failure are reported as *scoring.FieldError values.
func Decode(data []byte) (*BuyBox, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty buy box document")
	}
	isJSON := data[0] == '{'

	var doc map[string]interface{}
	if err := unmarshal(data, isJSON, &doc); err != nil {
		return nil, fmt.Errorf("parsing buy box: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("buy box document is not a mapping")
	}
	if err := checkSchema(doc); err != nil {
		return nil, err
	}

	b := BuyBox{IsActive: true}
	if err := unmarshal(data, isJSON, &b); err != nil {
		return nil, fmt.Errorf("parsing buy box: %w", err)
	}
	b.Name = strings.TrimSpace(b.Name)

	if err := b.Criteria.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Encode renders a buy box as YAML.
func Encode(b *BuyBox) ([]byte, error) {
	data, err := yaml.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding buy box: %w", err)
	}
	return data, nil
}

func unmarshal(data []byte, isJSON bool, v interface{}) error {
	if isJSON {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}

// checkSchema validates the raw document and converts schema violations to
// field errors, sorted by field.
func checkSchema(doc map[string]interface{}) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("checking buy box schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var fieldErrs []*scoring.FieldError
	for _, re := range result.Errors() {
		fieldErrs = append(fieldErrs, &scoring.FieldError{
			Field:  schemaField(re),
			Reason: re.Description(),
		})
	}
	sort.SliceStable(fieldErrs, func(i, j int) bool {
		return fieldErrs[i].Field < fieldErrs[j].Field
	})

	errs := make([]error, len(fieldErrs))
	for i, fe := range fieldErrs {
		errs[i] = fe
	}
	return errors.Join(errs...)
}

// schemaField names the offending field the way criteria validation does:
// criteria fields by their bare name, document fields by theirs.
func schemaField(re gojsonschema.ResultError) string {
	field := re.Field()
	if p, ok := re.Details()["property"].(string); ok {
		switch re.Type() {
		case "required", "additional_property_not_allowed":
			if field == "(root)" {
				field = p
			} else {
				field += "." + p
			}
		}
	}
	field = strings.TrimPrefix(field, "(root)")
	field = strings.TrimPrefix(field, "criteria.")
	if field == "" {
		return "document"
	}
	return field
}
