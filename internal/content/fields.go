package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

// FieldKind selects how a patch value is decoded and validated.
type FieldKind int

const (
	FieldKindText FieldKind = iota
	FieldKindURL
	FieldKindColor
	FieldKindBool
	FieldKindInt
	FieldKindEnum
)

const (
	fieldMessageUnknown       = "unknown field"
	fieldMessageExpectString  = "must be a string"
	fieldMessageExpectBool    = "must be a boolean"
	fieldMessageExpectInteger = "must be an integer"
	fieldMessageRequired      = "required"
	fieldMessageInvalidURL    = "must be an absolute http(s) URL or a path starting with /"
	fieldMessageInvalidColor  = "must be a hex color such as #1a2b3c"
	defaultTextMaxLength      = 500
)

var (
	hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

	readOnlyKeys = map[string]struct{}{
		"id":               {},
		"section_id":       {},
		"created_at":       {},
		"updated_at":       {},
		"items":            {},
		"has_access_token": {},
	}
)

// Field declares one writable column.
type Field struct {
	Name      string
	Kind      FieldKind
	MaxLength int
	Min       int
	Max       int
	Options   []string
	Required  bool
}

// FieldSet is the whitelist of writable columns for one resource.
type FieldSet struct {
	fields map[string]Field
	order  []string
}

// NewFieldSet builds a FieldSet. Field names double as column names and JSON keys.
func NewFieldSet(fields ...Field) FieldSet {
	fieldSet := FieldSet{fields: make(map[string]Field, len(fields))}
	for _, field := range fields {
		fieldSet.fields[field.Name] = field
		fieldSet.order = append(fieldSet.order, field.Name)
	}
	return fieldSet
}

// Names returns the writable field names in declaration order.
func (fieldSet FieldSet) Names() []string {
	return append([]string(nil), fieldSet.order...)
}

// Patch is a validated set of column assignments.
type Patch struct {
	values map[string]any
}

// NewPatch builds a Patch from already validated values.
func NewPatch(values map[string]any) Patch {
	copied := make(map[string]any, len(values))
	for key, value := range values {
		copied[key] = value
	}
	return Patch{values: copied}
}

// Len returns the number of assigned columns.
func (patch Patch) Len() int {
	return len(patch.values)
}

// Has reports whether the column is assigned.
func (patch Patch) Has(name string) bool {
	_, exists := patch.values[name]
	return exists
}

// Value returns the assigned value for a column.
func (patch Patch) Value(name string) (any, bool) {
	value, exists := patch.values[name]
	return value, exists
}

// Columns returns a copy of the assignments keyed by column name.
func (patch Patch) Columns() map[string]any {
	columns := make(map[string]any, len(patch.values))
	for key, value := range patch.values {
		columns[key] = value
	}
	return columns
}

// Without returns a copy of the patch with the named columns removed.
func (patch Patch) Without(names ...string) Patch {
	columns := patch.Columns()
	for _, name := range names {
		delete(columns, name)
	}
	return Patch{values: columns}
}

// ParsePatchJSON decodes a JSON object and validates it against the field set.
func (fieldSet FieldSet) ParsePatchJSON(body []byte) (Patch, error) {
	var raw map[string]json.RawMessage
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return Patch{}, fmt.Errorf("%w: %v", ErrInvalidPatchBody, err)
	}
	if raw == nil {
		return Patch{}, ErrInvalidPatchBody
	}
	return fieldSet.ParsePatch(raw)
}

// ParsePatch validates every key against the whitelist and decodes typed values.
func (fieldSet FieldSet) ParsePatch(raw map[string]json.RawMessage) (Patch, error) {
	var validationErrors model.ValidationErrors
	values := make(map[string]any, len(raw))

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field, known := fieldSet.fields[key]
		if !known {
			if _, readOnly := readOnlyKeys[key]; readOnly {
				continue
			}
			validationErrors.Add(key, fieldMessageUnknown)
			continue
		}
		value, message := field.decode(raw[key])
		if message != "" {
			validationErrors.Add(key, message)
			continue
		}
		values[key] = value
	}

	if err := validationErrors.OrNil(); err != nil {
		return Patch{}, err
	}
	return Patch{values: values}, nil
}

// RequireFields reports every required field missing from the patch.
func (fieldSet FieldSet) RequireFields(patch Patch) error {
	var validationErrors model.ValidationErrors
	for _, name := range fieldSet.order {
		field := fieldSet.fields[name]
		if !field.Required {
			continue
		}
		value, assigned := patch.values[name]
		if !assigned {
			validationErrors.Add(name, fieldMessageRequired)
			continue
		}
		if text, isText := value.(string); isText && strings.TrimSpace(text) == "" {
			validationErrors.Add(name, fieldMessageRequired)
		}
	}
	return validationErrors.OrNil()
}

func (field Field) decode(raw json.RawMessage) (any, string) {
	trimmed := bytes.TrimSpace(raw)
	isNull := bytes.Equal(trimmed, []byte("null"))

	switch field.Kind {
	case FieldKindBool:
		var value bool
		if isNull || json.Unmarshal(trimmed, &value) != nil {
			return nil, fieldMessageExpectBool
		}
		return value, ""
	case FieldKindInt:
		return field.decodeInt(trimmed, isNull)
	}

	text := ""
	if !isNull {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fieldMessageExpectString
		}
	}
	text = strings.TrimSpace(text)

	if field.Required && text == "" {
		return nil, fieldMessageRequired
	}

	maxLength := field.MaxLength
	if maxLength <= 0 {
		maxLength = defaultTextMaxLength
	}
	if utf8.RuneCountInString(text) > maxLength {
		return nil, fmt.Sprintf("must have at most %d characters", maxLength)
	}

	switch field.Kind {
	case FieldKindURL:
		if text != "" && !isAcceptedURL(text) {
			return nil, fieldMessageInvalidURL
		}
	case FieldKindColor:
		if text != "" && !hexColorPattern.MatchString(text) {
			return nil, fieldMessageInvalidColor
		}
	case FieldKindEnum:
		if !containsOption(field.Options, text) {
			return nil, "must be one of " + strings.Join(field.Options, ", ")
		}
	}
	return text, ""
}

func (field Field) decodeInt(trimmed []byte, isNull bool) (any, string) {
	if isNull {
		return nil, fieldMessageExpectInteger
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return nil, fieldMessageExpectInteger
	}
	floatValue, parseErr := number.Float64()
	if parseErr != nil || floatValue != math.Trunc(floatValue) {
		return nil, fieldMessageExpectInteger
	}
	intValue := int(floatValue)
	if intValue < field.Min || (field.Max > field.Min && intValue > field.Max) {
		return nil, fmt.Sprintf("must be between %d and %d", field.Min, field.Max)
	}
	return intValue, ""
}

func isAcceptedURL(text string) bool {
	if strings.HasPrefix(text, "/") && !strings.HasPrefix(text, "//") {
		return true
	}
	if strings.HasPrefix(text, "#") || strings.HasPrefix(text, "mailto:") || strings.HasPrefix(text, "tel:") {
		return true
	}
	parsedURL, parseErr := url.Parse(text)
	if parseErr != nil {
		return false
	}
	scheme := strings.ToLower(parsedURL.Scheme)
	return (scheme == "http" || scheme == "https") && parsedURL.Host != ""
}

func containsOption(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
