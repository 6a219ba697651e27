// Package query translates request query parameters into store filter, sort,
// and pagination parameters. Filterable fields and their permitted operators
// are declared per entity in a Schema; parameters outside the schema are
// rejected rather than passed through to the store.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/estatelink/tre-backend/internal/errors"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpGt  Op = "gt"
	OpLte Op = "lte"
	OpLt  Op = "lt"
)

// Kind describes how a field's values compare.
type Kind int

const (
	String Kind = iota
	Number
	Bool
	Timestamp
)

const (
	// DefaultLimit is the page size applied when the request names none.
	DefaultLimit = 10

	paramPage   = "page"
	paramSort   = "sort"
	paramLimit  = "limit"
	paramFields = "fields"
)

// Field declares one filterable field.
type Field struct {
	// Column is the store column backing the field.
	Column string
	Kind   Kind
}

// rangeOps reports whether the field kind admits range operators.
func (f Field) allows(op Op) bool {
	if op == OpEq {
		return true
	}
	return f.Kind == Number || f.Kind == Timestamp
}

// Schema is the set of fields an entity permits in filters and sorts.
type Schema struct {
	fields map[string]Field
}

// NewSchema builds a schema from parameter-name → field declarations.
func NewSchema(fields map[string]Field) Schema {
	return Schema{fields: fields}
}

// Condition is a single validated filter condition.
type Condition struct {
	Param  string // request parameter name
	Column string // store column
	Op     Op
	Value  string
	Kind   Kind
}

// SortField is one validated sort key.
type SortField struct {
	Column string
	Desc   bool
}

// Query is the validated result of parsing request parameters.
type Query struct {
	Conditions []Condition
	Sort       []SortField
	Fields     []string // projection columns; empty means full record
	Limit      int
	Offset     int
}

// Parse validates the flat parameter mapping against the schema and builds a
// Query. Control keys (page, sort, limit, fields) are stripped from the
// filter set first; every remaining key must name a schema field, optionally
// suffixed with a [gte|gt|lte|lt] range operator.
func (s Schema) Parse(params url.Values) (Query, error) {
	q := Query{Limit: DefaultLimit}

	for key, values := range params {
		switch key {
		case paramPage, paramSort, paramLimit, paramFields:
			continue
		}
		if len(values) == 0 || values[0] == "" {
			return Query{}, errors.Validation(fmt.Sprintf("empty filter value for %q", key))
		}

		name, op := splitOperator(key)
		field, ok := s.fields[name]
		if !ok {
			return Query{}, errors.Validation(fmt.Sprintf("unknown filter field %q", name))
		}
		if !field.allows(op) {
			return Query{}, errors.Validation(fmt.Sprintf("operator %s not permitted on field %q", op, name))
		}
		value := values[0]
		if field.Kind == Number {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return Query{}, errors.Validation(fmt.Sprintf("field %q expects a numeric value", name))
			}
		}
		if field.Kind == Bool {
			if value != "true" && value != "false" {
				return Query{}, errors.Validation(fmt.Sprintf("field %q expects true or false", name))
			}
		}
		q.Conditions = append(q.Conditions, Condition{
			Param:  name,
			Column: field.Column,
			Op:     op,
			Value:  value,
			Kind:   field.Kind,
		})
	}

	sort, err := s.parseSort(params.Get(paramSort))
	if err != nil {
		return Query{}, err
	}
	q.Sort = sort

	if fields := params.Get(paramFields); fields != "" {
		for _, name := range strings.Split(fields, ",") {
			name = strings.TrimSpace(name)
			field, ok := s.fields[name]
			if !ok {
				return Query{}, errors.Validation(fmt.Sprintf("unknown projection field %q", name))
			}
			q.Fields = append(q.Fields, field.Column)
		}
	}

	page := 1
	if raw := params.Get(paramPage); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Query{}, errors.Validation("page must be a positive integer")
		}
	}
	if raw := params.Get(paramLimit); raw != "" {
		q.Limit, err = strconv.Atoi(raw)
		if err != nil || q.Limit < 1 {
			return Query{}, errors.Validation("limit must be a positive integer")
		}
	}
	q.Offset = (page - 1) * q.Limit

	return q, nil
}

// parseSort validates a comma-separated sort list; a leading '-' selects
// descending order. Sorting defaults to newest-first by creation timestamp.
func (s Schema) parseSort(raw string) ([]SortField, error) {
	if raw == "" {
		return []SortField{{Column: "created_at", Desc: true}}, nil
	}
	var sort []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		field, ok := s.fields[name]
		if !ok {
			return nil, errors.Validation(fmt.Sprintf("unknown sort field %q", name))
		}
		sort = append(sort, SortField{Column: field.Column, Desc: desc})
	}
	if len(sort) == 0 {
		sort = []SortField{{Column: "created_at", Desc: true}}
	}
	return sort, nil
}

// splitOperator splits "field[gte]" style keys into name and operator.
// Keys without a bracket suffix are equality conditions.
func splitOperator(key string) (string, Op) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	name := key[:open]
	switch op := Op(key[open+1 : len(key)-1]); op {
	case OpGte, OpGt, OpLte, OpLt:
		return name, op
	default:
		// Unknown bracket suffix: treat the whole key as a field name so it
		// fails schema validation with a clear message.
		return key, OpEq
	}
}

// Encode renders the query in PostgREST syntax, e.g.
// "current_estate_cost=gte.100&order=created_at.desc&limit=5&offset=5".
func (q Query) Encode() string {
	values := url.Values{}
	for _, c := range q.Conditions {
		values.Add(c.Column, string(c.Op)+"."+c.Value)
	}
	if len(q.Sort) > 0 {
		parts := make([]string, 0, len(q.Sort))
		for _, s := range q.Sort {
			dir := "asc"
			if s.Desc {
				dir = "desc"
			}
			parts = append(parts, s.Column+"."+dir)
		}
		values.Set("order", strings.Join(parts, ","))
	}
	if len(q.Fields) > 0 {
		values.Set("select", strings.Join(q.Fields, ","))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	return values.Encode()
}
