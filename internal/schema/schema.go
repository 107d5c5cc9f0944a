// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema generates JSON Schema and Markdown documentation for the
// configuration file from the struct definitions that decode it.
//
// Field names come from the yaml tag. Descriptions come from the docdesc tag.
// A doctype tag lists the JSON types of fields with custom unmarshalling, and
// docenum lists the allowed string values.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
)

// ErrNotStruct is returned when a definition is not a struct or a pointer to one.
var ErrNotStruct = errors.New("expected struct type")

const draft = "https://json-schema.org/draft/2020-12/schema"

// Field represents a field in a JSON schema.
type Field struct {
	Name        string
	Types       []string
	Description string
	Required    bool
	Enum        []string
	// Items describes array elements.
	Items *Field
	// Properties describes the fields of a nested object.
	Properties []Field
	// Values describes the values of a map.
	Values *Field
}

// Generator provides methods to generate schemas from struct definitions.
type Generator struct {
	Title       string
	Description string
}

// NewGenerator creates a new Generator.
func NewGenerator(title, description string) *Generator {
	return &Generator{
		Title:       title,
		Description: description,
	}
}

// Fields returns the sorted schema fields of def.
func (g *Generator) Fields(def any) ([]Field, error) {
	return g.extractFields(reflect.TypeOf(def))
}

// JSONSchema builds the root schema object for def.
func (g *Generator) JSONSchema(def any) (map[string]any, error) {
	fields, err := g.Fields(def)
	if err != nil {
		return nil, err
	}

	root := objectProperty(fields)
	root["$schema"] = draft

	if g.Title != "" {
		root["title"] = g.Title
	}

	if g.Description != "" {
		root["description"] = g.Description
	}

	return root, nil
}

// WriteJSONSchema writes the schema for def as indented JSON.
func (g *Generator) WriteJSONSchema(w io.Writer, def any) error {
	root, err := g.JSONSchema(def)
	if err != nil {
		return err
	}

	bytes, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	_, err = fmt.Fprintf(w, "%s\n", bytes)

	return err
}

// WriteMarkdown writes a table for def and one for every nested object.
func (g *Generator) WriteMarkdown(w io.Writer, def any) error {
	fields, err := g.Fields(def)
	if err != nil {
		return err
	}

	var sb strings.Builder

	if g.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", g.Title)
	}

	if g.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", g.Description)
	}

	writeTable(&sb, "Root", fields)

	_, err = io.WriteString(w, sb.String())

	return err
}

func writeTable(sb *strings.Builder, title string, fields []Field) {
	fmt.Fprintf(sb, "## %s\n\n", title)
	sb.WriteString("| Field | Type | Required | Description |\n")
	sb.WriteString("|-------|------|----------|-------------|\n")

	for _, f := range fields {
		required := "No"
		if f.Required {
			required = "Yes"
		}

		desc := f.Description
		if len(f.Enum) > 0 {
			desc = fmt.Sprintf("%s (one of: %s)", desc, strings.Join(f.Enum, ", "))
		}

		fmt.Fprintf(sb, "| `%s` | %s | %s | %s |\n", f.Name, typeLabel(f), required, desc)
	}

	sb.WriteString("\n")

	for _, f := range fields {
		switch {
		case f.Items != nil && len(f.Items.Properties) > 0:
			writeTable(sb, f.Name+"[]", f.Items.Properties)
		case len(f.Properties) > 0:
			writeTable(sb, f.Name, f.Properties)
		}
	}
}

func typeLabel(f Field) string {
	label := strings.Join(f.Types, " \\| ")

	switch {
	case f.Items != nil:
		label = fmt.Sprintf("array of %s", strings.Join(f.Items.Types, " \\| "))
	case f.Values != nil:
		label = fmt.Sprintf("map of %s", strings.Join(f.Values.Types, " \\| "))
	}

	return label
}

// extractFields extracts schema fields from a struct type using reflection.
func (g *Generator) extractFields(t reflect.Type) ([]Field, error) {
	if t == nil {
		return nil, fmt.Errorf("%w, got nil", ErrNotStruct)
	}

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %s", ErrNotStruct, t.Kind())
	}

	var fields []Field

	for i := range t.NumField() {
		field := t.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous {
			embedded, err := g.extractFields(field.Type)
			if err != nil {
				return nil, err
			}

			fields = append(fields, embedded...)

			continue
		}

		sf, err := g.fieldToSchemaField(field)
		if err != nil {
			return nil, err
		}

		if sf != nil {
			fields = append(fields, *sf)
		}
	}

	return sortFields(fields), nil
}

// fieldToSchemaField converts a reflect.StructField to a Field.
func (g *Generator) fieldToSchemaField(field reflect.StructField) (*Field, error) {
	yamlTag := field.Tag.Get("yaml")
	if yamlTag == "-" {
		return nil, nil
	}

	name := strings.ToLower(field.Name)

	parts := strings.Split(yamlTag, ",")
	if parts[0] != "" {
		name = parts[0]
	}

	sf := &Field{
		Name:        name,
		Description: field.Tag.Get("docdesc"),
		Required:    !strings.Contains(yamlTag, "omitempty"),
	}

	if enum := field.Tag.Get("docenum"); enum != "" {
		sf.Enum = strings.Split(enum, ",")
	}

	if types := field.Tag.Get("doctype"); types != "" {
		sf.Types = strings.Split(types, ",")
		return sf, nil
	}

	if err := g.describeType(sf, field.Type); err != nil {
		return nil, fmt.Errorf("field %s: %w", field.Name, err)
	}

	return sf, nil
}

// describeType fills in the type information of f from t.
func (g *Generator) describeType(f *Field, t reflect.Type) error {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	f.Types = []string{getSchemaType(t)}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		f.Items = &Field{}
		return g.describeType(f.Items, t.Elem())
	case reflect.Map:
		f.Values = &Field{}
		return g.describeType(f.Values, t.Elem())
	case reflect.Struct:
		props, err := g.extractFields(t)
		if err != nil {
			return err
		}

		f.Properties = props
	}

	return nil
}

// getSchemaType converts a Go type to a JSON schema type.
func getSchemaType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}

// sortFields orders fields as name, others lexically, then scripts.
func sortFields(fields []Field) []Field {
	var nameField, scriptsField *Field

	var others []Field

	for i := range fields {
		field := &fields[i]
		switch field.Name {
		case "name":
			nameField = field
		case "scripts":
			scriptsField = field
		default:
			others = append(others, *field)
		}
	}

	sort.Slice(others, func(i, j int) bool {
		return others[i].Name < others[j].Name
	})

	result := make([]Field, 0, len(fields))

	if nameField != nil {
		result = append(result, *nameField)
	}

	result = append(result, others...)

	if scriptsField != nil {
		result = append(result, *scriptsField)
	}

	return result
}

// property converts a Field to a JSON schema property.
func property(f Field) map[string]any {
	var prop map[string]any

	if len(f.Properties) > 0 {
		prop = objectProperty(f.Properties)
	} else {
		prop = map[string]any{}

		if len(f.Types) == 1 {
			prop["type"] = f.Types[0]
		} else {
			prop["type"] = f.Types
		}
	}

	if f.Description != "" {
		prop["description"] = f.Description
	}

	if len(f.Enum) > 0 {
		prop["enum"] = f.Enum
	}

	if f.Items != nil {
		prop["items"] = property(*f.Items)
	}

	if f.Values != nil {
		prop["additionalProperties"] = property(*f.Values)
	}

	return prop
}

func objectProperty(fields []Field) map[string]any {
	properties := make(map[string]any, len(fields))
	required := []string{}

	for _, f := range fields {
		properties[f.Name] = property(f)

		if f.Required {
			required = append(required, f.Name)
		}
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}
