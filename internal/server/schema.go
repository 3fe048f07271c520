package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const createExpenseSchema = `{
  "type": "object",
  "required": ["user_id", "category", "amount", "expense_date"],
  "properties": {
    "user_id":      {"type": "string", "minLength": 1},
    "category":     {"type": "string", "minLength": 1},
    "amount":       {"type": ["number", "string"]},
    "currency":     {"type": "string", "maxLength": 3},
    "expense_date": {"type": "string", "minLength": 1},
    "notes":        {"type": ["string", "null"]},
    "receipt_url":  {"type": ["string", "null"]}
  },
  "additionalProperties": false
}`

const updateExpenseSchema = `{
  "type": "object",
  "minProperties": 1,
  "properties": {
    "user_id":      {"type": "string"},
    "category":     {"type": "string"},
    "amount":       {"type": ["number", "string"]},
    "currency":     {"type": "string", "maxLength": 3},
    "expense_date": {"type": "string"},
    "notes":        {"type": "string"},
    "receipt_url":  {"type": "string"}
  },
  "additionalProperties": false
}`

var (
	createSchema = mustCompile("create_expense.json", createExpenseSchema)
	updateSchema = mustCompile("update_expense.json", updateExpenseSchema)
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// validateBody checks raw JSON against schema and returns the first
// violation as a short message.
func validateBody(schema *jsonschema.Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("body is not valid JSON")
	}
	err := schema.Validate(v)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return errors.New(leafMessage(ve))
	}
	return err
}

func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return ve.Message
	}
	return loc + ": " + ve.Message
}
