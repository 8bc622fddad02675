// Package jsonpath reads values out of JSON documents with a small JSONPath
// dialect ($.users[0].name) translated onto gjson paths.
package jsonpath

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Extract returns the value at path as a string. Nested objects and arrays
// come back as raw JSON.
func Extract(json string, path string) (string, error) {
	result, err := lookup(json, path)
	if err != nil {
		return "", err
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// ExtractBytes is Extract for a response body.
func ExtractBytes(body []byte, path string) (string, error) {
	return Extract(string(body), path)
}

// Exists reports whether path resolves to a value in json.
func Exists(json string, path string) bool {
	_, err := lookup(json, path)
	return err == nil
}

// Count returns the number of elements of the array at path, or -1 when the
// value is not an array.
func Count(json string, path string) (int, error) {
	result, err := lookup(json, path)
	if err != nil {
		return 0, err
	}
	if !result.IsArray() {
		return -1, nil
	}
	return len(result.Array()), nil
}

func lookup(json string, path string) (gjson.Result, error) {
	if json == "" {
		return gjson.Result{}, fmt.Errorf("empty JSON document")
	}
	if path == "" {
		return gjson.Result{}, fmt.Errorf("empty JSONPath expression")
	}
	if !gjson.Valid(json) {
		return gjson.Result{}, fmt.Errorf("invalid JSON document")
	}

	result := gjson.Get(json, ToGjsonPath(path))
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("path not found: %s", path)
	}
	return result, nil
}

// ToGjsonPath converts a JSONPath expression to gjson syntax:
//
//	$              -> @this
//	$.users[0].id  -> users.0.id
//	$['name']      -> name
//	$[1]           -> 1
//	id             -> id (already gjson)
func ToGjsonPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	replacer := strings.NewReplacer(
		"['", ".", "']", "",
		`["`, ".", `"]`, "",
		"[", ".", "]", "",
	)
	path = replacer.Replace(path)

	return strings.TrimPrefix(path, ".")
}
