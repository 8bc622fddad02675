package jsonschema

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

const userSchema = `{
	"type": "object",
	"properties": {
		"id": { "type": "integer" },
		"name": { "type": "string" },
		"email": { "type": "string" }
	},
	"required": ["id", "name", "email"]
}`

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		schema        string
		json          string
		expectedValid bool
		expectedError bool
	}{
		{
			name:          "Valid user",
			schema:        userSchema,
			json:          `{"id": 1, "name": "TestUser1", "email": "testuser1@example.com"}`,
			expectedValid: true,
		},
		{
			name:   "Missing required property",
			schema: userSchema,
			json:   `{"id": 1, "name": "TestUser1"}`,
		},
		{
			name:   "Wrong type",
			schema: userSchema,
			json:   `{"id": "one", "name": "TestUser1", "email": "e"}`,
		},
		{
			name:          "Invalid JSON",
			schema:        userSchema,
			json:          `{"id": `,
			expectedError: true,
		},
		{
			name:          "Invalid schema",
			schema:        `{"type": 12}`,
			json:          `{}`,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := Validate(tt.json, tt.schema)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Validate() error = %v, expectedError %v", err, tt.expectedError)
			}
			if valid != tt.expectedValid {
				t.Errorf("Validate() = %v, want %v", valid, tt.expectedValid)
			}
		})
	}
}

func TestSchema_ValidateBytes_ReportsLocations(t *testing.T) {
	schema := MustCompile(`{
		"type": "array",
		"items": ` + userSchema + `
	}`)

	err := schema.ValidateBytes([]byte(`[{"id": 1, "name": "a", "email": "b"}, {"id": 2}]`))
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T (%v)", err, err)
	}
	if !strings.Contains(verrs.Error(), "/1") {
		t.Errorf("expected error to point at /1, got %q", verrs.Error())
	}
}

func TestSchema_ConcurrentUse(t *testing.T) {
	schema := MustCompile(userSchema)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := schema.ValidateBytes([]byte(`{"id": 1, "name": "n", "email": "e"}`)); err != nil {
				t.Errorf("ValidateBytes() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestMustCompile_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustCompile to panic on invalid schema")
		}
	}()
	MustCompile(`{"type": 12}`)
}
