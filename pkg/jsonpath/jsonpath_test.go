package jsonpath

import "testing"

const usersDoc = `[
	{"id": 1, "name": "TestUser1", "email": "testuser1@example.com", "tags": ["seed"]},
	{"id": 2, "name": "TestUser2", "email": "testuser2@example.com", "manager": null}
]`

func TestToGjsonPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$", "@this"},
		{"", "@this"},
		{"$.id", "id"},
		{"id", "id"},
		{"$[0]", "0"},
		{"$[0].name", "0.name"},
		{"$.users[2].email", "users.2.email"},
		{"$['name']", "name"},
		{`$["user"]["name"]`, "user.name"},
		{"$.a[0][1]", "a.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ToGjsonPath(tt.in); got != tt.want {
				t.Errorf("ToGjsonPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "array element field", json: usersDoc, path: "$[0].name", want: "TestUser1"},
		{name: "number", json: usersDoc, path: "$[1].id", want: "2"},
		{name: "nested array", json: usersDoc, path: "$[0].tags[0]", want: "seed"},
		{name: "null value", json: usersDoc, path: "$[1].manager", want: "null"},
		{name: "object id", json: `{"id":42,"name":"x"}`, path: "id", want: "42"},
		{name: "missing path", json: usersDoc, path: "$[5].id", wantErr: true},
		{name: "empty json", json: "", path: "$.id", wantErr: true},
		{name: "empty path", json: usersDoc, path: "", wantErr: true},
		{name: "invalid json", json: "{not json", path: "$.id", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.json, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Extract() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExistsAndCount(t *testing.T) {
	if !Exists(usersDoc, "$[0].email") {
		t.Error("expected $[0].email to exist")
	}
	if Exists(usersDoc, "$[0].phone") {
		t.Error("did not expect $[0].phone to exist")
	}

	n, err := Count(usersDoc, "$")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count($) = %d, want 2", n)
	}

	n, err = Count(usersDoc, "$[0].name")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != -1 {
		t.Errorf("Count on a string = %d, want -1", n)
	}
}
