package setup

// User is one seeded user as the server acknowledged it.
type User struct {
	Index  int    `json:"index" yaml:"index"`
	Name   string `json:"name" yaml:"name"`
	Email  string `json:"email" yaml:"email"`
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Status int    `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the seed request succeeded.
func (u User) OK() bool {
	return u.Error == ""
}

// Result is the setup output handed to every VU. It is immutable: accessors
// return copies, so one *Result can be shared by all VUs without locking.
type Result struct {
	baseURL string
	users   []User
	failed  int
}

// NewResult builds a Result. users is copied.
func NewResult(baseURL string, users []User) *Result {
	r := &Result{
		baseURL: baseURL,
		users:   append([]User(nil), users...),
	}
	for _, u := range users {
		if !u.OK() {
			r.failed++
		}
	}
	return r
}

// BaseURL is the target every VU must use.
func (r *Result) BaseURL() string {
	return r.baseURL
}

// Users returns a copy of the seeded users, in seed order.
func (r *Result) Users() []User {
	return append([]User(nil), r.users...)
}

// Data returns a fresh copy of the data map handed to iterations.
func (r *Result) Data() map[string]string {
	return map[string]string{"baseUrl": r.baseURL}
}

// Failed is the number of seed requests that did not succeed.
func (r *Result) Failed() int {
	return r.failed
}

// Seeded is the number of seed requests that succeeded.
func (r *Result) Seeded() int {
	return len(r.users) - r.failed
}
