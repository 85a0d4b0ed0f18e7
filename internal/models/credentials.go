package models

import "fmt"

// Credentials are the RainMaker account username and password. They are never
// persisted or logged; String redacts both.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Complete reports whether both values are present.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// String implements fmt.Stringer without revealing either value.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %s, Password: %s}", mask(c.Username), mask(c.Password))
}

// GoString keeps %#v from printing the password.
func (c Credentials) GoString() string {
	return c.String()
}

func mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "[REDACTED]"
}
