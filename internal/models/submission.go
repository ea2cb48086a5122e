package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Submission is the untrusted payload posted by the public contact form
type Submission struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Urgent    Flag   `json:"urgent"`
	Anonymous Flag   `json:"anonymous"`
}

// Flag is a boolean form field. Browsers and older front-ends post it as a
// JSON boolean, a number or a checkbox string ("on", "1", "true").
type Flag bool

// UnmarshalJSON accepts booleans, numbers and truthy strings
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = false
		return nil
	}

	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = Flag(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := parseFlagString(s)
		if err != nil {
			return err
		}
		*f = Flag(v)
		return nil
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid flag value %s", data)
		}
		*f = n != 0
		return nil
	}
}

// Bool returns the flag as a plain bool
func (f Flag) Bool() bool {
	return bool(f)
}

func parseFlagString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes", "y":
		return true, nil
	case "", "0", "false", "off", "no", "n":
		return false, nil
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return n != 0, nil
	}
	return false, fmt.Errorf("invalid flag value %q", s)
}
