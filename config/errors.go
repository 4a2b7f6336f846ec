package config

import "fmt"

// Error reports a configuration key that could not be used.
type Error struct {
	Key   string
	Value string
	Msg   string
	Cause error
}

func newInvalidValueError(key, value, msg string) error {
	return &Error{Key: key, Value: value, Msg: msg}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[CONFIG_ERROR] %s: %s: %v", e.Key, e.Msg, e.Cause)
	}
	if e.Value != "" {
		return fmt.Sprintf("[CONFIG_ERROR] %s=%q: %s", e.Key, e.Value, e.Msg)
	}
	return fmt.Sprintf("[CONFIG_ERROR] %s: %s", e.Key, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
