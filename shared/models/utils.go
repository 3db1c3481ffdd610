package models

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to the given boolean.
func BoolPtr(b bool) *bool {
	return &b
}

// OptionalString returns nil for an empty string, so it serializes as null.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
