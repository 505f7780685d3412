package utils

import "fmt"

// MissingResourceError signals that an expected metadata file, band file
// or auxiliary resource cannot be found. Resource-location failures are
// raised immediately and never retried.
type MissingResourceError struct {
	Resource string
	Location string
}

func (e *MissingResourceError) Error() string {
	if len(e.Location) > 0 {
		return fmt.Sprintf("missing resource %s at %s", e.Resource, e.Location)
	}
	return fmt.Sprintf("missing resource %s", e.Resource)
}
