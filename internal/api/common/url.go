// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxIDLength bounds identifiers taken from the path
const maxIDLength = 128

// PathID returns the identifier held by the named path parameter. It must
// be non-empty and free of whitespace. UUIDs written with braces, in upper
// case or as urn:uuid: are returned in canonical form, matching the ids the
// sandbox issues.
func PathID(r *http.Request, name string) (string, error) {
	value, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", name)
	}

	switch {
	case strings.TrimSpace(value) == "":
		return "", fmt.Errorf("%s cannot be empty", name)
	case strings.ContainsAny(value, " \t\n\r"):
		return "", fmt.Errorf("%s cannot contain whitespace", name)
	case len(value) > maxIDLength:
		return "", fmt.Errorf("%s is longer than %d characters", name, maxIDLength)
	}

	if id, err := uuid.Parse(value); err == nil {
		return id.String(), nil
	}
	return value, nil
}
