package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

// maxPeekBytes caps how much of a request body the org-ID fallback will read.
const maxPeekBytes = 1 << 20 // 1MB

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) (string, error) {
	vars := mux.Vars(r)
	str := vars[key]
	if str == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return str, nil
}

// OrgIDFromRequest resolves the target organization ID: the {org_id} path
// variable wins; the JSON body's organizationId field is consulted only when
// the path carries none. The body is restored so downstream handlers can
// still decode it.
func OrgIDFromRequest(r *http.Request) string {
	if orgID := mux.Vars(r)["org_id"]; orgID != "" {
		return orgID
	}
	if r.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		OrganizationID string `json:"organizationId"`
	}
	// A malformed body is not this helper's problem; it simply has no org ID.
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.OrganizationID
}
