package httputil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveThroughRouter(t *testing.T, pattern string, req *http.Request) string {
	t.Helper()
	var got string
	router := mux.NewRouter()
	router.PathPrefix(pattern).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = OrgIDFromRequest(r)
	})
	router.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestOrgIDFromRequest_Path(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/orgs/org-42/usage", nil)
	got := resolveThroughRouter(t, "/api/orgs/{org_id}", req)
	assert.Equal(t, "org-42", got)
}

func TestOrgIDFromRequest_BodyFallback(t *testing.T) {
	body := bytes.NewBufferString(`{"organizationId":"org-7","title":"x"}`)
	req := httptest.NewRequest("POST", "/api/tasks", body)
	got := resolveThroughRouter(t, "/api", req)
	assert.Equal(t, "org-7", got)
}

func TestOrgIDFromRequest_PathWinsOverBody(t *testing.T) {
	body := bytes.NewBufferString(`{"organizationId":"org-other"}`)
	req := httptest.NewRequest("POST", "/api/orgs/org-1/tasks", body)
	got := resolveThroughRouter(t, "/api/orgs/{org_id}", req)
	assert.Equal(t, "org-1", got)
}

func TestOrgIDFromRequest_BodyRestoredForHandler(t *testing.T) {
	payload := `{"organizationId":"org-7","title":"hello"}`
	req := httptest.NewRequest("POST", "/api/tasks", bytes.NewBufferString(payload))

	got := OrgIDFromRequest(req)
	require.Equal(t, "org-7", got)

	// A downstream handler can still read the full body.
	rest, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(rest))
}

func TestOrgIDFromRequest_MalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/tasks", bytes.NewBufferString("not json"))
	assert.Equal(t, "", OrgIDFromRequest(req))
}

func TestOrgIDFromRequest_EmptyEverything(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/tasks", nil)
	assert.Equal(t, "", OrgIDFromRequest(req))

	req = httptest.NewRequest("POST", "/api/tasks", bytes.NewBufferString(`{"organizationId":""}`))
	assert.Equal(t, "", OrgIDFromRequest(req))
}
