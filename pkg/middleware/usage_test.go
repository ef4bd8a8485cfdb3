package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/pulseboard/pkg/auth"
	"github.com/pulseboard/pulseboard/pkg/tenancy"
)

// serveEnforced runs a request through guard + enforcer the way the API
// router composes them.
func serveEnforced(svc *stubService, resource tenancy.Resource, req *http.Request) *httptest.ResponseRecorder {
	guard := NewOrgGuard(svc, nil)
	enforcer := NewUsageEnforcer(svc, nil)

	router := mux.NewRouter()
	router.Handle("/api/orgs/{org_id}/"+string(resource),
		guard.RequireAccess("")(enforcer.Enforce(resource, 1)(okHandler()))).Methods("POST")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestEnforce_UnderLimitRecordsUsage(t *testing.T) {
	svc := newStubService()
	svc.addOrg("org-1", tenancy.PlanFree)
	svc.addMember("org-1", "user-1", auth.RoleMember)

	req := withIdentity(httptest.NewRequest("POST", "/api/orgs/org-1/tasks", nil), "user-1")
	rec := serveEnforced(svc, tenancy.ResourceTasks, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	used, _ := svc.SumUsage("org-1", tenancy.ResourceTasks)
	assert.Equal(t, int64(1), used)
}

func TestEnforce_OverLimitReturns402WithDetails(t *testing.T) {
	svc := newStubService()
	svc.addOrg("org-1", tenancy.PlanFree)
	svc.addMember("org-1", "user-1", auth.RoleMember)

	// free plan allows 10 tasks; the 11th attempt is rejected.
	for i := 0; i < 10; i++ {
		req := withIdentity(httptest.NewRequest("POST", "/api/orgs/org-1/tasks", nil), "user-1")
		rec := serveEnforced(svc, tenancy.ResourceTasks, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	req := withIdentity(httptest.NewRequest("POST", "/api/orgs/org-1/tasks", nil), "user-1")
	rec := serveEnforced(svc, tenancy.ResourceTasks, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var body struct {
		Error   string `json:"error"`
		Plan    string `json:"plan"`
		Limit   int64  `json:"limit"`
		Current int64  `json:"current"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "usage limit exceeded", body.Error)
	assert.Equal(t, "free", body.Plan)
	assert.Equal(t, int64(10), body.Limit)
	assert.Equal(t, int64(10), body.Current)

	// The rejected attempt must not have been charged.
	used, _ := svc.SumUsage("org-1", tenancy.ResourceTasks)
	assert.Equal(t, int64(10), used)
}

func TestEnforce_UsageIsOrgWide(t *testing.T) {
	svc := newStubService()
	svc.addOrg("org-1", tenancy.PlanFree)
	svc.addMember("org-1", "user-1", auth.RoleMember)
	svc.addMember("org-1", "user-2", auth.RoleMember)

	// Two users share the org's 3-email allowance.
	for _, userID := range []string{"user-1", "user-2", "user-1"} {
		req := withIdentity(httptest.NewRequest("POST", "/api/orgs/org-1/emails", nil), userID)
		rec := serveEnforced(svc, tenancy.ResourceEmails, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := withIdentity(httptest.NewRequest("POST", "/api/orgs/org-1/emails", nil), "user-2")
	rec := serveEnforced(svc, tenancy.ResourceEmails, req)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestEnforce_ServiceFailureFailsClosed(t *testing.T) {
	svc := newStubService()
	svc.addOrg("org-1", tenancy.PlanFree)
	svc.addMember("org-1", "user-1", auth.RoleMember)
	svc.usageErr = errors.New("connection refused")

	req := withIdentity(httptest.NewRequest("POST", "/api/orgs/org-1/tasks", nil), "user-1")
	rec := serveEnforced(svc, tenancy.ResourceTasks, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"usage enforcement failed"}`, rec.Body.String())
}

func TestEnforce_MissingOrgContextIsAFault(t *testing.T) {
	svc := newStubService()
	enforcer := NewUsageEnforcer(svc, nil)
	handler := enforcer.Enforce(tenancy.ResourceTasks, 1)(okHandler())

	// Enforcer reached without RequireAccess having run.
	req := withIdentity(httptest.NewRequest("POST", "/api/tasks", nil), "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
