package tenancy

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClock = func() time.Time {
	return time.Date(2024, time.March, 17, 15, 42, 0, 0, time.UTC)
}

func newMockService(t *testing.T) (*SQLService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	service := NewSQLService(db).WithClock(testClock)
	return service, mock, func() { db.Close() }
}

func orgRow(id string, plan Plan) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "plan", "created_at", "updated_at"}).
		AddRow(id, "Acme", string(plan), time.Now(), time.Now())
}

func TestGetOrganization(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM organizations").
		WithArgs("org-1").
		WillReturnRows(orgRow("org-1", PlanPro))

	org, err := service.GetOrganization("org-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", org.ID)
	assert.Equal(t, PlanPro, org.Plan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrganization_NotFound(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM organizations").
		WithArgs("org-missing").
		WillReturnError(sql.ErrNoRows)

	_, err := service.GetOrganization("org-missing")
	assert.ErrorIs(t, err, ErrOrgNotFound)
}

func TestGetMember(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role", "created_at"}).
		AddRow("mem-1", "org-1", "user-1", "admin", time.Now())
	mock.ExpectQuery("SELECT (.+) FROM organization_members").
		WithArgs("org-1", "user-1").
		WillReturnRows(rows)

	member, err := service.GetMember("org-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "admin", string(member.Role))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMember_NoMembership(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM organization_members").
		WithArgs("org-1", "user-2").
		WillReturnError(sql.ErrNoRows)

	_, err := service.GetMember("org-1", "user-2")
	assert.ErrorIs(t, err, ErrNoMembership)
}

func TestSumUsageQueriesCurrentMonth(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	monthStart := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("org-1", "tasks", PeriodMonthly, monthStart).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(7)))

	total, err := service.SumUsage("org-1", ResourceTasks)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordUsageUpserts(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	dayStart := time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO usage_records").
		WithArgs(sqlmock.AnyArg(), "org-1", "user-1", "posts", PeriodMonthly,
			dayStart, int64(2), testClock()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := service.RecordUsage("org-1", "user-1", ResourcePosts, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordUsageRejectsNonPositiveCount(t *testing.T) {
	service, _, done := newMockService(t)
	defer done()

	assert.Error(t, service.RecordUsage("org-1", "user-1", ResourceTasks, 0))
	assert.Error(t, service.RecordUsage("org-1", "user-1", ResourceTasks, -3))
}

func TestCheckAndRecord_UnderLimit(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM organizations").
		WithArgs("org-1").
		WillReturnRows(orgRow("org-1", PlanFree))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(9)))
	mock.ExpectExec("INSERT INTO usage_records").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := service.CheckAndRecord("org-1", "user-1", ResourceTasks, 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndRecord_AtLimit(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	// free plan allows 10 tasks; 10 used means the next attempt is rejected
	// and nothing is written.
	mock.ExpectQuery("SELECT (.+) FROM organizations").
		WithArgs("org-1").
		WillReturnRows(orgRow("org-1", PlanFree))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(10)))

	err := service.CheckAndRecord("org-1", "user-1", ResourceTasks, 1)
	require.Error(t, err)
	assert.True(t, IsLimitExceeded(err))

	var le *LimitExceededError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ResourceTasks, le.Resource)
	assert.Equal(t, PlanFree, le.Plan)
	assert.Equal(t, int64(10), le.Limit)
	assert.Equal(t, int64(10), le.Current)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndRecord_UnknownResourceAlwaysRejected(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM organizations").
		WithArgs("org-1").
		WillReturnRows(orgRow("org-1", PlanEnterprise))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(0)))

	err := service.CheckAndRecord("org-1", "user-1", Resource("widgets"), 1)
	require.Error(t, err)

	var le *LimitExceededError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, int64(0), le.Limit)
}

func TestCheckAndRecord_MissingOrgDegradesToFree(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM organizations").
		WithArgs("org-missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(10)))

	// An unresolvable organization is enforced at free-tier limits, not
	// treated as an error.
	err := service.CheckAndRecord("org-missing", "user-1", ResourceTasks, 1)
	require.Error(t, err)

	var le *LimitExceededError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, PlanFree, le.Plan)
	assert.Equal(t, int64(10), le.Limit)
}

func TestCheckAndRecord_StorageFailureAborts(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM organizations").
		WithArgs("org-1").
		WillReturnError(errors.New("connection refused"))

	err := service.CheckAndRecord("org-1", "user-1", ResourceTasks, 1)
	require.Error(t, err)
	assert.False(t, IsLimitExceeded(err))
}

func TestReport(t *testing.T) {
	service, mock, done := newMockService(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM organizations").
		WithArgs("org-1").
		WillReturnRows(orgRow("org-1", PlanFree))
	for _, used := range []int64{10, 2, 0, 25} {
		mock.ExpectQuery("SELECT COALESCE").
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(used))
	}

	report, err := service.Report("org-1")
	require.NoError(t, err)
	assert.Equal(t, PlanFree, report.Plan)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), report.PeriodStart)

	assert.Equal(t, ResourceUsage{Used: 10, Limit: 10, Remaining: 0}, report.Resources[ResourceTasks])
	assert.Equal(t, ResourceUsage{Used: 2, Limit: 5, Remaining: 3}, report.Resources[ResourcePosts])
	assert.Equal(t, ResourceUsage{Used: 0, Limit: 3, Remaining: 3}, report.Resources[ResourceEmails])
	// Usage past the limit clamps remaining at zero.
	assert.Equal(t, ResourceUsage{Used: 25, Limit: 20, Remaining: 0}, report.Resources[ResourceLeads])
}
