// internal/store/scylladb/mock_scylladb_test.go
package scylladb

import (
	"context"
	"strings"
	"testing"

	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSession is a mock implementation of session
type MockSession struct {
	mock.Mock
}

// Close implements the Session.Close method
func (m *MockSession) Close() {
	m.Called()
}

// Query implements the Session.Query method
func (m *MockSession) Query(stmt string, values ...interface{}) query {
	args := m.Called(stmt, values)
	return args.Get(0).(query)
}

// MockQuery is a mock implementation of query
type MockQuery struct {
	mock.Mock
	ctx context.Context
}

// WithContext records ctx and returns the same query
func (m *MockQuery) WithContext(ctx context.Context) query {
	m.ctx = ctx
	return m
}

// Exec implements the Query.Exec method
func (m *MockQuery) Exec() error {
	args := m.Called()
	return args.Error(0)
}

// Scan implements the Query.Scan method
func (m *MockQuery) Scan(dest ...interface{}) error {
	args := m.Called(dest)
	return args.Error(0)
}

// ScanCAS implements the Query.ScanCAS method
func (m *MockQuery) ScanCAS(dest ...interface{}) (bool, error) {
	args := m.Called(dest)
	return args.Bool(0), args.Error(1)
}

func execQuery(err error) *MockQuery {
	q := new(MockQuery)
	q.On("Exec").Return(err)
	return q
}

// rowQuery scans value and members into the Get/SMembers destinations
func rowQuery(value *string, members []string) *MockQuery {
	q := new(MockQuery)
	q.On("Scan", mock.Anything).Run(func(args mock.Arguments) {
		dest := args.Get(0).([]interface{})
		*dest[0].(**string) = value
		*dest[1].(*[]string) = members
	}).Return(nil)
	return q
}

func casQuery(applied bool, err error) *MockQuery {
	q := new(MockQuery)
	q.On("ScanCAS", mock.Anything).Return(applied, err)
	return q
}

func isDDL(stmt string) bool {
	return strings.HasPrefix(stmt, "CREATE ")
}

// withMockSession swaps the session factory for the duration of the test
func withMockSession(t *testing.T, sess *MockSession) {
	t.Helper()
	original := newSessionFn
	newSessionFn = func(context.Context, *ScyllaDBConfig) (session, error) {
		return sess, nil
	}
	t.Cleanup(func() { newSessionFn = original })
}

// SetupStoreWithMocks returns a connected store backed by a mock session
func SetupStoreWithMocks(t *testing.T) (*Store, *MockSession) {
	t.Helper()
	mockSession := new(MockSession)
	mockSession.On("Query", mock.MatchedBy(isDDL), mock.Anything).Return(execQuery(nil))
	mockSession.On("Query", pingQuery, mock.Anything).Return(execQuery(nil)).Once()
	withMockSession(t, mockSession)

	logger, _, err := observability.NewTestLogger()
	require.NoError(t, err)

	s, err := New(context.Background(), NewScyllaDBConfig(), logger)
	require.NoError(t, err)
	return s, mockSession
}

func strPtr(s string) *string {
	return &s
}
