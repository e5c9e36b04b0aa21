package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/openmunicipal/portal/internal/notify"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows for testing.
// It iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

// newEmptyMockRows returns a mockRows that yields zero rows.
func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// ---------- Fake notification sender ----------

// fakeSender records every notification handed to it.
type fakeSender struct {
	sent    []notify.Notification
	sendErr error
}

func (f *fakeSender) Send(_ context.Context, n notify.Notification) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, n)
	return nil
}

// ---------- Fake content cache ----------

// fakeContentCache is an in-memory ContentCache recording every operation.
type fakeContentCache struct {
	entries   map[string][]byte
	deleted   []string
	setKeys   []string
	deleteErr error
	setErr    error
}

func newFakeContentCache() *fakeContentCache {
	return &fakeContentCache{entries: map[string][]byte{}}
}

func (f *fakeContentCache) Get(key string) ([]byte, bool) {
	v, ok := f.entries[key]
	return v, ok
}

func (f *fakeContentCache) Set(key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.entries == nil {
		f.entries = map[string][]byte{}
	}
	f.entries[key] = value
	f.setKeys = append(f.setKeys, key)
	return nil
}

func (f *fakeContentCache) Delete(key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.entries, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// ---------- Fake local cache ----------

// fakeLocalCache is an in-memory LocalCache recording every operation.
type fakeLocalCache struct {
	entries map[string][]byte
	setKeys []string
	deleted []string
}

func newFakeLocalCache() *fakeLocalCache {
	return &fakeLocalCache{entries: map[string][]byte{}}
}

func (f *fakeLocalCache) Get(key string) ([]byte, bool) {
	v, ok := f.entries[key]
	return v, ok
}

func (f *fakeLocalCache) Set(key string, value []byte) {
	f.entries[key] = value
	f.setKeys = append(f.setKeys, key)
}

func (f *fakeLocalCache) Delete(key string) {
	delete(f.entries, key)
	f.deleted = append(f.deleted, key)
}
