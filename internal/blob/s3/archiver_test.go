package s3blob

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfort/riskgovernor/internal/domain"
)

type fakeObjectWriter struct {
	paths []string
	err   error
}

func (f *fakeObjectWriter) Put(_ context.Context, path string, _ io.Reader, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.paths = append(f.paths, path)
	return nil
}

func (f *fakeObjectWriter) PutMultipart(_ context.Context, path string, _ io.Reader, _ int64) error {
	if f.err != nil {
		return f.err
	}
	f.paths = append(f.paths, path)
	return nil
}

type fakeObjectChecker struct {
	exists bool
	err    error
}

func (f *fakeObjectChecker) Exists(context.Context, string) (bool, error) {
	return f.exists, f.err
}

type fakeHistoryStore struct {
	records []domain.CheckRecord
	deleted int
}

func (f *fakeHistoryStore) ListBefore(context.Context, time.Time) ([]domain.CheckRecord, error) {
	return f.records, nil
}

func (f *fakeHistoryStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	f.deleted++
	return int64(len(f.records)), nil
}

type fakeAudit struct {
	events []string
}

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func agedRecords(n int) []domain.CheckRecord {
	recs := make([]domain.CheckRecord, n)
	for i := range recs {
		recs[i] = domain.CheckRecord{
			ID:        "chk-" + string(rune('a'+i)),
			MarketID:  "mkt-1",
			Approved:  true,
			CreatedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return recs
}

func TestArchiveChecksUploadsVerifiesAndPrunes(t *testing.T) {
	ctx := context.Background()
	w := &fakeObjectWriter{}
	store := &fakeHistoryStore{records: agedRecords(3)}
	audit := &fakeAudit{}
	a := NewArchiver(w, &fakeObjectChecker{exists: true}, store, audit)

	count, err := a.ArchiveChecks(ctx, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 1, store.deleted)
	require.Len(t, w.paths, 1)
	assert.Equal(t, "archive/checks/2026-08/20260801T000000Z.jsonl", w.paths[0])
	assert.Equal(t, []string{"archive.checks"}, audit.events)
}

func TestArchiveChecksRunsInSameMonthUseDistinctKeys(t *testing.T) {
	ctx := context.Background()
	w := &fakeObjectWriter{}
	store := &fakeHistoryStore{records: agedRecords(2)}
	a := NewArchiver(w, &fakeObjectChecker{exists: true}, store, &fakeAudit{})

	_, err := a.ArchiveChecks(ctx, time.Date(2026, 8, 5, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = a.ArchiveChecks(ctx, time.Date(2026, 8, 19, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, w.paths, 2)
	assert.NotEqual(t, w.paths[0], w.paths[1])
}

func TestArchiveChecksDoesNotPruneWhenVerifyFails(t *testing.T) {
	ctx := context.Background()
	store := &fakeHistoryStore{records: agedRecords(2)}
	a := NewArchiver(&fakeObjectWriter{}, &fakeObjectChecker{exists: false}, store, &fakeAudit{})

	_, err := a.ArchiveChecks(ctx, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Zero(t, store.deleted)
}

func TestArchiveChecksDoesNotPruneWhenUploadFails(t *testing.T) {
	ctx := context.Background()
	store := &fakeHistoryStore{records: agedRecords(1)}
	w := &fakeObjectWriter{err: errors.New("upload refused")}
	a := NewArchiver(w, &fakeObjectChecker{exists: true}, store, &fakeAudit{})

	_, err := a.ArchiveChecks(ctx, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Zero(t, store.deleted)
}

func TestArchiveChecksNoRecordsIsNoOp(t *testing.T) {
	ctx := context.Background()
	w := &fakeObjectWriter{}
	audit := &fakeAudit{}
	a := NewArchiver(w, &fakeObjectChecker{exists: true}, &fakeHistoryStore{}, audit)

	count, err := a.ArchiveChecks(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, w.paths)
	assert.Empty(t, audit.events)
}
