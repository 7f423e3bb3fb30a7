package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// multipartCutoff is the payload size above which the archiver switches to
// multipart upload.
const multipartCutoff = 8 * 1024 * 1024

// HistoryStore is the narrow slice of the check ledger the archiver needs:
// read aged records, and delete them once the archive is verified. The
// Postgres check store satisfies it.
type HistoryStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.CheckRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// objectChecker verifies an uploaded object exists before the primary rows
// are deleted.
type objectChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// objectWriter is the upload surface the archiver needs. *Writer satisfies it.
type objectWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Archiver moves aged check-history records from the primary store to
// S3 JSONL objects. Rows are deleted from the primary store only after the
// uploaded object has been verified, so a failed upload never loses history.
type Archiver struct {
	writer  objectWriter
	checker objectChecker
	checks  HistoryStore
	audit   domain.AuditStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer objectWriter, checker objectChecker, checks HistoryStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer:  writer,
		checker: checker,
		checks:  checks,
		audit:   audit,
	}
}

// ArchiveChecks archives all check records older than the cutoff to a
// per-run JSONL object, verifies the object, deletes the archived rows, and
// records the run in the audit log. It returns the number of records
// archived.
func (a *Archiver) ArchiveChecks(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.checks.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive checks query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(recs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive checks marshal: %w", err)
	}

	path := archivePath("checks", before)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive checks upload: %w", err)
	}

	ok, err := a.checker.Exists(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive checks verify: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("s3blob: archive checks verify: object %s missing after upload", path)
	}

	deleted, err := a.checks.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive checks prune: %w", err)
	}

	count := int64(len(recs))
	if err := a.audit.Log(ctx, "archive.checks", map[string]any{
		"path":    path,
		"count":   count,
		"deleted": deleted,
		"before":  before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive checks audit log: %w", err)
	}
	return count, nil
}

func (a *Archiver) upload(ctx context.Context, path string, buf []byte) error {
	if len(buf) > multipartCutoff {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time. The full cutoff timestamp keys each run to
// its own object so successive runs in the same month never overwrite an
// earlier archive.
//
//	archive/checks/2026-08/20260826T120000Z.jsonl
func archivePath(kind string, before time.Time) string {
	b := before.UTC()
	return fmt.Sprintf("archive/%s/%s/%s.jsonl", kind, b.Format("2006-01"), b.Format("20060102T150405Z"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
