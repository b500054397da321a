package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/BTreeMap/MicroTutor/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

const receiptColumns = `id, session_id, module_id, status, stage, cause, latency_ms, created_at`

// receiptQuery builds the SELECT for a filter. placeholder renders the n-th
// bind parameter in the driver's syntax.
func receiptQuery(filter ReceiptFilter, placeholder func(n int) string) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		where = append(where, "session_id = "+placeholder(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = "+placeholder(len(args)))
	}
	q := "SELECT " + receiptColumns + " FROM generation_receipts"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.limit())
	q += " ORDER BY id DESC LIMIT " + placeholder(len(args))
	return q, args
}

// scanReceipts drains rows into receipts.
func scanReceipts(rows *sql.Rows) ([]models.GenerationReceipt, error) {
	var out []models.GenerationReceipt
	for rows.Next() {
		var r models.GenerationReceipt
		var moduleID, stage, cause sql.NullString
		var status string
		if err := rows.Scan(&r.ID, &r.SessionID, &moduleID, &status, &stage, &cause, &r.LatencyMS, &r.Time); err != nil {
			return nil, fmt.Errorf("scan receipt failed: %w", err)
		}
		r.ModuleID = moduleID.String
		r.Status = models.GenerationStatus(status)
		r.Stage = stage.String
		r.Cause = cause.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return out, nil
}
