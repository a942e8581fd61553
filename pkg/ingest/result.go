package ingest

import (
	"time"

	"github.com/datamolt/searchload/pkg/records"
)

// Status classifies the outcome of processing one source file.
type Status string

const (
	// StatusSuccess: every row read was accepted by the store.
	StatusSuccess Status = "success"

	// StatusPartial: some but not all rows were accepted.
	StatusPartial Status = "partial"

	// StatusFailed: no rows were accepted, or the file had no rows.
	StatusFailed Status = "failed"

	// StatusError: the file could not be read or parsed at all.
	StatusError Status = "error"
)

// FileResult is the per-file outcome of an ingestion run.
type FileResult struct {
	FileID       string `json:"file_id"`
	RowsRead     int64  `json:"rows_read"`
	RowsAccepted int64  `json:"rows_accepted"`
	Status       Status `json:"status"`
	Message      string `json:"message,omitempty"`
}

// deriveStatus computes the file status from row counts:
// success iff every row read was accepted and at least one row was read;
// failed iff nothing was accepted or nothing was read; partial otherwise.
func deriveStatus(rowsRead, rowsAccepted int64) Status {
	switch {
	case rowsRead > 0 && rowsRead == rowsAccepted:
		return StatusSuccess
	case rowsAccepted == 0 || rowsRead == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// FailedRecord captures one document the store rejected inside an
// otherwise-successful bulk response. Field names match the dead-letter
// payload contract.
type FailedRecord struct {
	DocumentID  string           `json:"document_id"`
	ErrorType   string           `json:"error_type"`
	ErrorReason string           `json:"error_reason"`
	Document    records.Document `json:"document"`
}

// BatchOutcome is the result of dispatching one batch.
type BatchOutcome struct {
	// Accepted is the number of documents credited for the batch. It is
	// zero whenever the response reported any item-level error, even if
	// some items were individually written.
	Accepted int

	// Failed holds the item-level rejections, in submission order.
	Failed []FailedRecord
}

// Summary aggregates an entire ingestion run.
type Summary struct {
	RunID          string        `json:"run_id"`
	Collection     string        `json:"collection"`
	Files          []FileResult  `json:"files"`
	FilesProcessed int           `json:"files_processed"`
	FilesSkipped   int           `json:"files_skipped"`
	RowsRead       int64         `json:"rows_read"`
	RowsAccepted   int64         `json:"rows_accepted"`
	Duration       time.Duration `json:"duration_ns"`
}
