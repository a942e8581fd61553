package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		read     int64
		accepted int64
		want     Status
	}{
		{"all rows accepted", 100, 100, StatusSuccess},
		{"single row accepted", 1, 1, StatusSuccess},
		{"some rows accepted", 100, 60, StatusPartial},
		{"one row short", 100, 99, StatusPartial},
		{"nothing accepted", 100, 0, StatusFailed},
		{"empty file", 0, 0, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveStatus(tt.read, tt.accepted))
		})
	}
}
