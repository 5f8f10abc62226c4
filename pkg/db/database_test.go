package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type capturedLogs struct {
	lines []string
}

func (c *capturedLogs) Printf(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func TestNewLogger_SkipsRecordNotFound(t *testing.T) {
	t.Parallel()

	out := &capturedLogs{}
	l := NewLogger(out)
	query := func() (string, int64) { return `SELECT * FROM "tax_rates" LIMIT 1`, 0 }

	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, out.lines)

	l.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))
	require.Len(t, out.lines, 1)
	assert.Contains(t, out.lines[0], "connection reset")
}

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	db, err := Open(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, db)
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm duplicated key", err: fmt.Errorf("insert order: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "pq unique violation", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), want: true},
		{name: "pq other", err: &pq.Error{Code: "23503"}, want: false},
		{name: "sqlite message", err: errors.New("constraint failed: UNIQUE constraint failed: orders.order_number (2067)"), want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}
