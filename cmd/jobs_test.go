package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/planfill-cli/internal/store"
)

func TestFormatJobsList(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:        "run-1",
			Status:    store.RunStatusCompleted,
			Result:    &store.RunResult{Plans: 3, Hits: 40, Misses: 2},
			CreatedAt: created,
			UpdatedAt: created.Add(90 * time.Second),
		},
		{
			ID:        "run-2",
			Status:    store.RunStatusRunning,
			CreatedAt: created,
			UpdatedAt: created,
		},
	}

	var buf bytes.Buffer
	formatJobsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "40")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "-")
}
