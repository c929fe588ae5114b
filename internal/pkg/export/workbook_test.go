package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNewWorkbookRoundTrip(t *testing.T) {
	wb, err := NewWorkbook([]SheetSpec{{
		Title:  "Requests",
		Header: []string{"Exam", "Status"},
		Rows:   [][]string{{"CAT", "pending"}, {"GATE", "completed"}},
	}})
	require.NoError(t, err)
	defer wb.Close()

	var buf bytes.Buffer
	_, err = wb.WriteTo(&buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Requests"}, f.GetSheetList())
	rows, err := f.GetRows("Requests")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Exam", "Status"}, {"CAT", "pending"}, {"GATE", "completed"}}, rows)
}
