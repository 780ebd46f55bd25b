package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookXLSX(t *testing.T) {
	b, err := WorkbookXLSX(
		Sheet{Name: "First", Headers: []string{"A", "B"}, Rows: [][]any{{"x", 1}, {"y", 2}}, Widths: []float64{10, 12}},
		Sheet{Name: "Second", Headers: []string{"C"}},
	)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"First", "Second"}, f.GetSheetList())
	rows, err := f.GetRows("First")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}, {"x", "1"}, {"y", "2"}}, rows)

	_, err = WorkbookXLSX()
	assert.Error(t, err)
}

func TestComplianceMatrixXLSX(t *testing.T) {
	s := NewService(nil)
	b, err := s.ComplianceMatrixXLSX("p-1", []ComplianceRow{
		{ID: "0123456789", Section: "section_l", Kind: "shall", Requirement: "The offeror shall submit...", Source: "rfp.pdf", Page: 12},
		{ID: "abc", Section: "sow", Kind: "must", Requirement: "Must be secure.", Source: "sow.docx"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Compliance Matrix")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Requirement", rows[0][3])
	assert.Equal(t, []string{"01234567", "section_l", "shall", "The offeror shall submit...", "rfp.pdf", "12", "", "", "Open"}, rows[1])
	assert.Equal(t, "", rows[2][5])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
