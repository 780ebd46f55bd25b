package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileFormat(t *testing.T) {
	assert.Equal(t, "PDF", NewFile("/in/Section_L.PDF").Format())
	assert.Equal(t, "DOCX", NewFile("sow.docx").Format())
	assert.Equal(t, "ODT", NewFile("draft.odt").Format())
	assert.Equal(t, "Section_L.PDF", NewFile("/in/Section_L.PDF").Filename)
}

func TestTableMarkdown(t *testing.T) {
	tbl := TableData{
		Name:    "CLINs",
		Headers: []string{"CLIN", "Description"},
		Rows:    [][]string{{"0001", "Base | year"}, {"0002"}},
	}
	want := "**CLINs**\n\n| CLIN | Description |\n| --- | --- |\n| 0001 | Base \\| year |\n| 0002 |  |\n"
	assert.Equal(t, want, tbl.Markdown())
	assert.Equal(t, "", TableData{}.Markdown())
}
