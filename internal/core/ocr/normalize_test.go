package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	in := "SECTION L\r\n\t\tINSTRUCTIONS   TO   OFFERORS\n\n\n\n-----\nL.1  Page limits  \n"
	got := Normalize(in)
	assert.Equal(t, "SECTION L\n INSTRUCTIONS TO OFFERORS\n\nL.1 Page limits", got)
	assert.Equal(t, "", Normalize(""))
}
