package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
)

func TestClassify_Filename(t *testing.T) {
	c := New(nil)
	cases := []struct {
		filename string
		want     constants.SectionCategory
	}{
		{"Section_L_Instructions.pdf", constants.SectionL},
		{"section-m evaluation.docx", constants.SectionM},
		{"SectionM.pdf", constants.SectionM},
		{"Attachment 1 - PWS.pdf", constants.SOW},
		{"statement of work v2.docx", constants.SOW},
		{"SOO_final.pdf", constants.SOW},
		{"Pricing Workbook.xlsx", constants.SectionB},
		{"section_b_clins.pdf", constants.SectionB},
		{"Section H Special Requirements.pdf", constants.SectionH},
		{"Exhibit A CDRLs.pdf", constants.CDRL},
		{"Section_K.pdf", constants.SectionK},
		{"reps_and_certs.pdf", constants.SectionK},
		{"Section I Clauses.pdf", constants.SectionI},
		{"W912_RFP_Amendment_01.pdf", constants.RFP},
		{"draft solicitation.pdf", constants.RFP},
		{"rfq-2024-11.pdf", constants.RFQ},
		{"IFB_roofing.pdf", constants.IFB},
		{"Sources Sought RFI.pdf", constants.RFI},
	}
	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.filename, ""))
		})
	}
}

func TestClassify_SectionIDoesNotMatchLongerWords(t *testing.T) {
	c := New(nil)
	assert.Equal(t, constants.RFP, c.Classify("section_ii_notes.pdf", ""))
	assert.Equal(t, constants.RFP, c.Classify("sowing_guide.pdf", ""))
}

func TestClassify_RepsAndCertsNeedBothTokens(t *testing.T) {
	c := New(nil)
	assert.Equal(t, constants.SectionK, c.Classify("Offeror Reps Certs.pdf", ""))
	assert.Equal(t, constants.SectionK, c.Classify("representations and certifications.docx", ""))
	assert.Equal(t, constants.RFP, c.Classify("sales_reps.pdf", ""))
	assert.Equal(t, constants.RFP, c.Classify("certs_only.pdf", ""))
}

func TestClassify_SectionTokensBeatDocType(t *testing.T) {
	c := New(nil)
	assert.Equal(t, constants.SectionL, c.Classify("RFP_123_Section_L.pdf", ""))
}

func TestClassify_ContentFallback(t *testing.T) {
	c := New(nil)
	content := "DEPARTMENT OF THE NAVY\n\nSECTION M - EVALUATION FACTORS FOR AWARD\n\nM.1 Basis for award"
	res := c.ClassifyDetailed("attachment_3.pdf", content)
	assert.Equal(t, constants.SectionM, res.Category)
	assert.Equal(t, SourceContent, res.Source)

	late := strings.Repeat("x", ContentWindow+10) + " SECTION L"
	assert.Equal(t, constants.RFP, c.Classify("attachment_4.pdf", late), "only the first window is inspected")
}

func TestClassify_DefaultAndAmbiguity(t *testing.T) {
	c := New(nil)
	res := c.ClassifyDetailed("notes.txt", "meeting minutes")
	assert.Equal(t, constants.RFP, res.Category)
	assert.Equal(t, SourceDefault, res.Source)
	assert.False(t, res.Ambiguous())

	res = c.ClassifyDetailed("Section_L_and_Section_M.pdf", "")
	assert.Equal(t, constants.SectionL, res.Category, "priority order decides")
	assert.True(t, res.Ambiguous())
	assert.Equal(t, []constants.SectionCategory{constants.SectionL, constants.SectionM}, res.Candidates)
}

func TestClassify_Deterministic(t *testing.T) {
	c := New(nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, constants.CDRL, c.Classify("DD1423_CDRL.pdf", "STATEMENT OF WORK"))
	}
}
