package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
)

func replying(reply string, err error) Oracle {
	return OracleFunc(func(context.Context, Request) (string, error) { return reply, err })
}

func sectionReq(t *testing.T, key constants.SectionKey) Request {
	t.Helper()
	req, err := SectionRequest(key, "file.pdf", "content", "")
	require.NoError(t, err)
	return req
}

func TestExtractSection_Valid(t *testing.T) {
	s := NewStructuredExtractor(replying("```json\n{\"scope\":\"IT support\",\"tasks\":[{\"title\":\"Help desk\"}]}\n```", nil), true, nil)

	p, err := s.ExtractSection(context.Background(), constants.KeySOW, sectionReq(t, constants.KeySOW))
	require.NoError(t, err)
	sow, ok := p.(SOWPayload)
	require.True(t, ok)
	assert.Equal(t, "IT support", sow.Scope)
	require.Len(t, sow.Tasks, 1)
	assert.True(t, Validated(p))
}

func TestExtractSection_SchemaFailureKeepsRaw(t *testing.T) {
	s := NewStructuredExtractor(replying(`{"tasks":[]}`, nil), true, nil)

	p, err := s.ExtractSection(context.Background(), constants.KeySOW, sectionReq(t, constants.KeySOW))
	require.Error(t, err)
	assert.True(t, IsSchemaFailure(err))
	assert.Equal(t, common.KindSchemaValidation, common.Kind(err))

	u, ok := p.(UnparsedPayload)
	require.True(t, ok)
	assert.Equal(t, constants.KeySOW, u.SectionKey())
	assert.JSONEq(t, `{"tasks":[]}`, string(u.Raw))
	assert.False(t, Validated(p))
}

func TestExtractSection_LenientRepair(t *testing.T) {
	s := NewStructuredExtractor(replying(`{"clins":[{"number":1,"quantity":"3"}]}`, nil), true, nil)

	p, err := s.ExtractSection(context.Background(), constants.KeySectionB, sectionReq(t, constants.KeySectionB))
	require.NoError(t, err)
	b := p.(SectionBPayload)
	assert.Equal(t, "1", b.CLINs[0].Number)
	assert.Equal(t, 3.0, b.CLINs[0].Quantity)
}

func TestExtract_OracleFailure(t *testing.T) {
	s := NewStructuredExtractor(replying("", errors.New("quota")), false, nil)
	_, err := s.Extract(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, common.KindOracleFailure, common.Kind(err))

	s = NewStructuredExtractor(replying("no json here", nil), false, nil)
	_, err = s.Extract(context.Background(), Request{Prompt: "x"})
	assert.Equal(t, common.KindOracleFailure, common.Kind(err))
}

func TestUnparsedPayload_MarshalJSON(t *testing.T) {
	b, err := UnparsedPayload{Section: constants.KeySOW, Raw: []byte(`{"x":1}`)}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(b))
}
