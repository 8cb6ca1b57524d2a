package wizard

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/vcfbot/internal/vcf"
)

func TestDraftHappyPath(t *testing.T) {
	d := New()
	require.True(t, d.ExpectsDocument())

	require.NoError(t, d.AcceptNumbers([]string{"111", "222", "333"}))
	assert.Equal(t, StepContactName, d.Step)
	require.NoError(t, d.AcceptText("  Lead "))
	require.NoError(t, d.AcceptText("leads.vcf"))
	require.NoError(t, d.AcceptText("2"))
	require.NoError(t, d.AcceptText("100"))
	require.True(t, d.Done())

	assert.Equal(t, vcf.Options{ContactName: "Lead", Stem: "leads", ChunkSize: 2, StartIndex: 100}, d.Options())
}

func TestDraftRejectionsKeepStep(t *testing.T) {
	d := New()
	assert.ErrorIs(t, d.AcceptText("hello"), ErrUnexpectedInput)
	assert.ErrorIs(t, d.AcceptNumbers(nil), vcf.ErrNoNumbers)
	assert.Equal(t, StepFile, d.Step)

	require.NoError(t, d.AcceptNumbers([]string{"1"}))
	assert.ErrorIs(t, d.AcceptNumbers([]string{"2"}), ErrUnexpectedInput)
	assert.ErrorIs(t, d.AcceptText("   "), ErrEmptyText)
	assert.Equal(t, StepContactName, d.Step)

	require.NoError(t, d.AcceptText("Name"))
	assert.ErrorIs(t, d.AcceptText(" "), ErrEmptyText)
	require.NoError(t, d.AcceptText("out"))

	assert.ErrorIs(t, d.AcceptText("fifty"), ErrInvalidNumber)
	assert.ErrorIs(t, d.AcceptText("0"), vcf.ErrInvalidChunkSize)
	assert.ErrorIs(t, d.AcceptText("-3"), vcf.ErrInvalidChunkSize)
	assert.ErrorIs(t, d.AcceptText("99999999999999999999"), ErrInvalidNumber)
	assert.Equal(t, StepChunkSize, d.Step)

	require.NoError(t, d.AcceptText("50"))
	assert.ErrorIs(t, d.AcceptText("1.5"), ErrInvalidNumber)
	assert.Equal(t, StepStartIndex, d.Step)
	require.NoError(t, d.AcceptText("-10"))
	assert.Equal(t, -10, d.StartIndex)

	assert.ErrorIs(t, d.AcceptText("more"), ErrUnexpectedInput)
}

func TestDraftNumericExtremes(t *testing.T) {
	maxInt := strconv.Itoa(math.MaxInt)

	d := New()
	require.NoError(t, d.AcceptNumbers([]string{"111", "222", "333"}))
	require.NoError(t, d.AcceptText("Lead"))
	require.NoError(t, d.AcceptText("leads"))
	require.NoError(t, d.AcceptText(maxInt))
	assert.Equal(t, math.MaxInt, d.ChunkSize)

	assert.ErrorIs(t, d.AcceptText(maxInt), ErrInvalidNumber)
	assert.ErrorIs(t, d.AcceptText(strconv.Itoa(math.MaxInt-1)), ErrInvalidNumber)
	assert.ErrorIs(t, d.AcceptText("-99999999999999999999"), ErrInvalidNumber)
	assert.Equal(t, StepStartIndex, d.Step)

	require.NoError(t, d.AcceptText(strconv.Itoa(math.MaxInt-2)))
	require.True(t, d.Done())

	docs, err := vcf.Generate(d.Numbers, d.Options())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 3, docs[0].Contacts)
	assert.Contains(t, string(docs[0].Body), "FN:Lead "+maxInt)
}
