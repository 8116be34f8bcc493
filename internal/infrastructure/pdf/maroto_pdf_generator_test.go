package pdf

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fernanda-api/internal/domain/entity"
)

func TestGenerateNegotiationTerm(t *testing.T) {
	g := NewMarotoPDFGenerator("NEXUZ Tecnologia", "11222333000181")
	g.now = func() time.Time { return time.Date(2025, 3, 28, 10, 0, 0, 0, time.UTC) }

	list := []*entity.Negotiation{
		{ID: 2, TaxID: "22333444000155", Details: "Reemissão pay_1 com 5% de desconto, novo vencimento 31/03/2025", CreatedAt: time.Date(2025, 3, 28, 9, 30, 0, 0, time.UTC)},
		{ID: 1, TaxID: "22333444000155", Details: strings.Repeat("Cliente solicitou parcelamento em 3x. ", 8), CreatedAt: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)},
	}

	out, err := g.GenerateNegotiationTerm(context.Background(), "22333444000155", list)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateNegotiationTerm_Empty(t *testing.T) {
	out, err := NewMarotoPDFGenerator("", "").GenerateNegotiationTerm(context.Background(), "22333444000155", nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestSplitEvery(t *testing.T) {
	assert.Nil(t, splitEvery("", 5))
	assert.Equal(t, []string{"abc"}, splitEvery("abc", 5))
	assert.Equal(t, []string{"negoc", "iação"}, splitEvery("negociação", 5))
}

func TestNonEmpty(t *testing.T) {
	assert.Equal(t, "x", nonEmpty("", "x"))
	assert.Equal(t, "y", nonEmpty("y", "x"))
}
