// Package pdf genera o termo de negociação de um cliente a partir do
// histórico do ledger.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor              │  TERMO DE NEGOCIAÇÃO + Fecha │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE: CNPJ/CPF + cantidad de registros                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Data | Detalhes                                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR de conferencia + leyenda                         │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/fernanda-api/internal/application/billing"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

var _ billing.NegotiationTermGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

const detailChars = 95

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.NegotiationTermGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	issuer      string
	issuerTaxID string
	now         func() time.Time
}

// NewMarotoPDFGenerator construye el generador; issuer es la razón social que firma el termo.
func NewMarotoPDFGenerator(issuer, issuerTaxID string) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{issuer: issuer, issuerTaxID: issuerTaxID, now: time.Now}
}

// GenerateNegotiationTerm genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateNegotiationTerm(_ context.Context, taxID string, negotiations []*entity.Negotiation) ([]byte, error) {
	issued := g.now()
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Termo de negociação", true).
		WithAuthor(g.issuer, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.issuer, g.issuerTaxID, issued))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(taxID, len(negotiations)))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableDetailRows(negotiations) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(taxID, len(negotiations), issued))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emisor (izq) y título + fecha de emisión (der).
func headerRow(issuer, issuerTaxID string, issued time.Time) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(issuer, "NEXUZ"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("CNPJ: "+nonEmpty(taxid.Format(issuerTaxID), "—"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("TERMO DE NEGOCIAÇÃO", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("Emitido em "+issued.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

// customerRow: CNPJ/CPF del cliente y cantidad de registros.
func customerRow(taxID string, count int) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("CNPJ/CPF: %s   |   Negociações registradas: %d", taxid.Format(taxID), count),
				props.Text{Size: 9, Top: 6}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("#", 1, align.Center),
		h("Data", 2, align.Left),
		h("Detalhes", 9, align.Left),
	)
}

// tableDetailRows: una fila por negociación, la altura crece con el texto.
func tableDetailRows(negotiations []*entity.Negotiation) []core.Row {
	result := make([]core.Row, 0, len(negotiations))
	for _, n := range negotiations {
		chunks := splitEvery(n.Details, detailChars)
		if len(chunks) == 0 {
			chunks = []string{"—"}
		}
		details := make([]core.Component, 0, len(chunks))
		for i, c := range chunks {
			details = append(details, text.New(c, props.Text{Size: 8, Top: 1 + float64(i)*4, Left: 1}))
		}
		result = append(result, row.New(float64(len(chunks))*4+3).Add(
			col.New(1).Add(text.New(fmt.Sprintf("%d", n.ID), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(n.CreatedAt.Format("02/01/2006 15:04"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(9).Add(details...),
		))
	}
	return result
}

// footerRow: QR de conferencia + leyenda.
func footerRow(taxID string, count int, issued time.Time) core.Row {
	qr := fmt.Sprintf("NEXUZ|TERMO|%s|%d|%s", taxid.Normalize(taxID), count, issued.UTC().Format(time.RFC3339))
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(qr, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Este termo reúne as negociações registradas para o cliente, da mais recente para a mais antiga.", props.Text{
				Size: 8, Top: 6, Left: 3, Color: colorGray,
			}),
			text.New("Os registros são definitivos: não podem ser alterados nem excluídos.", props.Text{
				Style: fontstyle.Bold, Size: 8, Top: 16, Left: 3, Color: colorPrimary,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// splitEvery divide s en trozos de max n runas.
func splitEvery(s string, n int) []string {
	r := []rune(s)
	var parts []string
	for len(r) > n {
		parts = append(parts, string(r[:n]))
		r = r[n:]
	}
	if len(r) > 0 {
		parts = append(parts, string(r))
	}
	return parts
}
