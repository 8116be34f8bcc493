package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// PDFUseCase genera el termo de negociación (PDF) a partir del historial del ledger.
type PDFUseCase struct {
	negotiations *NegotiationUseCase
	generator    NegotiationTermGenerator
}

// NewPDFUseCase construye el caso de uso inyectando sus dependencias.
func NewPDFUseCase(negotiations *NegotiationUseCase, generator NegotiationTermGenerator) *PDFUseCase {
	return &PDFUseCase{negotiations: negotiations, generator: generator}
}

// DownloadNegotiationTerm retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si el CNPJ no tiene negociaciones.
//   - domain.ErrValidation       si el CNPJ está vacío.
func (uc *PDFUseCase) DownloadNegotiationTerm(ctx context.Context, rawTaxID string) (pdfBytes []byte, filename string, err error) {
	list, err := uc.negotiations.History(ctx, rawTaxID)
	if err != nil {
		return nil, "", err
	}
	digits := taxid.Normalize(rawTaxID)
	pdfBytes, err = uc.generator.GenerateNegotiationTerm(ctx, digits, list)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, fmt.Sprintf("termo_negociacao_%s.pdf", digits), nil
}
