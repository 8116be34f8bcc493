package http

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// NegotiationHandler consulta del ledger por atendentes humanos.
type NegotiationHandler struct {
	ledger   NegotiationReader
	term     TermRenderer
	validate *validator.Validate
}

// NewNegotiationHandler construye el handler.
func NewNegotiationHandler(ledger NegotiationReader, term TermRenderer, v *validator.Validate) *NegotiationHandler {
	return &NegotiationHandler{ledger: ledger, term: term, validate: v}
}

// List godoc
// @Summary      Historial de negociaciones de un CNPJ
// @Tags         negociacoes
// @Security     Bearer
// @Produce      json
// @Param        cnpj    path   string  true   "CNPJ o CPF, con o sin máscara"
// @Param        limit   query  int     false  "máx. 100"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  dto.NegotiationListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/negociacoes/{cnpj} [get]
func (h *NegotiationHandler) List(c *fiber.Ctx) error {
	cnpj := param(c, "cnpj")
	if err := taxid.CheckLength(cnpj); err != nil {
		return writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros de paginación inválidos"})
	}
	page.DefaultPage()
	if err := validate(h.validate, page); err != nil {
		return writeError(c, err)
	}

	out := h.ledger.List(c.UserContext(), cnpj)
	if !out.OK() {
		return c.Status(outcomeStatus(out.Outcome)).JSON(dto.ErrorResponse{Code: outcomeCode(out.Outcome), Message: out.Mensagem})
	}

	items, meta := dto.Paginate(out.Negociacoes, page)
	return c.JSON(dto.NegotiationListResponse{
		CNPJ:        taxid.Normalize(cnpj),
		Negociacoes: items,
		Page:        meta,
	})
}

// DownloadTerm godoc
// @Summary      Descargar el termo de negociación (PDF)
// @Tags         negociacoes
// @Security     Bearer
// @Produce      application/pdf
// @Param        cnpj  path  string  true  "CNPJ o CPF"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/negociacoes/{cnpj}/termo.pdf [get]
func (h *NegotiationHandler) DownloadTerm(c *fiber.Ctx) error {
	cnpj := param(c, "cnpj")
	if err := taxid.CheckLength(cnpj); err != nil {
		return writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
	}
	pdf, filename, err := h.term.DownloadNegotiationTerm(c.UserContext(), cnpj)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "nenhuma negociação registrada para este CNPJ"})
		}
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}

func outcomeCode(o dto.Outcome) string {
	if o.Status == dto.StatusNotFound {
		return "NOT_FOUND"
	}
	switch o.ErrorKind {
	case domain.KindValidation:
		return "VALIDATION"
	case domain.KindConfiguration:
		return "NOT_CONFIGURED"
	default:
		return "UPSTREAM"
	}
}
