package http

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
)

// toolInputs DTO de entrada por herramienta, para validar antes del despacho.
var toolInputs = map[ports.ActionKind]func() any{
	ports.ActionLookup:            func() any { return &dto.LookupInput{} },
	ports.ActionReissue:           func() any { return &dto.ReissueInput{} },
	ports.ActionRecordNegotiation: func() any { return &dto.RecordNegotiationInput{} },
	ports.ActionCheckNegotiations: func() any { return &dto.CheckNegotiationsInput{} },
	ports.ActionValidateDocument:  func() any { return &dto.ValidateDocumentInput{} },
	ports.ActionEscalate:          func() any { return &dto.EscalateInput{} },
}

// ToolHandler invocación directa de herramientas por integraciones de canal.
type ToolHandler struct {
	svc      ConversationService
	validate *validator.Validate
}

// NewToolHandler construye el handler.
func NewToolHandler(svc ConversationService, v *validator.Validate) *ToolHandler {
	return &ToolHandler{svc: svc, validate: v}
}

// Invoke godoc
// @Summary      Invocar una herramienta
// @Description  Ejecuta consulta_financeira, atualizar_boleto, registrar_negociacao, verificar_negociacao,
// @Description  validar_comprovante o transferir_humano sobre la sesión indicada, con la misma
// @Description  compuerta de CNPJ que el ciclo del modelo. El cuerpo es el JSON de argumentos.
// @Tags         tools
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        tool             path   string  true  "nombre de la herramienta"
// @Param        conversation_id  query  string  true  "id de la conversación"
// @Success      200  {object}  dto.Outcome
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tools/{tool} [post]
func (h *ToolHandler) Invoke(c *fiber.Ctx) error {
	kind := ports.ActionKind(param(c, "tool"))
	newInput, ok := toolInputs[kind]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "herramienta desconocida: " + string(kind)})
	}
	convID := strings.TrimSpace(utils.CopyString(c.Query("conversation_id")))
	if convID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "conversation_id es requerido"})
	}

	body := append([]byte(nil), c.Body()...)
	if len(body) == 0 {
		body = []byte(`{}`)
	}
	in := newInput()
	if err := json.Unmarshal(body, in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate(h.validate, in); err != nil {
		return writeError(c, err)
	}

	res, err := h.svc.InvokeTool(c.UserContext(), convID, kind, json.RawMessage(body))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(outcomeStatus(res.GetOutcome())).JSON(res)
}
