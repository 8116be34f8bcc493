package http

import (
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/fernanda-api/internal/application/agent"
	"github.com/jhoicas/fernanda-api/internal/application/dto"
)

// ConversationHandler canal de mensajes del cliente y consulta de operadores.
type ConversationHandler struct {
	svc      ConversationService
	validate *validator.Validate
	maxBytes int64
}

// NewConversationHandler construye el handler. maxUpload limita el tamaño del comprobante.
func NewConversationHandler(svc ConversationService, v *validator.Validate, maxUpload int64) *ConversationHandler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &ConversationHandler{svc: svc, validate: v, maxBytes: maxUpload}
}

// SendMessage godoc
// @Summary      Enviar mensaje del cliente a Fernanda
// @Description  Ejecuta el ciclo de decisión (máx. AGENT_MAX_STEPS pasos) y devuelve la respuesta
// @Description  junto con las herramientas invocadas en el turno.
// @Tags         conversations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "id de la conversación (p. ej. número de WhatsApp)"
// @Param        body  body  dto.SendMessageRequest  true  "texto del cliente"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/conversations/{id}/messages [post]
func (h *ConversationHandler) SendMessage(c *fiber.Ctx) error {
	var in dto.SendMessageRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate(h.validate, in); err != nil {
		return writeError(c, err)
	}
	resp, err := h.svc.HandleMessage(c.UserContext(), param(c, "id"), in.Text)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// UploadDocument godoc
// @Summary      Enviar comprobante de pago
// @Description  Guarda el archivo (PDF, JPEG o PNG), extrae el texto y lo valida contra las
// @Description  pendencias del cliente consultado en la conversación.
// @Tags         conversations
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        id         path      string  true   "id de la conversación"
// @Param        file       formData  file    true   "comprobante"
// @Param        boleto_id  formData  string  false  "pendencia a la que corresponde"
// @Success      200   {object}  dto.DocumentValidationOutput
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      413   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/conversations/{id}/documents [post]
func (h *ConversationHandler) UploadDocument(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "campo file requerido"})
	}
	if fh.Size > h.maxBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{Code: "FILE_TOO_LARGE", Message: "arquivo excede o limite"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "no se pudo leer el archivo"})
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "no se pudo leer el archivo"})
	}

	out, err := h.svc.UploadDocument(c.UserContext(), param(c, "id"), fh.Filename, strings.TrimSpace(utils.CopyString(c.FormValue("boleto_id"))), data)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(outcomeStatus(out.Outcome)).JSON(out)
}

// GetSession godoc
// @Summary      Estado de la conversación
// @Tags         conversations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "id de la conversación"
// @Success      200  {object}  dto.SessionSummaryResponse
// @Router       /api/conversations/{id} [get]
func (h *ConversationHandler) GetSession(c *fiber.Ctx) error {
	sess, err := h.svc.Session(c.UserContext(), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSessionSummary(sess))
}

// Reset godoc
// @Summary      Reiniciar conversación
// @Tags         conversations
// @Security     Bearer
// @Param        id  path  string  true  "id de la conversación"
// @Success      204
// @Router       /api/conversations/{id} [delete]
func (h *ConversationHandler) Reset(c *fiber.Ctx) error {
	if err := h.svc.Reset(c.UserContext(), param(c, "id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func toSessionSummary(s *agent.Session) dto.SessionSummaryResponse {
	out := dto.SessionSummaryResponse{
		ConversationID: s.ConversationID,
		Verificado:     s.Verified(),
		Cliente:        dto.ToCustomerDTO(s.Customer),
		DescontoDado:   s.DiscountGiven,
		Trajetoria:     make([]string, 0, len(s.Trajectory)),
		Turnos:         len(s.History),
		AtualizadoEm:   s.UpdatedAt,
	}
	for _, ch := range s.Charges {
		out.Pendencias = append(out.Pendencias, dto.ToChargeDTO(ch))
	}
	for _, k := range s.Trajectory {
		out.Trajetoria = append(out.Trajetoria, string(k))
	}
	return out
}
