package http

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/fernanda-api/internal/application/agent"
	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
)

// ConversationService lo implementa *agent.ConversationService.
type ConversationService interface {
	HandleMessage(ctx context.Context, conversationID, text string) (dto.MessageResponse, error)
	InvokeTool(ctx context.Context, conversationID string, kind ports.ActionKind, args json.RawMessage) (dto.Result, error)
	UploadDocument(ctx context.Context, conversationID, filename, chargeID string, data []byte) (dto.DocumentValidationOutput, error)
	Session(ctx context.Context, conversationID string) (*agent.Session, error)
	Reset(ctx context.Context, conversationID string) error
}

// NegotiationReader lo implementa *billing.NegotiationUseCase.
type NegotiationReader interface {
	List(ctx context.Context, rawTaxID string) dto.CheckNegotiationsOutput
}

// TermRenderer lo implementa *billing.PDFUseCase.
type TermRenderer interface {
	DownloadNegotiationTerm(ctx context.Context, rawTaxID string) ([]byte, string, error)
}

// AuthService lo implementa *auth.AuthUseCase.
type AuthService interface {
	RegisterOperator(ctx context.Context, in dto.RegisterOperatorRequest) (*dto.OperatorResponse, error)
	Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error)
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC         AuthService
	Conversations  ConversationService
	Negotiations   NegotiationReader
	NegotiationPDF TermRenderer
	Validator      *validator.Validate
	JWTSecret      string
	MaxUpload      int64
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	v := deps.Validator
	if v == nil {
		v = NewValidator()
	}
	api := app.Group("/api")

	// Auth: login público, alta de operadores solo admin
	authHandler := NewAuthHandler(deps.AuthUC, v)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register", AuthMiddleware(deps.JWTSecret), RequireRole(entity.RoleAdmin), authHandler.Register)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Conversaciones: canal de mensajería
	convHandler := NewConversationHandler(deps.Conversations, v, deps.MaxUpload)
	conv := protected.Group("/conversations")
	conv.Post("/:id/messages", RequireRole(entity.RoleCanal, entity.RoleAdmin), convHandler.SendMessage)
	conv.Post("/:id/documents", RequireRole(entity.RoleCanal, entity.RoleAdmin), convHandler.UploadDocument)
	conv.Get("/:id", RequireRole(entity.RoleAgente, entity.RoleAdmin), convHandler.GetSession)
	conv.Delete("/:id", RequireRole(entity.RoleCanal, entity.RoleAdmin), convHandler.Reset)

	// Herramientas: invocación directa
	toolHandler := NewToolHandler(deps.Conversations, v)
	protected.Post("/tools/:tool", RequireRole(entity.RoleCanal, entity.RoleAdmin), toolHandler.Invoke)

	// Ledger de negociaciones: atendentes
	negHandler := NewNegotiationHandler(deps.Negotiations, deps.NegotiationPDF, v)
	neg := protected.Group("/negociacoes", RequireRole(entity.RoleAgente, entity.RoleAdmin))
	neg.Get("/:cnpj/termo.pdf", negHandler.DownloadTerm)
	neg.Get("/:cnpj", negHandler.List)
}

// param copia el parámetro de ruta: fasthttp reutiliza el buffer al terminar la petición.
func param(c *fiber.Ctx, name string) string {
	return utils.CopyString(c.Params(name))
}
