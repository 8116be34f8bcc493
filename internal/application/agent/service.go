package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fernanda-api/internal/application/billing"
	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

// Respuestas fijas al cliente cuando el modelo no puede contestar.
const (
	ApologyReply   = "Desculpe, tive um problema para processar sua solicitação agora. Pode tentar novamente em instantes?"
	StepLimitReply = "Desculpe, não consegui concluir seu atendimento agora. Vou precisar de mais um momento: pode repetir sua solicitação?"
)

// DocumentUploader subida de comprobantes (ProcessUpload de billing).
type DocumentUploader interface {
	ProcessUpload(ctx context.Context, req billing.DocumentRequest, filename string, data []byte) dto.DocumentValidationOutput
}

// ServiceConfig límites del bucle de atención.
type ServiceConfig struct {
	MaxSteps    int
	TurnTimeout time.Duration
}

// ConversationService orquesta un turno: historial, decisión del modelo,
// despacho de herramientas y persistencia de la sesión.
type ConversationService struct {
	decider    ports.DecisionMaker
	dispatcher *Dispatcher
	store      SessionStore
	uploader   DocumentUploader
	locks      *keyedMutex
	cfg        ServiceConfig
	log        *logger.Logger
	now        func() time.Time
}

// NewConversationService construye el servicio. uploader puede ser nil.
func NewConversationService(decider ports.DecisionMaker, dispatcher *Dispatcher, store SessionStore, uploader DocumentUploader, cfg ServiceConfig, log *logger.Logger) *ConversationService {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 6
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 60 * time.Second
	}
	return &ConversationService{
		decider:    decider,
		dispatcher: dispatcher,
		store:      store,
		uploader:   uploader,
		locks:      newKeyedMutex(),
		cfg:        cfg,
		log:        log.Component("conversation"),
		now:        time.Now,
	}
}

// HandleMessage procesa un mensaje del cliente y devuelve la respuesta de Fernanda.
// Los errores del modelo se convierten en una disculpa; solo las fallas de
// sesión (store, cancelación) se devuelven como error.
func (s *ConversationService) HandleMessage(ctx context.Context, conversationID, text string) (dto.MessageResponse, error) {
	text = strings.TrimSpace(text)
	if strings.TrimSpace(conversationID) == "" {
		return dto.MessageResponse{}, fmt.Errorf("%w: conversation id vacío", domain.ErrValidation)
	}
	if text == "" {
		return dto.MessageResponse{}, fmt.Errorf("%w: mensagem vazia", domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TurnTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, conversationID)
	if err != nil {
		return dto.MessageResponse{}, fmt.Errorf("%w: conversa ocupada: %v", domain.ErrRemote, err)
	}
	defer unlock()

	sess, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	sess.History = append(sess.History, ports.Turn{Role: ports.RoleUser, Text: text})

	resp := dto.MessageResponse{ConversationID: conversationID, Tools: []dto.ToolCallDTO{}}
	tools := s.dispatcher.Tools()
	log := s.logFor(ctx).With("conversation", conversationID)

	for resp.Steps < s.cfg.MaxSteps {
		resp.Steps++
		action, err := s.decider.ChooseAction(ctx, sess.History, tools)
		if err != nil {
			log.Error().Err(err).Int("step", resp.Steps).Msg("tomador de decisión falló")
			resp.Reply = ApologyReply
			break
		}
		if !action.Kind.IsTool() {
			resp.Reply = strings.TrimSpace(action.Text)
			if resp.Reply == "" {
				resp.Reply = ApologyReply
			}
			break
		}

		if action.CallID == "" {
			action.CallID = uuid.NewString()
		}
		call := action
		if !json.Valid(call.Args) {
			call.Args = json.RawMessage(`{}`)
		}
		sess.History = append(sess.History, ports.Turn{Role: ports.RoleAssistant, Text: action.Text, Action: &call})

		res := s.dispatcher.Dispatch(ctx, sess, action)
		sess.History = append(sess.History, toolTurn(action, res))
		sess.Trajectory = append(sess.Trajectory, action.Kind)

		o := res.GetOutcome()
		resp.Tools = append(resp.Tools, dto.ToolCallDTO{Tool: string(action.Kind), Status: o.Status})
		if esc, ok := res.(dto.EscalationOutput); ok && o.OK() {
			resp.Escalated = true
			resp.Ticket = esc.Ticket
		}
	}
	if resp.Reply == "" {
		log.Warn().Int("steps", resp.Steps).Msg("límite de pasos alcanzado")
		resp.Reply = StepLimitReply
	}
	sess.History = append(sess.History, ports.Turn{Role: ports.RoleAssistant, Text: resp.Reply})

	if err := s.save(sess); err != nil {
		return dto.MessageResponse{}, err
	}
	log.Debug().Int("steps", resp.Steps).Int("tools", len(resp.Tools)).Bool("escalated", resp.Escalated).Msg("turno concluido")
	return resp, nil
}

// InvokeTool ejecuta una herramienta directamente (integraciones de canal),
// con la misma compuerta y la misma sesión que el bucle del modelo.
func (s *ConversationService) InvokeTool(ctx context.Context, conversationID string, kind ports.ActionKind, args json.RawMessage) (dto.Result, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("%w: conversation id vacío", domain.ErrValidation)
	}
	if !s.dispatcher.tools.Known(kind) {
		return nil, fmt.Errorf("%w: ferramenta desconhecida %q", domain.ErrNotFound, kind)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TurnTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: conversa ocupada: %v", domain.ErrRemote, err)
	}
	defer unlock()

	sess, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	res := s.dispatcher.Dispatch(ctx, sess, ports.Action{Kind: kind, Args: args})
	sess.Trajectory = append(sess.Trajectory, kind)
	if err := s.save(sess); err != nil {
		return nil, err
	}
	return res, nil
}

// UploadDocument guarda y valida un comprobante enviado por el cliente.
func (s *ConversationService) UploadDocument(ctx context.Context, conversationID, filename, chargeID string, data []byte) (dto.DocumentValidationOutput, error) {
	if s.uploader == nil {
		return dto.DocumentValidationOutput{}, fmt.Errorf("%w: envio de comprovantes não configurado", domain.ErrConfiguration)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TurnTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, conversationID)
	if err != nil {
		return dto.DocumentValidationOutput{}, fmt.Errorf("%w: conversa ocupada: %v", domain.ErrRemote, err)
	}
	defer unlock()

	sess, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return dto.DocumentValidationOutput{}, err
	}
	out := s.uploader.ProcessUpload(ctx, billing.DocumentRequest{
		Customer: sess.Customer,
		Charges:  sess.Charges,
		ChargeID: chargeID,
	}, filename, data)

	// el resultado queda en el historial para que el modelo lo considere en el próximo turno
	action := ports.Action{Kind: ports.ActionValidateDocument, CallID: uuid.NewString(), Args: json.RawMessage(`{}`)}
	sess.History = append(sess.History,
		ports.Turn{Role: ports.RoleAssistant, Action: &action},
		toolTurn(action, out),
	)
	sess.Trajectory = append(sess.Trajectory, ports.ActionValidateDocument)
	if err := s.save(sess); err != nil {
		return dto.DocumentValidationOutput{}, err
	}
	return out, nil
}

// Session devuelve el estado actual (consulta de operadores).
func (s *ConversationService) Session(ctx context.Context, conversationID string) (*Session, error) {
	return s.store.Load(ctx, conversationID)
}

// Reset borra la conversación.
func (s *ConversationService) Reset(ctx context.Context, conversationID string) error {
	unlock, err := s.locks.Lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.store.Delete(ctx, conversationID)
}

// logFor logger de la petición (request_id) si viene en ctx.
func (s *ConversationService) logFor(ctx context.Context) *logger.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l.Component("conversation")
	}
	return s.log
}

// save persiste con un contexto propio: el turno ya ocurrió aunque el
// presupuesto del turno se haya agotado.
func (s *ConversationService) save(sess *Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		s.log.Error().Err(err).Str("conversation", sess.ConversationID).Msg("guardar sesión")
		return err
	}
	return nil
}

func toolTurn(action ports.Action, res dto.Result) ports.Turn {
	payload, err := json.Marshal(res)
	if err != nil {
		payload, _ = json.Marshal(dto.FailureFrom(errors.Join(domain.ErrRemote, err)))
	}
	return ports.Turn{Role: ports.RoleTool, CallID: action.CallID, Tool: action.Kind, Result: payload}
}
