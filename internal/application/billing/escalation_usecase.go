package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

// EscalationUseCase transferir_humano: siempre exitoso, ticket corto y único.
type EscalationUseCase struct {
	node *snowflake.Node
	log  *logger.Logger
	now  func() time.Time
}

// NewEscalationUseCase nodeID identifica la instancia (0-1023) para que los ids no colisionen entre réplicas.
func NewEscalationUseCase(nodeID int64, log *logger.Logger) (*EscalationUseCase, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("escalation: snowflake node %d: %w", nodeID, err)
	}
	return &EscalationUseCase{node: node, log: log.Component("escalation"), now: time.Now}, nil
}

// Escalate genera el ticket y devuelve el contexto sin modificar.
func (uc *EscalationUseCase) Escalate(_ context.Context, contexto string) dto.EscalationOutput {
	ticket := entity.EscalationTicket{
		ID:        uc.node.Generate().Base58(),
		Context:   contexto,
		CreatedAt: uc.now(),
	}
	uc.log.Info().Str("ticket", ticket.ID).Str("context", ticket.Context).Msg("transferencia a atendimento humano")
	out := dto.EscalationOutput{Outcome: dto.Success(), Ticket: ticket.ID, Contexto: ticket.Context}
	out.Mensagem = "Atendimento transferido para um especialista"
	return out
}
