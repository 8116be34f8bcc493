package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/pkg/jwt"
)

type memOperators struct {
	byEmail map[string]*entity.Operator
}

func (m *memOperators) Create(_ context.Context, op *entity.Operator) error {
	if _, ok := m.byEmail[op.Email]; ok {
		return domain.ErrDuplicate
	}
	m.byEmail[op.Email] = op
	return nil
}

func (m *memOperators) GetByID(_ context.Context, id string) (*entity.Operator, error) {
	for _, op := range m.byEmail {
		if op.ID == id {
			return op, nil
		}
	}
	return nil, nil
}

func (m *memOperators) GetByEmail(_ context.Context, email string) (*entity.Operator, error) {
	return m.byEmail[email], nil
}

func newUC() (*AuthUseCase, *memOperators) {
	repo := &memOperators{byEmail: map[string]*entity.Operator{}}
	return NewAuthUseCase(repo, JWTConfig{Secret: "s3cr3t", ExpMinutes: 10, Issuer: "fernanda-api"}), repo
}

func TestRegisterAndLogin(t *testing.T) {
	uc, repo := newUC()
	ctx := context.Background()

	out, err := uc.RegisterOperator(ctx, dto.RegisterOperatorRequest{Email: " Ana@Nexuz.com.br ", Password: "senha-forte", Role: entity.RoleCanal})
	require.NoError(t, err)
	assert.Equal(t, "ana@nexuz.com.br", out.Email)
	assert.NotEqual(t, "senha-forte", repo.byEmail["ana@nexuz.com.br"].PasswordHash)

	login, err := uc.Login(ctx, dto.LoginRequest{Email: "ana@nexuz.com.br", Password: "senha-forte"})
	require.NoError(t, err)
	id, role, err := jwt.Parse("s3cr3t", login.Token)
	require.NoError(t, err)
	assert.Equal(t, out.ID, id)
	assert.Equal(t, entity.RoleCanal, role)
}

func TestRegister_RolPorDefectoAgente(t *testing.T) {
	uc, _ := newUC()
	out, err := uc.RegisterOperator(context.Background(), dto.RegisterOperatorRequest{Email: "b@x.com", Password: "12345678"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAgente, out.Role)
	assert.Equal(t, "b@x.com", out.Name)
}

func TestRegister_EmailDuplicado(t *testing.T) {
	uc, _ := newUC()
	ctx := context.Background()
	_, err := uc.RegisterOperator(ctx, dto.RegisterOperatorRequest{Email: "a@x.com", Password: "12345678"})
	require.NoError(t, err)
	_, err = uc.RegisterOperator(ctx, dto.RegisterOperatorRequest{Email: "a@x.com", Password: "12345678"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestLogin_Errores(t *testing.T) {
	uc, repo := newUC()
	ctx := context.Background()
	_, err := uc.RegisterOperator(ctx, dto.RegisterOperatorRequest{Email: "a@x.com", Password: "12345678"})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "z@x.com", Password: "12345678"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "errada"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	repo.byEmail["a@x.com"].Status = "inactive"
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "12345678"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
