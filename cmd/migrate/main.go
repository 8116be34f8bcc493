// migrate aplica las migraciones SQL embebidas (operators, negociacoes) y,
// opcionalmente, crea el primer operador admin.
//
// Uso:
//
//	go run ./cmd/migrate
//	go run ./cmd/migrate -admin-email admin@nexuz.com.br -admin-password '...'
//	go run ./cmd/migrate -list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jhoicas/fernanda-api/internal/application/auth"
	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/infrastructure/postgres"
	"github.com/jhoicas/fernanda-api/pkg/config"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run devuelve el código de salida: 0 ok, 1 error de ejecución, 2 uso incorrecto.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("migrate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		list          bool
		adminEmail    string
		adminPassword string
		adminName     string
	)
	cmd.BoolVar(&list, "list", false, "lista las migraciones embebidas y termina")
	cmd.StringVar(&adminEmail, "admin-email", os.Getenv("ADMIN_EMAIL"), "email del operador admin inicial")
	cmd.StringVar(&adminPassword, "admin-password", os.Getenv("ADMIN_PASSWORD"), "password del operador admin inicial (mín. 8)")
	cmd.StringVar(&adminName, "admin-name", "Administrador", "nombre del operador admin")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if list {
		migrations, err := postgres.Migrations()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "leer migraciones: %v\n", err)
			return 1
		}
		for _, m := range migrations {
			_, _ = fmt.Fprintln(stdout, m.Version)
		}
		return 0
	}
	if (adminEmail == "") != (adminPassword == "") {
		_, _ = fmt.Fprintln(stderr, "Error: -admin-email y -admin-password van juntos")
		return 2
	}
	if adminPassword != "" && len(adminPassword) < 8 {
		_, _ = fmt.Fprintln(stderr, "Error: -admin-password debe tener al menos 8 caracteres")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "cargar configuración: %v\n", err)
		return 1
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: stderr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL")
		return 1
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool)
	if err != nil {
		log.Error().Err(err).Strs("applied", applied).Msg("migraciones")
		return 1
	}
	log.Info().Strs("versions", applied).Int("count", len(applied)).Msg("migraciones aplicadas")

	if adminEmail == "" {
		return 0
	}
	authUC := auth.NewAuthUseCase(postgres.NewOperatorRepository(pool), auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	op, err := authUC.RegisterOperator(ctx, dto.RegisterOperatorRequest{
		Email:    adminEmail,
		Password: adminPassword,
		Name:     adminName,
		Role:     entity.RoleAdmin,
	})
	switch {
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		log.Info().Str("email", adminEmail).Msg("operador admin ya existe")
	case err != nil:
		log.Error().Err(err).Msg("crear operador admin")
		return 1
	default:
		log.Info().Str("id", op.ID).Str("email", op.Email).Msg("operador admin creado")
	}
	return 0
}
