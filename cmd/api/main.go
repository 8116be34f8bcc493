package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fernanda-api/internal/application/agent"
	"github.com/jhoicas/fernanda-api/internal/application/auth"
	"github.com/jhoicas/fernanda-api/internal/application/billing"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain/policy"
	infraai "github.com/jhoicas/fernanda-api/internal/infrastructure/ai"
	"github.com/jhoicas/fernanda-api/internal/infrastructure/asaas"
	"github.com/jhoicas/fernanda-api/internal/infrastructure/ocr"
	infrapdf "github.com/jhoicas/fernanda-api/internal/infrastructure/pdf"
	"github.com/jhoicas/fernanda-api/internal/infrastructure/postgres"
	"github.com/jhoicas/fernanda-api/internal/infrastructure/redisstore"
	"github.com/jhoicas/fernanda-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/fernanda-api/internal/interfaces/http"
	"github.com/jhoicas/fernanda-api/pkg/config"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ai_provider", cfg.AI.Provider).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}
	if len(applied) > 0 {
		log.Info().Strs("versions", applied).Msg("migraciones aplicadas")
	}

	// Ledger y operadores
	negotiationRepo := postgres.NewNegotiationRepository(pool)
	operatorRepo := postgres.NewOperatorRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Proveedor de cobros: sin ASAAS_API_KEY las herramientas responden ConfigurationError
	if cfg.Asaas.APIKey == "" {
		log.Warn().Msg("ASAAS_API_KEY no configurada: consultas y segundas vías fallarán")
	}
	asaasClient := asaas.NewClient(asaas.Config{
		APIKey:    cfg.Asaas.APIKey,
		Sandbox:   cfg.Asaas.Sandbox,
		BaseURL:   cfg.Asaas.BaseURL,
		Timeout:   cfg.Asaas.Timeout,
		RateLimit: cfg.Asaas.RateLimit,
		Burst:     cfg.Asaas.Burst,
	}, log)

	discount := policy.DiscountPolicy{
		Percent:      decimal.NewFromFloat(cfg.Policy.DiscountPercent),
		BusinessDays: cfg.Policy.DiscountBusinessDays,
	}
	lookupUC := billing.NewLookupUseCase(asaasClient, log)
	reissueUC := billing.NewReissueUseCase(asaasClient, txRunner, discount, log)
	negotiationUC := billing.NewNegotiationUseCase(negotiationRepo, txRunner, log)
	escalationUC, err := billing.NewEscalationUseCase(cfg.Agent.NodeID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("escalation")
	}

	// Comprobantes: extracción y almacenamiento son opcionales
	var extractor ports.DocumentExtractor
	if cfg.OCR.URL != "" {
		extractor = ocr.NewClient(ocr.Config{URL: cfg.OCR.URL, APIKey: cfg.OCR.APIKey, Timeout: cfg.OCR.Timeout}, log)
	}
	var docStorage ports.DocumentStorage
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3Storage(ctx, storage.Config{
			Bucket:       cfg.Storage.Bucket,
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			Prefix:       cfg.Storage.Prefix,
			PresignTTL:   cfg.Storage.PresignTTL,
			UsePathStyle: cfg.Storage.UsePathStyle,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("almacenamiento S3")
		}
		docStorage = s3Storage
	}
	documentUC := billing.NewDocumentUseCase(extractor, docStorage, billing.Beneficiary{
		Name:  cfg.Policy.BeneficiaryName,
		TaxID: cfg.Policy.BeneficiaryCNPJ,
	}, log)
	var uploader agent.DocumentUploader
	if extractor != nil && docStorage != nil {
		uploader = documentUC
	} else {
		log.Warn().Msg("OCR_URL o S3_BUCKET no configurados: envío de comprobantes deshabilitado")
	}

	// PDF: termo de negociación
	pdfGenerator := infrapdf.NewMarotoPDFGenerator(cfg.Policy.BeneficiaryName, cfg.Policy.BeneficiaryCNPJ)
	termUC := billing.NewPDFUseCase(negotiationUC, pdfGenerator)

	// Sesiones: Redis si está configurado, memoria si no
	var sessions agent.SessionStore = agent.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		sessions = redisstore.New(rdb, cfg.Redis.SessionTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR no configurado: sesiones en memoria")
	}

	decider := newDecider(cfg, log)
	toolset, err := agent.NewToolset()
	if err != nil {
		log.Fatal().Err(err).Msg("catálogo de herramientas")
	}
	dispatcher := agent.NewDispatcher(toolset, agent.Deps{
		Lookup:     lookupUC,
		Reissue:    reissueUC,
		Ledger:     negotiationUC,
		Documents:  documentUC,
		Escalation: escalationUC,
	}, log)
	conversations := agent.NewConversationService(decider, dispatcher, sessions, uploader, agent.ServiceConfig{
		MaxSteps:    cfg.Agent.MaxSteps,
		TurnTimeout: cfg.Agent.TurnTimeout,
	}, log)

	authUC := auth.NewAuthUseCase(operatorRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	bodyLimit := cfg.HTTP.BodyLimitMB << 20
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    bodyLimit,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Agent.TurnTimeout + 5*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Fernanda API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:         authUC,
		Conversations:  conversations,
		Negotiations:   negotiationUC,
		NegotiationPDF: termUC,
		Validator:      httpRouter.NewValidator(),
		JWTSecret:      cfg.JWT.Secret,
		MaxUpload:      int64(bodyLimit),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// newDecider elige el tomador de decisión según AI_PROVIDER.
func newDecider(cfg *config.Config, log *logger.Logger) ports.DecisionMaker {
	switch cfg.AI.Provider {
	case "gemini":
		return infraai.NewGeminiService(infraai.GeminiConfig{
			APIKey:  cfg.AI.GeminiAPIKey,
			Model:   cfg.AI.GeminiModel,
			BaseURL: cfg.AI.GeminiBaseURL,
			Timeout: cfg.AI.Timeout,
		}, log)
	case "keywords":
		return infraai.NewKeywordDecider()
	default:
		return infraai.NewAnthropicService(infraai.AnthropicConfig{
			APIKey:  cfg.AI.AnthropicAPIKey,
			Model:   cfg.AI.AnthropicModel,
			BaseURL: cfg.AI.AnthropicBaseURL,
			Timeout: cfg.AI.Timeout,
		}, log)
	}
}
