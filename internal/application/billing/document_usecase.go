package billing

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/domain/policy"
	"github.com/jhoicas/fernanda-api/pkg/logger"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// Tipos de comprobante aceptados.
var allowedReceiptTypes = []string{"application/pdf", "image/jpeg", "image/png"}

// Beneficiary razón social y CNPJ que deben figurar en el comprobante.
type Beneficiary struct {
	Name  string
	TaxID string
}

// DocumentRequest comprobante de un cliente verificado.
type DocumentRequest struct {
	Customer   *entity.Customer
	Charges    []*entity.Charge
	ChargeID   string
	Text       string
	Confidence *float64
}

// DocumentUseCase validar_comprovante: contrasta el texto extraído con las pendencias.
type DocumentUseCase struct {
	extractor   ports.DocumentExtractor // opcional: solo para ProcessUpload
	storage     ports.DocumentStorage   // opcional: solo para ProcessUpload
	beneficiary Beneficiary
	log         *logger.Logger
	now         func() time.Time
}

// NewDocumentUseCase construye el caso de uso. extractor y storage pueden ser nil
// si la subida de archivos no está configurada.
func NewDocumentUseCase(extractor ports.DocumentExtractor, storage ports.DocumentStorage, beneficiary Beneficiary, log *logger.Logger) *DocumentUseCase {
	return &DocumentUseCase{
		extractor:   extractor,
		storage:     storage,
		beneficiary: beneficiary,
		log:         log.Component("document"),
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *DocumentUseCase) WithClock(now func() time.Time) *DocumentUseCase {
	uc.now = now
	return uc
}

// ValidateText valida el texto ya extraído del comprobante.
func (uc *DocumentUseCase) ValidateText(_ context.Context, req DocumentRequest) dto.DocumentValidationOutput {
	if req.Customer == nil {
		return dto.DocumentValidationOutput{Outcome: dto.FailureFrom(fmt.Errorf("%w: cliente não validado; consulte o CNPJ primeiro", domain.ErrValidation))}
	}
	result := policy.ValidateReceipt(req.Text, policy.ReceiptExpectation{
		Charges:              req.Charges,
		ChargeID:             req.ChargeID,
		BeneficiaryName:      uc.beneficiary.Name,
		BeneficiaryTaxID:     uc.beneficiary.TaxID,
		Today:                uc.now(),
		ExtractionConfidence: req.Confidence,
	})
	uc.log.Info().Str("customer", req.Customer.ID).Bool("valid", result.Valid).
		Float64("confidence", result.Confidence).Strs("mismatches", result.Mismatches).Msg("comprovante validado")

	return dto.DocumentValidationOutput{
		Outcome:      dto.Success(),
		Valido:       result.Valid,
		Confianca:    result.Confidence,
		BoletoID:     result.ChargeID,
		Divergencias: result.Mismatches,
	}
}

// ProcessUpload detecta el tipo del archivo, lo guarda, pide la extracción y valida.
func (uc *DocumentUseCase) ProcessUpload(ctx context.Context, req DocumentRequest, filename string, data []byte) dto.DocumentValidationOutput {
	if req.Customer == nil {
		return dto.DocumentValidationOutput{Outcome: dto.FailureFrom(fmt.Errorf("%w: cliente não validado; consulte o CNPJ primeiro", domain.ErrValidation))}
	}
	if uc.storage == nil || uc.extractor == nil {
		return dto.DocumentValidationOutput{Outcome: dto.FailureFrom(fmt.Errorf("%w: armazenamento ou extração de comprovantes não configurados", domain.ErrConfiguration))}
	}
	if len(data) == 0 {
		return dto.DocumentValidationOutput{Outcome: dto.FailureFrom(fmt.Errorf("%w: arquivo vazio", domain.ErrValidation))}
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedReceiptTypes...) {
		return dto.DocumentValidationOutput{Outcome: dto.FailureFrom(
			fmt.Errorf("%w: formato %s não aceito (envie PDF, JPG ou PNG)", domain.ErrValidation, mt.String()))}
	}

	key := path.Join(taxid.Normalize(req.Customer.TaxID), uuid.NewString()+mt.Extension())
	url, err := uc.storage.Store(ctx, key, mt.String(), data)
	if err != nil {
		uc.log.Error().Err(err).Str("file", filename).Msg("guardar comprobante")
		return dto.DocumentValidationOutput{Outcome: dto.FailureFrom(err)}
	}

	ext, err := uc.extractor.Extract(ctx, url)
	if err != nil {
		uc.log.Error().Err(err).Str("file", filename).Msg("extracción de comprobante")
		return dto.DocumentValidationOutput{Outcome: dto.FailureFrom(err)}
	}

	req.Text = ext.Text
	req.Confidence = ext.Confidence
	out := uc.ValidateText(ctx, req)
	out.URLDocumento = url
	return out
}
