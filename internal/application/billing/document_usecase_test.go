package billing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

type memStorage struct {
	keys  []string
	types []string
	err   error
}

func (s *memStorage) Store(_ context.Context, key, contentType string, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	s.types = append(s.types, contentType)
	return "https://bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=abc", nil
}

type stubExtractor struct {
	text string
	conf *float64
	url  string
}

func (e *stubExtractor) Extract(_ context.Context, url string) (*ports.Extraction, error) {
	e.url = url
	return &ports.Extraction{Text: e.text, Confidence: e.conf}, nil
}

const receiptText = "Comprovante\nBeneficiário: NEXUZ TECNOLOGIA\nValor: R$ 103,50\nData: 27/03/2025"

func newDocumentUC(ext ports.DocumentExtractor, st ports.DocumentStorage) *DocumentUseCase {
	return NewDocumentUseCase(ext, st, Beneficiary{Name: "Nexuz Tecnologia"}, logger.Nop()).
		WithClock(func() time.Time { return fixedNow })
}

func docRequest() DocumentRequest {
	p := sampleProvider()
	return DocumentRequest{Customer: p.customers["22333444000155"], Charges: p.charges["cus_1"]}
}

func TestValidateText_Valido(t *testing.T) {
	req := docRequest()
	req.Text = receiptText
	out := newDocumentUC(nil, nil).ValidateText(context.Background(), req)

	require.Equal(t, dto.StatusSuccess, out.Status)
	assert.True(t, out.Valido, "%v", out.Divergencias)
	assert.Equal(t, "pay_1", out.BoletoID)
	assert.InDelta(t, 1.0, out.Confianca, 1e-9)
}

func TestValidateText_SinClienteVerificado(t *testing.T) {
	out := newDocumentUC(nil, nil).ValidateText(context.Background(), DocumentRequest{Text: receiptText})
	assert.Equal(t, domain.KindValidation, out.ErrorKind)
}

func TestProcessUpload_PDF(t *testing.T) {
	conf := 0.9
	ext := &stubExtractor{text: receiptText, conf: &conf}
	st := &memStorage{}
	uc := newDocumentUC(ext, st)

	out := uc.ProcessUpload(context.Background(), docRequest(), "comprovante.pdf", []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"))

	require.Equal(t, dto.StatusSuccess, out.Status, out.Mensagem)
	assert.True(t, out.Valido)
	assert.InDelta(t, 0.9, out.Confianca, 1e-9)
	require.Len(t, st.keys, 1)
	assert.True(t, strings.HasPrefix(st.keys[0], "22333444000155/"))
	assert.True(t, strings.HasSuffix(st.keys[0], ".pdf"))
	assert.Equal(t, "application/pdf", st.types[0])
	assert.Equal(t, out.URLDocumento, ext.url)
}

func TestProcessUpload_TipoNoAceptado(t *testing.T) {
	st := &memStorage{}
	out := newDocumentUC(&stubExtractor{}, st).ProcessUpload(context.Background(), docRequest(), "nota.txt", []byte("apenas texto"))
	assert.Equal(t, domain.KindValidation, out.ErrorKind)
	assert.Empty(t, st.keys)
}

func TestProcessUpload_SinConfiguracion(t *testing.T) {
	out := newDocumentUC(nil, nil).ProcessUpload(context.Background(), docRequest(), "c.png", []byte("\x89PNG\r\n\x1a\n"))
	assert.Equal(t, domain.KindConfiguration, out.ErrorKind)
}

func TestProcessUpload_FallaDeAlmacenamiento(t *testing.T) {
	st := &memStorage{err: errors.Join(domain.ErrConnectivity, errors.New("dial tcp"))}
	out := newDocumentUC(&stubExtractor{}, st).ProcessUpload(context.Background(), docRequest(), "c.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	assert.Equal(t, domain.KindConnectivity, out.ErrorKind)
}
