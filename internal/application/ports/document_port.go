package ports

import "context"

// Extraction texto extraído de un comprobante por el servicio externo.
type Extraction struct {
	Text       string
	Confidence *float64 // nil si el servicio no la informa
}

// DocumentExtractor puerto hacia el servicio de extracción (OCR).
type DocumentExtractor interface {
	Extract(ctx context.Context, documentURL string) (*Extraction, error)
}

// DocumentStorage guarda el archivo original y devuelve una URL temporal de lectura.
type DocumentStorage interface {
	Store(ctx context.Context, key, contentType string, data []byte) (url string, err error)
}
