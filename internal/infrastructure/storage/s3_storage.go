package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

var _ ports.DocumentStorage = (*S3Storage)(nil)

// Config bucket de comprobantes.
type Config struct {
	Bucket       string
	Region       string
	Endpoint     string // opcional: MinIO, LocalStack
	Prefix       string
	PresignTTL   time.Duration
	UsePathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Storage guarda los comprobantes originales y entrega una URL prefirmada
// para que el servicio de extracción los lea.
type S3Storage struct {
	client    objectPutter
	presigner objectPresigner
	bucket    string
	prefix    string
	ttl       time.Duration
	log       *logger.Logger
}

// NewS3Storage carga la configuración AWS por defecto (env, perfil, rol) y crea el cliente.
func NewS3Storage(ctx context.Context, cfg Config, log *logger.Logger) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("%w: S3_BUCKET no configurado", domain.ErrConfiguration)
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: cargar configuración AWS: %v", domain.ErrConfiguration, err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})
	return newS3Storage(client, s3.NewPresignClient(client), cfg, log), nil
}

func newS3Storage(client objectPutter, presigner objectPresigner, cfg Config, log *logger.Logger) *S3Storage {
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Storage{
		client:    client,
		presigner: presigner,
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		ttl:       ttl,
		log:       log.Component("storage"),
	}
}

// Store sube el archivo bajo prefix/key y devuelve la URL de lectura temporal.
func (s *S3Storage) Store(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: chave do arquivo vazia", domain.ErrValidation)
	}
	fullKey := path.Join(s.prefix, key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: s3 put %s: %v", domain.ErrRemote, fullKey, err)
	}

	signed, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("%w: s3 presign %s: %v", domain.ErrRemote, fullKey, err)
	}
	s.log.Info().Str("key", fullKey).Int("bytes", len(data)).Str("content_type", contentType).Msg("comprobante guardado")
	return signed.URL, nil
}
