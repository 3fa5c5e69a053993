package service

import (
	"context"
	"errors"
	"time"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"linkly-api/internal/apperr"
	"linkly-api/internal/cache"
)

const (
	qrImageSize = 256
	qrCacheTTL  = 24 * time.Hour
)

// QRCodeService renders QR codes for existing short links
type QRCodeService interface {
	Generate(ctx context.Context, code string) ([]byte, error)
}

type qrCodeService struct {
	links  URLService
	cache  cache.Cache
	logger *zap.Logger
}

// NewQRCodeService creates a QR code service. cacheClient may be nil.
func NewQRCodeService(links URLService, cacheClient cache.Cache, logger *zap.Logger) QRCodeService {
	return &qrCodeService{
		links:  links,
		cache:  cacheClient,
		logger: logger,
	}
}

func cacheKey(code string) string {
	return "qr:" + code
}

// Generate returns a PNG QR code pointing at the short URL of code
func (s *qrCodeService) Generate(ctx context.Context, code string) ([]byte, error) {
	if s.cache != nil {
		png, err := s.cache.Get(ctx, cacheKey(code))
		if err == nil {
			return png, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("QR cache read failed", zap.String("code", code), zap.Error(err))
		}
	}

	link, err := s.links.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(link.ShortURL, qrcode.Medium, qrImageSize)
	if err != nil {
		s.logger.Error("Failed to generate QR code", zap.String("code", code), zap.Error(err))
		return nil, apperr.Wrap(apperr.Transient, msgInternalError, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(code), png, qrCacheTTL); err != nil {
			s.logger.Warn("QR cache write failed", zap.String("code", code), zap.Error(err))
		}
	}

	return png, nil
}
