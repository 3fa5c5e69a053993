package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"linkly-api/internal/apperr"
	"linkly-api/internal/entities"
	"linkly-api/internal/metrics"
	"linkly-api/internal/repository"
)

const (
	codeLength      = 7
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	maxCodeAttempts = 5

	msgProvideURL    = "Please provide a URL"
	msgInvalidURL    = "Invalid URL format provided"
	msgNoURLFound    = "No URL found"
	msgInternalError = "Internal Server Error"
)

// Resolution is the outcome of a shorten request. Created is false when an
// existing link for the same long URL was returned.
type Resolution struct {
	Link    *entities.ShortLink
	Created bool
}

// URLService defines the link resolution operations
type URLService interface {
	ResolveOrCreate(ctx context.Context, longURL string, ownerID *string) (*Resolution, error)
	ResolveAndVisit(ctx context.Context, code string) (string, error)
	ListByOwner(ctx context.Context, userID string) ([]*entities.ShortLink, error)
	Lookup(ctx context.Context, code string) (*entities.ShortLink, error)
}

// CodeGenerator produces candidate short codes
type CodeGenerator func() (string, error)

type URLServiceOption func(*urlService)

// WithCodeGenerator replaces the random code generator
func WithCodeGenerator(gen CodeGenerator) URLServiceOption {
	return func(s *urlService) {
		s.generate = gen
	}
}

type urlService struct {
	repo     repository.URLRepository
	baseURL  string
	generate CodeGenerator
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewURLService creates a new URL service
func NewURLService(repo repository.URLRepository, baseURL string, logger *zap.Logger, m *metrics.Metrics, opts ...URLServiceOption) URLService {
	s := &urlService{
		repo:     repo,
		baseURL:  strings.TrimRight(baseURL, "/"),
		generate: GenerateShortCode,
		validate: validator.New(),
		logger:   logger,
		metrics:  m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Short codes that would be shadowed by fixed routes
var reservedCodes = map[string]bool{
	"api":     true,
	"health":  true,
	"metrics": true,
	"login":   true,
	"logout":  true,
	"signup":  true,
}

// GenerateShortCode returns a random 7-character URL-safe code
func GenerateShortCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// The alphabet has 64 symbols, so the low six bits map uniformly.
	for i, b := range buf {
		buf[i] = codeAlphabet[b&63]
	}
	return string(buf), nil
}

// hasOnlyURIChars reports whether s uses only RFC 3986 characters and every
// '%' starts a two-digit hex escape. url.Parse alone lets spaces, quotes,
// angle brackets and non-ASCII through.
func hasOnlyURIChars(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.IndexByte(uriSymbols, c) >= 0:
		case c == '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return false
			}
			i += 2
		default:
			return false
		}
	}
	return true
}

// Unreserved, gen-delims and sub-delims other than alphanumerics
const uriSymbols = "-._~:/?#[]@!$&'()*+,;="

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func (s *urlService) transient(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperr.Wrap(apperr.Transient, msgInternalError, err)
}

// ResolveOrCreate returns the existing link for longURL or creates a new one
func (s *urlService) ResolveOrCreate(ctx context.Context, longURL string, ownerID *string) (*Resolution, error) {
	if strings.TrimSpace(longURL) == "" {
		return nil, apperr.New(apperr.InvalidInput, msgProvideURL)
	}
	if err := s.validate.Var(longURL, "url"); err != nil {
		s.logger.Debug("Rejected invalid URL", zap.String("url", longURL))
		return nil, apperr.Wrap(apperr.InvalidInput, msgInvalidURL, err)
	}
	if !hasOnlyURIChars(longURL) {
		s.logger.Debug("Rejected URL with characters outside RFC 3986", zap.String("url", longURL))
		return nil, apperr.New(apperr.InvalidInput, msgInvalidURL)
	}

	// Dedup is global: the requester's identity plays no part in a hit.
	existing, err := s.repo.FindByLongURL(ctx, longURL)
	if err == nil {
		s.metrics.ObserveResolve(false)
		return &Resolution{Link: existing}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.transient("Failed to look up long URL", err)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, s.transient("Failed to generate short code", err)
		}
		if reservedCodes[strings.ToLower(code)] {
			continue
		}

		link := &entities.ShortLink{
			Code:     code,
			LongURL:  longURL,
			ShortURL: s.baseURL + "/" + code,
			Owner:    ownerID,
		}

		stored, created, err := s.repo.Create(ctx, link)
		if errors.Is(err, repository.ErrUnknownOwner) && ownerID != nil {
			// A validly signed token can name a user this store never saw.
			s.logger.Warn("Token user not found, creating anonymous link",
				zap.String("user_id", *ownerID))
			ownerID = nil
			attempt--
			continue
		}
		if errors.Is(err, repository.ErrCodeConflict) {
			s.logger.Warn("Short code collision, retrying",
				zap.String("code", code),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, s.transient("Failed to create short link", err)
		}

		if created {
			s.logger.Info("Short link created",
				zap.String("code", stored.Code),
				zap.Bool("owned", stored.Owner != nil))
		}
		s.metrics.ObserveResolve(created)
		return &Resolution{Link: stored, Created: created}, nil
	}

	return nil, s.transient("Failed to create short link",
		fmt.Errorf("failed to generate unique short code after %d attempts", maxCodeAttempts))
}

// ResolveAndVisit records one click on code and returns its long URL
func (s *urlService) ResolveAndVisit(ctx context.Context, code string) (string, error) {
	if code == "" {
		s.metrics.ObserveRedirect(false)
		return "", apperr.New(apperr.NotFound, msgNoURLFound)
	}

	longURL, err := s.repo.IncrementClicks(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.ObserveRedirect(false)
		return "", apperr.Wrap(apperr.NotFound, msgNoURLFound, err)
	}
	if err != nil {
		return "", s.transient("Failed to record visit", err)
	}

	s.metrics.ObserveRedirect(true)
	return longURL, nil
}

// ListByOwner returns the links owned by userID, oldest first
func (s *urlService) ListByOwner(ctx context.Context, userID string) ([]*entities.ShortLink, error) {
	links, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, s.transient("Failed to list user links", err)
	}
	if links == nil {
		links = []*entities.ShortLink{}
	}
	return links, nil
}

// Lookup returns the link for code without recording a visit
func (s *urlService) Lookup(ctx context.Context, code string) (*entities.ShortLink, error) {
	if code == "" {
		return nil, apperr.New(apperr.NotFound, msgNoURLFound)
	}

	link, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.NotFound, msgNoURLFound, err)
	}
	if err != nil {
		return nil, s.transient("Failed to look up short code", err)
	}
	return link, nil
}
