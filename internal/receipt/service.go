package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-ocr/internal/scanning"
)

// ErrInvalidReceipt is returned when a reviewed receipt cannot be saved
var ErrInvalidReceipt = errors.New("invalid receipt")

// IDGenerator generates unique IDs for receipts and extractions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service prepares uploads, runs the extraction pipeline and stores
// reviewed receipts
type Service struct {
	db          DB
	extractor   scanning.Extractor
	cacheTTL    time.Duration
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service. A cacheTTL of zero or less disables the
// extraction cache.
func NewService(db DB, extractor scanning.Extractor, cacheTTL time.Duration) *Service {
	return NewServiceWithDeps(db, extractor, cacheTTL, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor scanning.Extractor, cacheTTL time.Duration, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		cacheTTL:    cacheTTL,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameUnsafeRe = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpacesRe = regexp.MustCompile(`\s+`)
)

// sanitizeFilename trims phone-generated upload names to something readable
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = filenameUnsafeRe.ReplaceAllString(base, "")
	base = strings.TrimSpace(filenameSpacesRe.ReplaceAllString(base, " "))
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

func imageHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Extract normalizes an upload and runs the pipeline over it. Results for an
// image seen within the cache TTL are served from the database. Only upload
// normalization can fail; extraction itself always produces a result.
func (s *Service) Extract(ctx context.Context, filename string, data []byte, contentType string) (*Extraction, error) {
	prepared, _, err := scanning.PrepareImage(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("preparing image: %w", err)
	}

	hash := imageHash(prepared)
	now := s.timeSource.Now()

	if cached := s.cachedExtraction(hash, now); cached != nil {
		slog.Info("serving cached extraction", "hash", hash, "method", cached.Result.Method)
		return cached, nil
	}

	start := time.Now()
	result := s.extractor.Extract(ctx, prepared)
	slog.Info("extraction complete",
		"filename", filename,
		"method", result.Method,
		"items", len(result.Items),
		"confidence", result.Confidence,
		"duration", time.Since(start),
	)

	extraction := &Extraction{
		ID:        s.idGenerator.Generate(),
		Hash:      hash,
		Filename:  sanitizeFilename(filename),
		Result:    result,
		CreatedAt: now,
	}

	// raw text is only useful once; a later attempt may do better
	if s.cacheTTL > 0 && result.Method != scanning.MethodRawFallback {
		if err := s.db.SaveExtraction(extraction); err != nil {
			slog.Warn("failed to cache extraction", "hash", hash, "error", err)
		}
	}

	return extraction, nil
}

func (s *Service) cachedExtraction(hash string, now time.Time) *Extraction {
	if s.cacheTTL <= 0 {
		return nil
	}
	cached, err := s.db.GetExtraction(hash)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("failed to read extraction cache", "hash", hash, "error", err)
		}
		return nil
	}
	if now.Sub(cached.CreatedAt) > s.cacheTTL || cached.Result == nil {
		return nil
	}
	cached.Cached = true
	return cached
}

// GetExtraction returns a cached extraction by image hash
func (s *Service) GetExtraction(hash string) (*Extraction, error) {
	extraction, err := s.db.GetExtraction(hash)
	if err != nil {
		return nil, fmt.Errorf("getting extraction: %w", err)
	}
	extraction.Cached = true
	return extraction, nil
}

func validateReceipt(r *Receipt) error {
	if len(r.Items) == 0 && r.Metadata.Total == nil {
		return fmt.Errorf("%w: a receipt needs items or a total", ErrInvalidReceipt)
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: item %d has no description", ErrInvalidReceipt, i+1)
		}
		if !item.Amount.IsPositive() {
			return fmt.Errorf("%w: item %d amount must be positive", ErrInvalidReceipt, i+1)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("%w: item %d quantity is negative", ErrInvalidReceipt, i+1)
		}
	}
	if r.Metadata.Total != nil && r.Metadata.Total.IsNegative() {
		return fmt.Errorf("%w: total is negative", ErrInvalidReceipt)
	}
	return nil
}

// SaveReceipt persists a reviewed receipt. A missing total is taken from the
// item sum and a missing category from the establishment name.
func (s *Service) SaveReceipt(r *Receipt) (*Receipt, error) {
	if err := validateReceipt(r); err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	r.ID = s.idGenerator.Generate()
	r.CreatedAt = now
	r.UpdatedAt = now
	for i := range r.Items {
		if r.Items[i].Quantity == 0 {
			r.Items[i].Quantity = 1
		}
	}
	if r.Metadata.Total == nil {
		total := r.ItemsTotal()
		r.Metadata.Total = &total
	}
	if r.Metadata.Category == "" {
		r.Metadata.Category = scanning.DetectCategory(r.Metadata.Establishment)
	}

	if err := s.db.SaveReceipt(r); err != nil {
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}
	return r, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt
func (s *Service) DeleteReceipt(id string) error {
	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}
