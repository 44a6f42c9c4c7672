package posts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/illarion/sealpost/internal/crypto"
	"github.com/illarion/sealpost/internal/logger"
)

// Service seals posts on write and opens them on read.
type Service struct {
	repo   Repository
	cipher FieldCipher
	log    *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for field decryption failures.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a post service.
func NewService(repo Repository, cipher FieldCipher, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		cipher: cipher,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrDiscard(s.log).With(logger.Component("posts"))
	return s
}

// Create seals and stores a new post.
func (s *Service) Create(ctx context.Context, in Input) (*Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidPost)
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidPost)
	}

	title, err := sealField(s.cipher, in.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to seal title: %w", err)
	}
	body, err := sealField(s.cipher, in.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to seal body: %w", err)
	}

	now := s.now().UTC()
	rec := &Record{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		Author:    in.Author,
		Tags:      in.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}

	return &Post{
		ID:        rec.ID,
		Title:     in.Title,
		Body:      in.Body,
		Author:    rec.Author,
		Tags:      rec.Tags,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Get loads and opens a post.
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Open(rec), nil
}

// List loads and opens every post.
func (s *Service) List(ctx context.Context) ([]*Post, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*Post, 0, len(records))
	for _, rec := range records {
		result = append(result, s.Open(rec))
	}
	return result, nil
}

// Update applies changes to a post, resealing the fields that changed.
func (s *Service) Update(ctx context.Context, id string, changes Changes) (*Post, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if changes.Title != nil {
		if strings.TrimSpace(*changes.Title) == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidPost)
		}
		if rec.Title, err = sealField(s.cipher, *changes.Title); err != nil {
			return nil, fmt.Errorf("failed to seal title: %w", err)
		}
	}
	if changes.Body != nil {
		if strings.TrimSpace(*changes.Body) == "" {
			return nil, fmt.Errorf("%w: body is required", ErrInvalidPost)
		}
		if rec.Body, err = sealField(s.cipher, *changes.Body); err != nil {
			return nil, fmt.Errorf("failed to seal body: %w", err)
		}
	}
	if changes.Author != nil {
		rec.Author = *changes.Author
	}
	if changes.Tags != nil {
		rec.Tags = changes.Tags
	}
	rec.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return s.Open(rec), nil
}

// Delete removes a post.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Open decrypts a record. Fields that fail to open are replaced with
// DecryptionFailed and listed in FailedFields.
func (s *Service) Open(rec *Record) *Post {
	p := &Post{
		ID:        rec.ID,
		Author:    rec.Author,
		Tags:      rec.Tags,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	p.Title = s.openOrSentinel(p, FieldTitle, rec.Title)
	p.Body = s.openOrSentinel(p, FieldBody, rec.Body)
	return p
}

func (s *Service) openOrSentinel(p *Post, field string, f SealedField) string {
	value, err := openField(s.cipher, f)
	if err != nil {
		s.log.Warn("failed to open post field",
			logger.ID("post_id", p.ID),
			slog.String("field", field),
			logger.ErrorKind(crypto.Kind(err)),
			logger.Error(err),
		)
		p.FailedFields = append(p.FailedFields, field)
		return DecryptionFailed
	}
	return value
}

// Reseal opens every sealed field of rec with from and seals it again with
// to. Unlike reads, any field that cannot be opened is an error.
func Reseal(rec *Record, from, to FieldCipher) (*Record, error) {
	out := *rec

	fields := []struct {
		name string
		src  SealedField
		dst  *SealedField
	}{
		{FieldTitle, rec.Title, &out.Title},
		{FieldBody, rec.Body, &out.Body},
	}
	for _, f := range fields {
		plaintext, err := openField(from, f.src)
		if err != nil {
			return nil, fmt.Errorf("post %s %s: %w", rec.ID, f.name, err)
		}
		sealed, err := sealField(to, plaintext)
		if err != nil {
			return nil, fmt.Errorf("post %s %s: %w", rec.ID, f.name, err)
		}
		*f.dst = sealed
	}
	return &out, nil
}
