package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/sealpost/internal/storage"
)

// Repository persists post records. Implementations return ErrNotFound and
// ErrDuplicate for missing and duplicate IDs.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// BoltRepository keeps records in the local bbolt store.
type BoltRepository struct {
	db *storage.Storage
}

// NewBoltRepository creates a repository over an initialized store.
func NewBoltRepository(db *storage.Storage) *BoltRepository {
	return &BoltRepository{db: db}
}

// EncodeRecord returns the stored form of rec.
func EncodeRecord(rec *Record) ([]byte, error) {
	return json.Marshal(rec)
}

// IndexEntry returns the unencrypted summary of rec.
func IndexEntry(rec *Record) storage.IndexEntry {
	return storage.IndexEntry{
		ID:        rec.ID,
		Author:    rec.Author,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (r *BoltRepository) Insert(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	exists, err := r.db.HasPost(rec.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
	}
	return r.put(rec)
}

func (r *BoltRepository) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.db.GetPost(id)
	if err != nil {
		return nil, mapStorageErr(err, id)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode post %s: %w", id, err)
	}
	return &rec, nil
}

// List returns records ordered by creation time.
func (r *BoltRepository) List(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	index, err := r.db.GetIndex()
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(index))
	for _, entry := range index {
		rec, err := r.Get(ctx, entry.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *BoltRepository) Update(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	exists, err := r.db.HasPost(rec.ID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	return r.put(rec)
}

func (r *BoltRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapStorageErr(r.db.DeletePost(id), id)
}

func (r *BoltRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return r.db.CountPosts()
}

func (r *BoltRepository) put(rec *Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("failed to encode post %s: %w", rec.ID, err)
	}
	return r.db.PutPost(IndexEntry(rec), data)
}

func mapStorageErr(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}
