package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/illarion/sealpost/internal/crypto"
	"github.com/illarion/sealpost/internal/logger"
	"github.com/illarion/sealpost/internal/posts"
	"github.com/illarion/sealpost/internal/storage"
)

// Session is an unlocked store. Close it to release the store file and
// clear key material.
type Session struct {
	vault *Vault
	db    *storage.Storage
	keys  *crypto.KeyManager
	codec *crypto.Codec
	repo  posts.Repository
	posts *posts.Service
	mongo *mongo.Client

	// Post operations hold the read lock; rotation and Close hold the write
	// lock, so no post is sealed or written while keys are being replaced.
	mu sync.RWMutex
}

// Posts gives access to the posts of a session.
type Posts struct {
	s *Session
}

// Create seals and stores a new post.
func (p Posts) Create(ctx context.Context, in posts.Input) (*posts.Post, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.posts.Create(ctx, in)
}

// Get loads and opens a post.
func (p Posts) Get(ctx context.Context, id string) (*posts.Post, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.posts.Get(ctx, id)
}

// List loads and opens every post.
func (p Posts) List(ctx context.Context) ([]*posts.Post, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.posts.List(ctx)
}

// Update applies changes to a post.
func (p Posts) Update(ctx context.Context, id string, changes posts.Changes) (*posts.Post, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.posts.Update(ctx, id, changes)
}

// Delete removes a post.
func (p Posts) Delete(ctx context.Context, id string) error {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.posts.Delete(ctx, id)
}

// Codec returns the codec bound to the active key.
func (s *Session) Codec() *crypto.Codec {
	return s.codec
}

// Posts returns the post operations of the session.
func (s *Session) Posts() Posts {
	return Posts{s: s}
}

// StoreID returns the store ID, creating one if needed.
func (s *Session) StoreID() (string, error) {
	return s.db.GetOrCreateStoreID()
}

// Rotate derives a key from a new random salt, re-seals every post and the
// passphrase check under it, persists the new salt and only then makes the
// new key active. It returns the new salt.
func (s *Session) Rotate(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return "", err
	}
	key, err := s.keys.Derive(salt)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(key)

	n, err := s.reseal(ctx, salt, key)
	if err != nil {
		return "", err
	}

	s.keys.Install(salt, key)
	s.vault.log.Info("store key rotated", logger.Action("rotate"), logger.Count("posts", n))
	return salt, nil
}

// reseal rewrites every post and the check value under key and records salt.
// Posts kept in the store file land in the same transaction as the salt.
// Posts kept elsewhere are replaced one by one before the salt is committed;
// on failure the already replaced posts are restored.
// The caller must hold the write lock.
func (s *Session) reseal(ctx context.Context, salt string, key []byte) (int, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list posts: %w", err)
	}

	next := crypto.NewCodec(crypto.StaticKey(key))
	resealed := make([]*posts.Record, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		out, err := posts.Reseal(rec, s.codec, next)
		if err != nil {
			return 0, fmt.Errorf("failed to reseal: %w", err)
		}
		resealed = append(resealed, out)
	}

	check, err := sealCheck(next)
	if err != nil {
		return 0, err
	}

	if _, ok := s.repo.(*posts.BoltRepository); ok {
		encoded := make(map[string][]byte, len(resealed))
		for _, rec := range resealed {
			data, err := posts.EncodeRecord(rec)
			if err != nil {
				return 0, err
			}
			encoded[rec.ID] = data
		}
		if err := s.db.CommitRotation(salt, check, encoded); err != nil {
			return 0, fmt.Errorf("failed to commit rotation: %w", err)
		}
		return len(resealed), nil
	}

	for i, rec := range resealed {
		if err := s.repo.Update(ctx, rec); err != nil {
			s.restore(records[:i])
			return 0, fmt.Errorf("failed to store resealed post %s: %w", rec.ID, err)
		}
	}
	if err := s.db.CommitRotation(salt, check, nil); err != nil {
		s.restore(records)
		return 0, fmt.Errorf("failed to commit rotation: %w", err)
	}
	return len(resealed), nil
}

// restore writes back records sealed under the previous key.
func (s *Session) restore(records []*posts.Record) {
	// The caller's context may be the reason for the failure.
	ctx := context.Background()
	for _, rec := range records {
		if err := s.repo.Update(ctx, rec); err != nil {
			s.vault.log.Error("failed to restore post after aborted rotation",
				logger.ID("post_id", rec.ID),
				logger.Error(err),
			)
		}
	}
}

// Close clears key material and releases the store.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys.Destroy()

	var errs []error
	if s.mongo != nil {
		errs = append(errs, s.mongo.Disconnect(context.Background()))
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

func (s *Session) openRepository(ctx context.Context) error {
	if !s.vault.mongo.Enabled() {
		s.repo = posts.NewBoltRepository(s.db)
		return nil
	}

	repo, client, err := s.vault.mongoRepository(ctx)
	if err != nil {
		return err
	}
	s.repo = repo
	s.mongo = client
	return nil
}

func (v *Vault) mongoRepository(ctx context.Context) (*posts.MongoRepository, *mongo.Client, error) {
	client, err := posts.ConnectMongo(ctx, v.mongo.URL, v.mongo.Timeout)
	if err != nil {
		return nil, nil, err
	}
	coll := client.Database(v.mongo.Database).Collection(v.mongo.Collection)
	return posts.NewMongoRepository(coll), client, nil
}
