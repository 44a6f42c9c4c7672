package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/illarion/sealpost/internal/config"
	"github.com/illarion/sealpost/internal/crypto"
	"github.com/illarion/sealpost/internal/git"
	"github.com/illarion/sealpost/internal/logger"
	"github.com/illarion/sealpost/internal/posts"
	"github.com/illarion/sealpost/internal/storage"
)

const (
	StoreFile       = ".sealpost"
	passphraseCheck = "sealpost-passphrase-check"
)

var (
	ErrNotInitialized     = errors.New("sealpost store not initialized")
	ErrAlreadyExists      = errors.New("sealpost store already exists")
	ErrWrongPassphrase    = errors.New("wrong passphrase")
	ErrPassphraseRequired = errors.New("passphrase required")
)

// Vault manages a sealpost store file
type Vault struct {
	path   string
	params crypto.KDFParams
	salt   string
	mongo  config.MongoConfig
	log    *slog.Logger
}

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(v *Vault) {
		v.log = log
	}
}

// WithKDFParams sets the scrypt parameters recorded by Init.
func WithKDFParams(params crypto.KDFParams) Option {
	return func(v *Vault) {
		v.params = params
	}
}

// WithInitialSalt sets the salt recorded by Init instead of a random one.
func WithInitialSalt(salt string) Option {
	return func(v *Vault) {
		v.salt = salt
	}
}

// WithMongo keeps posts in MongoDB. Key material stays in the store file.
func WithMongo(cfg config.MongoConfig) Option {
	return func(v *Vault) {
		v.mongo = cfg
	}
}

// New creates a vault for the store file at path
func New(path string, opts ...Option) *Vault {
	v := &Vault{
		path:   path,
		params: crypto.DefaultKDFParams(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.log = logger.OrDiscard(v.log).With(logger.Component("vault"))
	return v
}

// NewFromConfig creates a vault from loaded configuration.
func NewFromConfig(cfg *config.Config, log *slog.Logger) *Vault {
	return New(cfg.DBPath,
		WithKDFParams(cfg.KDFParams()),
		WithInitialSalt(cfg.Salt),
		WithMongo(cfg.Mongo),
		WithLogger(log),
	)
}

// Path returns the store file path
func (v *Vault) Path() string {
	return v.path
}

// Init creates a new store protected by passphrase
func (v *Vault) Init(passphrase []byte) (err error) {
	if len(passphrase) == 0 {
		return ErrPassphraseRequired
	}
	if _, err := os.Stat(v.path); err == nil {
		return ErrAlreadyExists
	}
	if err := v.params.Validate(); err != nil {
		return err
	}

	db, err := storage.Open(v.path)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() {
		db.Close()
		if err != nil {
			os.Remove(v.path)
		}
	}()

	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	salt := v.salt
	if salt == "" {
		if salt, err = crypto.GenerateSalt(); err != nil {
			return err
		}
	}

	key, err := crypto.DeriveKey(passphrase, []byte(salt), crypto.KeySize, v.params)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(key)

	check, err := sealCheck(crypto.NewCodec(crypto.StaticKey(key)))
	if err != nil {
		return err
	}

	if err := db.SetSalt(salt); err != nil {
		return fmt.Errorf("failed to store salt: %w", err)
	}
	if err := db.SetKDFParams(v.params); err != nil {
		return fmt.Errorf("failed to store KDF params: %w", err)
	}
	if err := db.SetCheck(check); err != nil {
		return fmt.Errorf("failed to store passphrase check: %w", err)
	}
	if _, err := db.GetOrCreateStoreID(); err != nil {
		return fmt.Errorf("failed to create store ID: %w", err)
	}

	v.log.Info("store initialized", slog.String("path", v.path))
	return nil
}

// open opens an initialized store
func (v *Vault) open() (*storage.Storage, error) {
	if _, err := os.Stat(v.path); err != nil {
		return nil, ErrNotInitialized
	}

	db, err := storage.Open(v.path)
	if err != nil {
		return nil, err
	}

	initialized, err := db.IsInitialized()
	if err != nil || !initialized {
		db.Close()
		return nil, ErrNotInitialized
	}
	return db, nil
}

// Unlock derives the key from the stored salt and verifies the passphrase
func (v *Vault) Unlock(ctx context.Context, passphrase []byte) (*Session, error) {
	if len(passphrase) == 0 {
		return nil, ErrPassphraseRequired
	}

	db, err := v.open()
	if err != nil {
		return nil, err
	}

	s, err := v.unlock(ctx, db, passphrase)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (v *Vault) unlock(ctx context.Context, db *storage.Storage, passphrase []byte) (*Session, error) {
	salt, err := db.GetSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}
	params, err := db.GetKDFParams()
	if err != nil {
		return nil, fmt.Errorf("failed to read KDF params: %w", err)
	}

	keys, err := crypto.NewKeyManager(passphrase, salt, params, crypto.WithLogger(v.log))
	if err != nil {
		return nil, err
	}
	codec := crypto.NewCodec(keys)

	if err := verifyCheck(db, codec); err != nil {
		keys.Destroy()
		return nil, err
	}

	s := &Session{
		vault: v,
		db:    db,
		keys:  keys,
		codec: codec,
	}
	if err := s.openRepository(ctx); err != nil {
		keys.Destroy()
		return nil, err
	}
	s.posts = posts.NewService(s.repo, codec, posts.WithLogger(v.log))
	return s, nil
}

// VerifyPassphrase checks the passphrase against the store
func (v *Vault) VerifyPassphrase(passphrase []byte) error {
	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()

	salt, err := db.GetSalt()
	if err != nil {
		return err
	}
	params, err := db.GetKDFParams()
	if err != nil {
		return err
	}

	key, err := crypto.DeriveKey(passphrase, []byte(salt), crypto.KeySize, params)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(key)

	return verifyCheck(db, crypto.NewCodec(crypto.StaticKey(key)))
}

// ChangePassphrase re-seals every post under a key derived from next and a
// fresh salt.
func (v *Vault) ChangePassphrase(ctx context.Context, current, next []byte) error {
	if len(next) == 0 {
		return ErrPassphraseRequired
	}

	s, err := v.Unlock(ctx, current)
	if err != nil {
		return err
	}
	defer s.Close()

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return err
	}
	key, err := crypto.DeriveKey(next, []byte(salt), crypto.KeySize, s.keys.Params())
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(key)

	s.mu.Lock()
	n, err := s.reseal(ctx, salt, key)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	v.log.Info("passphrase changed", logger.Action("change_passphrase"), logger.Count("posts", n))
	return nil
}

// StatusInfo describes a store without unlocking it
type StatusInfo struct {
	Path      string
	StoreID   string
	Created   time.Time
	Modified  time.Time
	Algorithm string
	KDF       crypto.KDFParams
	Backend   string
	PostCount int
	Posts     []storage.IndexEntry
	GitStatus *git.GitStatus
}

// Status reports store metadata. It needs no passphrase.
func (v *Vault) Status(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	status := &StatusInfo{
		Path:      v.path,
		Algorithm: "AES-256-GCM + HMAC-SHA512",
		Backend:   "bbolt",
	}

	// Not critical
	status.StoreID, _ = db.GetStoreID()
	status.Created, _ = db.GetCreated()
	status.Modified, _ = db.GetModified()

	if status.KDF, err = db.GetKDFParams(); err != nil {
		return nil, fmt.Errorf("failed to read KDF params: %w", err)
	}

	if v.mongo.Enabled() {
		status.Backend = "mongodb"
		repo, client, err := v.mongoRepository(ctx)
		if err != nil {
			return nil, err
		}
		defer client.Disconnect(context.Background())
		if status.PostCount, err = repo.Count(ctx); err != nil {
			return nil, err
		}
	} else {
		if status.Posts, err = db.GetIndex(); err != nil {
			return nil, err
		}
		status.PostCount = len(status.Posts)
	}

	workDir := filepath.Dir(v.path)
	status.GitStatus = git.Check(workDir, filepath.Base(v.path), func(name string) bool {
		_, err := os.Stat(filepath.Join(workDir, name))
		return err == nil
	})

	return status, nil
}

// Compact rewrites the store file to reclaim free pages
func (v *Vault) Compact() error {
	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Compact()
}

// GetStoreID returns the store ID
func (v *Vault) GetStoreID() (string, error) {
	db, err := v.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetStoreID()
}

// GetOrCreateStoreID returns the store ID, creating it for stores that
// predate it
func (v *Vault) GetOrCreateStoreID() (string, error) {
	db, err := v.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetOrCreateStoreID()
}

func sealCheck(codec *crypto.Codec) (storage.Check, error) {
	sealed, err := codec.Encrypt(passphraseCheck)
	if err != nil {
		return storage.Check{}, fmt.Errorf("failed to seal passphrase check: %w", err)
	}
	return storage.Check{Envelope: sealed.Envelope, Nonce: sealed.NonceHex}, nil
}

func verifyCheck(db *storage.Storage, codec *crypto.Codec) error {
	check, err := db.GetCheck()
	if err != nil {
		return fmt.Errorf("failed to read passphrase check: %w", err)
	}

	plaintext, err := codec.Decrypt(check.Envelope, check.Nonce)
	if errors.Is(err, crypto.ErrIntegrity) || errors.Is(err, crypto.ErrAuthentication) {
		return ErrWrongPassphrase
	}
	if err != nil {
		return fmt.Errorf("failed to open passphrase check: %w", err)
	}
	if !crypto.ConstantTimeCompare([]byte(plaintext), []byte(passphraseCheck)) {
		return ErrWrongPassphrase
	}
	return nil
}
