package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/illarion/sealpost/internal/crypto"
)

// Bucket names
var (
	ConfigBucket = []byte("config") // KDF params, salt, check value, timestamps - unencrypted
	IndexBucket  = []byte("index")  // Public post list for ls/status - unencrypted
	PostsBucket  = []byte("posts")  // Post records with sealed fields
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigSalt     = []byte("salt")
	ConfigKDF      = []byte("kdf")
	ConfigCheck    = []byte("check")
	ConfigStoreID  = []byte("store_id")
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotInitialized = errors.New("store not initialized")
	ErrPostsChanged   = errors.New("posts changed during rotation")
)

// Check is a sealed known value used to verify a passphrase.
type Check struct {
	Envelope string `json:"envelope"`
	Nonce    string `json:"nonce"`
}

// IndexEntry is the unencrypted summary of a post
type IndexEntry struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Storage provides BBolt-based storage for sealpost
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a sealpost database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure for a new store
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, IndexBucket, PostsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// SetSalt stores the KDF salt
func (s *Storage) SetSalt(salt string) error {
	return s.update(func(config *bolt.Bucket) error {
		return config.Put(ConfigSalt, []byte(salt))
	})
}

// GetSalt retrieves the KDF salt
func (s *Storage) GetSalt() (string, error) {
	data, err := s.getConfig(ConfigSalt, "salt")
	return string(data), err
}

// SetKDFParams stores the scrypt parameters
func (s *Storage) SetKDFParams(params crypto.KDFParams) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return s.update(func(config *bolt.Bucket) error {
		return config.Put(ConfigKDF, data)
	})
}

// GetKDFParams retrieves the scrypt parameters
func (s *Storage) GetKDFParams() (crypto.KDFParams, error) {
	var params crypto.KDFParams
	data, err := s.getConfig(ConfigKDF, "kdf params")
	if err != nil {
		return params, err
	}
	err = json.Unmarshal(data, &params)
	return params, err
}

// SetCheck stores the passphrase check value
func (s *Storage) SetCheck(check Check) error {
	data, err := json.Marshal(check)
	if err != nil {
		return err
	}
	return s.update(func(config *bolt.Bucket) error {
		return config.Put(ConfigCheck, data)
	})
}

// GetCheck retrieves the passphrase check value
func (s *Storage) GetCheck() (Check, error) {
	var check Check
	data, err := s.getConfig(ConfigCheck, "check value")
	if err != nil {
		return check, err
	}
	err = json.Unmarshal(data, &check)
	return check, err
}

// UpdateModified updates the last modified timestamp
func (s *Storage) UpdateModified() error {
	return s.update(func(config *bolt.Bucket) error {
		return touch(config)
	})
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	return s.getTime(ConfigModified, "modified time")
}

// GetCreated retrieves the creation timestamp
func (s *Storage) GetCreated() (time.Time, error) {
	return s.getTime(ConfigCreated, "created time")
}

// GetStoreID retrieves the store ID from config bucket
func (s *Storage) GetStoreID() (string, error) {
	data, err := s.getConfig(ConfigStoreID, "store_id")
	return string(data), err
}

// GetOrCreateStoreID retrieves existing store ID or generates a new one
func (s *Storage) GetOrCreateStoreID() (string, error) {
	storeID, err := s.GetStoreID()
	if err == nil {
		return storeID, nil
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate store ID: %w", err)
	}
	storeID = hex.EncodeToString(b)

	if err := s.update(func(config *bolt.Bucket) error {
		return config.Put(ConfigStoreID, []byte(storeID))
	}); err != nil {
		return "", err
	}

	return storeID, nil
}

// PutPost stores a post record and its index entry
func (s *Storage) PutPost(entry IndexEntry, record []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := putPost(tx, entry, record); err != nil {
			return err
		}
		return touch(tx.Bucket(ConfigBucket))
	})
}

// GetPost retrieves a post record
func (s *Storage) GetPost(id string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		posts := tx.Bucket(PostsBucket)
		if posts == nil {
			return ErrNotInitialized
		}
		data = posts.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), data...)
		return nil
	})
	return data, err
}

// HasPost reports whether a post exists
func (s *Storage) HasPost(id string) (bool, error) {
	_, err := s.GetPost(id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// DeletePost removes a post record and its index entry
func (s *Storage) DeletePost(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		posts := tx.Bucket(PostsBucket)
		if posts == nil {
			return ErrNotInitialized
		}
		if posts.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		if err := posts.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(IndexBucket).Delete([]byte(id)); err != nil {
			return err
		}
		return touch(tx.Bucket(ConfigBucket))
	})
}

// ListPosts returns all post records ordered by ID
func (s *Storage) ListPosts() ([][]byte, error) {
	var records [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		posts := tx.Bucket(PostsBucket)
		if posts == nil {
			return ErrNotInitialized
		}
		return posts.ForEach(func(k, v []byte) error {
			records = append(records, append([]byte(nil), v...))
			return nil
		})
	})
	return records, err
}

// GetIndex returns all index entries, oldest first
func (s *Storage) GetIndex() ([]IndexEntry, error) {
	var entries []IndexEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return ErrNotInitialized
		}
		return index.ForEach(func(k, v []byte) error {
			var entry IndexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, err
}

// CountPosts returns the number of stored posts
func (s *Storage) CountPosts() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		posts := tx.Bucket(PostsBucket)
		if posts == nil {
			return ErrNotInitialized
		}
		n = posts.Stats().KeyN
		return nil
	})
	return n, err
}

// CommitRotation stores a new salt, its check value and the posts resealed
// under the new key in a single transaction. A non-nil records map must
// cover every stored post. A nil map leaves the posts bucket untouched.
func (s *Storage) CommitRotation(salt string, check Check, records map[string][]byte) error {
	checkData, err := json.Marshal(check)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		posts := tx.Bucket(PostsBucket)
		if posts == nil {
			return ErrNotInitialized
		}
		if records != nil && posts.Stats().KeyN != len(records) {
			return ErrPostsChanged
		}
		for id, record := range records {
			if posts.Get([]byte(id)) == nil {
				return fmt.Errorf("post %s: %w", id, ErrNotFound)
			}
			if err := posts.Put([]byte(id), record); err != nil {
				return err
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigSalt, []byte(salt)); err != nil {
			return err
		}
		if err := config.Put(ConfigCheck, checkData); err != nil {
			return err
		}
		return touch(config)
	})
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting posts to reclaim disk space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}

func putPost(tx *bolt.Tx, entry IndexEntry, record []byte) error {
	posts := tx.Bucket(PostsBucket)
	index := tx.Bucket(IndexBucket)
	if posts == nil || index == nil {
		return ErrNotInitialized
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := index.Put([]byte(entry.ID), data); err != nil {
		return err
	}
	return posts.Put([]byte(entry.ID), record)
}

func touch(config *bolt.Bucket) error {
	modified, _ := time.Now().MarshalBinary()
	return config.Put(ConfigModified, modified)
}

func (s *Storage) update(fn func(config *bolt.Bucket) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		return fn(config)
	})
}

func (s *Storage) getConfig(key []byte, name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data = config.Get(key)
		if data == nil {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), data...)
		return nil
	})
	return data, err
}

func (s *Storage) getTime(key []byte, name string) (time.Time, error) {
	var t time.Time
	data, err := s.getConfig(key, name)
	if err != nil {
		return t, err
	}
	err = t.UnmarshalBinary(data)
	return t, err
}
