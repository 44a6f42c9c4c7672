package posts

import (
	"errors"
	"time"

	"github.com/illarion/sealpost/internal/crypto"
)

// DecryptionFailed replaces a field that could not be opened.
const DecryptionFailed = "[decryption failed]"

// Field names used in FailedFields and logs.
const (
	FieldTitle = "title"
	FieldBody  = "body"
)

var (
	ErrNotFound    = errors.New("post not found")
	ErrDuplicate   = errors.New("post already exists")
	ErrInvalidPost = errors.New("invalid post")
)

// FieldCipher seals and opens individual string fields.
type FieldCipher interface {
	Encrypt(plaintext string) (*crypto.Sealed, error)
	Decrypt(envelope, nonceHex string) (string, error)
}

// SealedField is a persisted encrypted value with its companion nonce.
type SealedField struct {
	Envelope string `json:"envelope" bson:"envelope"`
	Nonce    string `json:"nonce" bson:"nonce"`
}

// Record is the persisted shape of a post.
type Record struct {
	ID        string      `json:"id" bson:"_id"`
	Title     SealedField `json:"title" bson:"title"`
	Body      SealedField `json:"body" bson:"body"`
	Author    string      `json:"author,omitempty" bson:"author,omitempty"`
	Tags      []string    `json:"tags,omitempty" bson:"tags,omitempty"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// Post is the decrypted view of a record.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	FailedFields []string `json:"-"`
}

// Degraded reports whether any field was replaced with DecryptionFailed.
func (p *Post) Degraded() bool {
	return len(p.FailedFields) > 0
}

// Input holds the fields for a new post.
type Input struct {
	Title  string
	Body   string
	Author string
	Tags   []string
}

// Changes lists fields to update. Nil fields are left as they are.
type Changes struct {
	Title  *string
	Body   *string
	Author *string
	Tags   []string
}

func sealField(cipher FieldCipher, value string) (SealedField, error) {
	sealed, err := cipher.Encrypt(value)
	if err != nil {
		return SealedField{}, err
	}
	return SealedField{Envelope: sealed.Envelope, Nonce: sealed.NonceHex}, nil
}

func openField(cipher FieldCipher, f SealedField) (string, error) {
	return cipher.Decrypt(f.Envelope, f.Nonce)
}
