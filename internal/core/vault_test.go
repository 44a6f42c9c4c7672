package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/illarion/sealpost/internal/crypto"
	"github.com/illarion/sealpost/internal/logger"
	"github.com/illarion/sealpost/internal/posts"
)

var testParams = crypto.KDFParams{N: 1024, R: 8, P: 1, MaxMemory: 32 << 20}

func newTestVault(t *testing.T, opts ...Option) *Vault {
	t.Helper()
	path := filepath.Join(t.TempDir(), StoreFile)
	return New(path, append([]Option{WithKDFParams(testParams)}, opts...)...)
}

func initAndUnlock(t *testing.T, v *Vault, passphrase string) *Session {
	t.Helper()
	if err := v.Init([]byte(passphrase)); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	s, err := v.Unlock(context.Background(), []byte(passphrase))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInit(t *testing.T) {
	v := newTestVault(t)

	if err := v.Init([]byte("test123")); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := v.Init([]byte("test123")); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
	if _, err := os.Stat(v.Path()); err != nil {
		t.Errorf("Store file should exist: %v", err)
	}

	id, err := v.GetStoreID()
	if err != nil || id == "" {
		t.Errorf("Expected a store ID, got %q (%v)", id, err)
	}
}

func TestInitRequiresPassphrase(t *testing.T) {
	v := newTestVault(t)
	if err := v.Init(nil); !errors.Is(err, ErrPassphraseRequired) {
		t.Errorf("Expected ErrPassphraseRequired, got %v", err)
	}
}

func TestInitRejectsBadParamsWithoutCreatingStore(t *testing.T) {
	v := newTestVault(t, WithKDFParams(crypto.KDFParams{N: 1000, R: 8, P: 1, MaxMemory: 32 << 20}))

	if err := v.Init([]byte("test123")); !errors.Is(err, crypto.ErrKeyDerivation) {
		t.Fatalf("Expected ErrKeyDerivation, got %v", err)
	}
	if _, err := os.Stat(v.Path()); !os.IsNotExist(err) {
		t.Error("Store file should not exist after a failed init")
	}
}

func TestInitWithConfiguredSalt(t *testing.T) {
	v := newTestVault(t, WithInitialSalt("configured-salt"))
	s := initAndUnlock(t, v, "test123")

	if s.keys.Salt() != "configured-salt" {
		t.Errorf("Salt: got %q, want configured-salt", s.keys.Salt())
	}
}

func TestUnlock(t *testing.T) {
	v := newTestVault(t)

	if _, err := v.Unlock(context.Background(), []byte("x")); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}

	if err := v.Init([]byte("correct")); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if _, err := v.Unlock(context.Background(), []byte("wrong")); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase, got %v", err)
	}
	if err := v.VerifyPassphrase([]byte("wrong")); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase, got %v", err)
	}
	if err := v.VerifyPassphrase([]byte("correct")); err != nil {
		t.Errorf("VerifyPassphrase failed: %v", err)
	}

	s, err := v.Unlock(context.Background(), []byte("correct"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestPostsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	if err := v.Init([]byte("test123")); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	s, err := v.Unlock(ctx, []byte("test123"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	created, err := s.Posts().Create(ctx, posts.Input{Title: "title", Body: "body"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s.Close()

	s, err = v.Unlock(ctx, []byte("test123"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	defer s.Close()

	got, err := s.Posts().Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "title" || got.Body != "body" {
		t.Errorf("Got %q/%q, want title/body", got.Title, got.Body)
	}
}

func TestRotate(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	s := initAndUnlock(t, v, "test123")

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		p, err := s.Posts().Create(ctx, posts.Input{Title: title, Body: title + " body"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, p.ID)
	}

	oldSalt := s.keys.Salt()
	oldKey := append([]byte(nil), s.keys.Key()...)
	oldCodec := crypto.NewCodec(crypto.StaticKey(oldKey))

	salt, err := s.Rotate(ctx)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if salt == oldSalt || s.keys.Salt() != salt {
		t.Errorf("Rotate should install the new salt %q, active %q", salt, s.keys.Salt())
	}

	// Every post opens under the rotated key
	for _, id := range ids {
		p, err := s.Posts().Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if p.Degraded() {
			t.Errorf("Post %s should open after rotation, failed fields %v", id, p.FailedFields)
		}
	}

	// and no longer under the old one
	old := posts.NewService(s.repo, oldCodec)
	p, err := old.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Title != posts.DecryptionFailed {
		t.Errorf("Old key should not open rotated posts, got %q", p.Title)
	}

	s.Close()

	// The new salt is persisted with a matching check value
	s2, err := v.Unlock(ctx, []byte("test123"))
	if err != nil {
		t.Fatalf("Unlock after rotation failed: %v", err)
	}
	defer s2.Close()
	if s2.keys.Salt() != salt {
		t.Errorf("Persisted salt: got %q, want %q", s2.keys.Salt(), salt)
	}
	p, err = s2.Posts().Get(ctx, ids[2])
	if err != nil || p.Title != "third" {
		t.Errorf("Expected post to open after reopen, got %+v (%v)", p, err)
	}
}

func TestRotateFailsOnUnreadablePost(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	s := initAndUnlock(t, v, "test123")

	p, err := s.Posts().Create(ctx, posts.Input{Title: "title", Body: "body"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rec, err := s.repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	rec.Body.Nonce = "000000000000000000000000"
	if err := s.repo.Update(ctx, rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	salt := s.keys.Salt()
	if _, err := s.Rotate(ctx); !errors.Is(err, crypto.ErrDecode) {
		t.Fatalf("Expected ErrDecode, got %v", err)
	}
	if s.keys.Salt() != salt {
		t.Error("Failed rotation must keep the active key")
	}
}

func TestRotateLogsAction(t *testing.T) {
	var buf bytes.Buffer
	v := newTestVault(t, WithLogger(logger.New(logger.WithOutput(&buf))))
	s := initAndUnlock(t, v, "test123")

	if _, err := s.Posts().Create(context.Background(), posts.Input{Title: "title", Body: "body"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Rotate(context.Background()); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "action=rotate") || !strings.Contains(out, "posts=1") {
		t.Errorf("Expected rotation record with action and count, got:\n%s", out)
	}
}

var errRepositoryDown = errors.New("repository down")

// flakyRepository fails the failAt-th Update call and passes everything
// else through. Being a distinct type, it takes the per-record rotation path.
type flakyRepository struct {
	posts.Repository
	failAt int
	calls  int
}

func (r *flakyRepository) Update(ctx context.Context, rec *posts.Record) error {
	r.calls++
	if r.calls == r.failAt {
		return errRepositoryDown
	}
	return r.Repository.Update(ctx, rec)
}

func TestRotateRestoresPostsWhenUpdateFails(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	s := initAndUnlock(t, v, "test123")

	for _, title := range []string{"first", "second", "third"} {
		if _, err := s.Posts().Create(ctx, posts.Input{Title: title, Body: title + " body"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	inner := s.repo
	before, err := inner.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	original := make(map[string]*posts.Record, len(before))
	for _, rec := range before {
		original[rec.ID] = rec
	}
	saltBefore, err := s.db.GetSalt()
	if err != nil {
		t.Fatalf("GetSalt failed: %v", err)
	}

	repo := &flakyRepository{Repository: inner, failAt: 3}
	s.repo = repo

	if _, err := s.Rotate(ctx); !errors.Is(err, errRepositoryDown) {
		t.Fatalf("Expected errRepositoryDown, got %v", err)
	}

	// Two resealed posts were written, the third failed, both were restored
	if repo.calls != 5 {
		t.Errorf("Expected 3 updates and 2 restores, got %d calls", repo.calls)
	}

	after, err := inner.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("Expected %d posts, got %d", len(before), len(after))
	}
	for _, rec := range after {
		want := original[rec.ID]
		if want == nil {
			t.Fatalf("Unexpected post %s", rec.ID)
		}
		if rec.Title != want.Title || rec.Body != want.Body {
			t.Errorf("Post %s should carry its original envelopes", rec.ID)
		}
	}

	if salt, _ := s.db.GetSalt(); salt != saltBefore {
		t.Errorf("Stored salt changed after failed rotation: %q", salt)
	}
	if s.keys.Salt() != saltBefore {
		t.Errorf("Active salt changed after failed rotation: %q", s.keys.Salt())
	}
	if err := verifyCheck(s.db, s.codec); err != nil {
		t.Errorf("Check value should still open with the old key: %v", err)
	}

	for id := range original {
		p, err := s.Posts().Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if p.Degraded() {
			t.Errorf("Post %s should open with the old key, failed fields %v", id, p.FailedFields)
		}
	}
}

func TestRotateWithConcurrentPostWrites(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	s := initAndUnlock(t, v, "test123")

	p, err := s.Posts().Create(ctx, posts.Input{Title: "title", Body: "v0"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			body := fmt.Sprintf("v%d", i)
			if _, err := s.Posts().Update(ctx, p.ID, posts.Changes{Body: &body}); err != nil {
				t.Errorf("Update failed: %v", err)
				return
			}
			if _, err := s.Posts().Create(ctx, posts.Input{Title: "extra", Body: body}); err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 3; i++ {
		if _, err := s.Rotate(ctx); err != nil {
			close(stop)
			wg.Wait()
			t.Fatalf("Rotate failed: %v", err)
		}
	}
	close(stop)
	wg.Wait()
	s.Close()

	// Every post written during rotation opens under the persisted salt
	s2, err := v.Unlock(ctx, []byte("test123"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	defer s2.Close()

	list, err := s2.Posts().List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, post := range list {
		if post.Degraded() {
			t.Errorf("Post %s unreadable after rotation, failed fields %v", post.ID, post.FailedFields)
		}
	}
}

func TestChangePassphrase(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	s := initAndUnlock(t, v, "old-pass")

	p, err := s.Posts().Create(ctx, posts.Input{Title: "title", Body: "body"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s.Close()

	if err := v.ChangePassphrase(ctx, []byte("wrong"), []byte("new-pass")); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase, got %v", err)
	}
	if err := v.ChangePassphrase(ctx, []byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatalf("ChangePassphrase failed: %v", err)
	}

	if err := v.VerifyPassphrase([]byte("old-pass")); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Old passphrase should be rejected, got %v", err)
	}

	s2, err := v.Unlock(ctx, []byte("new-pass"))
	if err != nil {
		t.Fatalf("Unlock with new passphrase failed: %v", err)
	}
	defer s2.Close()

	got, err := s2.Posts().Get(ctx, p.ID)
	if err != nil || got.Body != "body" {
		t.Errorf("Expected post to open with new passphrase, got %+v (%v)", got, err)
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	if _, err := v.Status(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}

	s := initAndUnlock(t, v, "test123")
	if _, err := s.Posts().Create(ctx, posts.Input{Title: "t", Body: "b", Author: "alice"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s.Close()

	status, err := v.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.PostCount != 1 || len(status.Posts) != 1 {
		t.Errorf("Expected 1 post, got %d", status.PostCount)
	}
	if status.Posts[0].Author != "alice" {
		t.Errorf("Index author: got %q", status.Posts[0].Author)
	}
	if status.KDF != testParams {
		t.Errorf("KDF params: got %+v, want %+v", status.KDF, testParams)
	}
	if status.Backend != "bbolt" || status.StoreID == "" {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestCompact(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	s := initAndUnlock(t, v, "test123")

	p, err := s.Posts().Create(ctx, posts.Input{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Posts().Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	s.Close()

	if err := v.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	if err := v.VerifyPassphrase([]byte("test123")); err != nil {
		t.Errorf("Store should stay usable after compact: %v", err)
	}
}
