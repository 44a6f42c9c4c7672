package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/illarion/sealpost/internal/crypto"
)

func openTestDB(t *testing.T) *Storage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.sealpost")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db
}

func TestOpenAndInitialize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sealpost")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Fresh database should not be initialized")
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	initialized, err = db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}
}

func TestSaltAndKDFParams(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.GetSalt(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound before salt is set, got %v", err)
	}

	salt := "5f8a0c1e2b3d4f5a6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c"
	if err := db.SetSalt(salt); err != nil {
		t.Fatalf("Failed to set salt: %v", err)
	}

	retrievedSalt, err := db.GetSalt()
	if err != nil {
		t.Fatalf("Failed to get salt: %v", err)
	}
	if retrievedSalt != salt {
		t.Errorf("Salt mismatch: got %v, want %v", retrievedSalt, salt)
	}

	params := crypto.DefaultKDFParams()
	if err := db.SetKDFParams(params); err != nil {
		t.Fatalf("Failed to set KDF params: %v", err)
	}

	retrievedParams, err := db.GetKDFParams()
	if err != nil {
		t.Fatalf("Failed to get KDF params: %v", err)
	}
	if retrievedParams != params {
		t.Errorf("KDF params mismatch: got %+v, want %+v", retrievedParams, params)
	}
}

func TestCheckValue(t *testing.T) {
	db := openTestDB(t)

	check := Check{Envelope: "ZW52ZWxvcGU=", Nonce: "000102030405060708090a0b"}
	if err := db.SetCheck(check); err != nil {
		t.Fatalf("Failed to set check: %v", err)
	}

	got, err := db.GetCheck()
	if err != nil {
		t.Fatalf("Failed to get check: %v", err)
	}
	if got != check {
		t.Errorf("Check mismatch: got %+v, want %+v", got, check)
	}
}

func TestStoreID(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.GetStoreID(); err == nil {
		t.Error("Expected error before store ID is created")
	}

	id, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to create store ID: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("Store ID length: got %d, want 32", len(id))
	}

	again, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to get store ID: %v", err)
	}
	if again != id {
		t.Errorf("Store ID changed: got %s, want %s", again, id)
	}
}

func TestPostOperations(t *testing.T) {
	db := openTestDB(t)

	now := time.Now()
	entries := []IndexEntry{
		{ID: "b", Author: "bob", CreatedAt: now, UpdatedAt: now},
		{ID: "a", Author: "alice", CreatedAt: now.Add(-time.Hour), UpdatedAt: now},
	}
	for _, e := range entries {
		if err := db.PutPost(e, []byte("record-"+e.ID)); err != nil {
			t.Fatalf("Failed to put post %s: %v", e.ID, err)
		}
	}

	record, err := db.GetPost("a")
	if err != nil {
		t.Fatalf("Failed to get post: %v", err)
	}
	if string(record) != "record-a" {
		t.Errorf("Record mismatch: got %s, want record-a", record)
	}

	index, err := db.GetIndex()
	if err != nil {
		t.Fatalf("Failed to get index: %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("Expected 2 index entries, got %d", len(index))
	}
	if index[0].ID != "a" {
		t.Errorf("Index should be ordered by creation time, first is %s", index[0].ID)
	}

	n, err := db.CountPosts()
	if err != nil {
		t.Fatalf("Failed to count posts: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 posts, got %d", n)
	}

	if err := db.DeletePost("a"); err != nil {
		t.Fatalf("Failed to delete post: %v", err)
	}
	if _, err := db.GetPost("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deleted post, got %v", err)
	}
	if err := db.DeletePost("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}

	exists, err := db.HasPost("b")
	if err != nil || !exists {
		t.Errorf("Post b should exist: %v", err)
	}

	records, err := db.ListPosts()
	if err != nil {
		t.Fatalf("Failed to list posts: %v", err)
	}
	if len(records) != 1 || string(records[0]) != "record-b" {
		t.Errorf("Unexpected records after delete: %q", records)
	}
}

func TestCommitRotation(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetSalt("old-salt"); err != nil {
		t.Fatalf("Failed to set salt: %v", err)
	}
	if err := db.PutPost(IndexEntry{ID: "p1"}, []byte("old")); err != nil {
		t.Fatalf("Failed to put post: %v", err)
	}

	check := Check{Envelope: "new-check", Nonce: "new-nonce"}
	if err := db.CommitRotation("new-salt", check, map[string][]byte{"p1": []byte("new")}); err != nil {
		t.Fatalf("CommitRotation failed: %v", err)
	}

	salt, _ := db.GetSalt()
	if salt != "new-salt" {
		t.Errorf("Salt not rotated: got %s", salt)
	}
	gotCheck, _ := db.GetCheck()
	if gotCheck != check {
		t.Errorf("Check not rotated: got %+v", gotCheck)
	}
	record, _ := db.GetPost("p1")
	if string(record) != "new" {
		t.Errorf("Post not resealed: got %s", record)
	}
}

func TestCommitRotationIsAtomic(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetSalt("old-salt"); err != nil {
		t.Fatalf("Failed to set salt: %v", err)
	}
	for _, id := range []string{"p1", "p2"} {
		if err := db.PutPost(IndexEntry{ID: id}, []byte("old")); err != nil {
			t.Fatalf("Failed to put post: %v", err)
		}
	}

	records := map[string][]byte{"p1": []byte("new"), "missing": []byte("x")}
	if err := db.CommitRotation("new-salt", Check{}, records); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	salt, _ := db.GetSalt()
	if salt != "old-salt" {
		t.Errorf("Salt should be unchanged after failed rotation, got %s", salt)
	}
	record, _ := db.GetPost("p1")
	if string(record) != "old" {
		t.Errorf("Post should be unchanged after failed rotation, got %s", record)
	}
}

func TestCommitRotationRejectsPartialSet(t *testing.T) {
	db := openTestDB(t)

	for _, id := range []string{"p1", "p2"} {
		if err := db.PutPost(IndexEntry{ID: id}, []byte("old")); err != nil {
			t.Fatalf("Failed to put post: %v", err)
		}
	}

	err := db.CommitRotation("new-salt", Check{}, map[string][]byte{"p1": []byte("new")})
	if !errors.Is(err, ErrPostsChanged) {
		t.Fatalf("Expected ErrPostsChanged, got %v", err)
	}

	// nil leaves posts alone
	if err := db.CommitRotation("new-salt", Check{Envelope: "e", Nonce: "n"}, nil); err != nil {
		t.Fatalf("CommitRotation without posts failed: %v", err)
	}
	record, _ := db.GetPost("p2")
	if string(record) != "old" {
		t.Errorf("Posts should be untouched, got %s", record)
	}
}

func TestModifiedTimestamp(t *testing.T) {
	db := openTestDB(t)

	before, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified time: %v", err)
	}
	created, err := db.GetCreated()
	if err != nil {
		t.Fatalf("Failed to get created time: %v", err)
	}
	if !created.Equal(before) {
		t.Errorf("Created and modified should match after init")
	}

	time.Sleep(10 * time.Millisecond)
	if err := db.UpdateModified(); err != nil {
		t.Fatalf("Failed to update modified time: %v", err)
	}

	after, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified time: %v", err)
	}
	if !after.After(before) {
		t.Errorf("Modified time should advance: before %v, after %v", before, after)
	}
}

func TestPersistenceAndCompact(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sealpost")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	if err := db.SetSalt("persisted-salt"); err != nil {
		t.Fatalf("Failed to set salt: %v", err)
	}
	if err := db.PutPost(IndexEntry{ID: "p1"}, []byte("data")); err != nil {
		t.Fatalf("Failed to put post: %v", err)
	}
	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	db.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	salt, err := db2.GetSalt()
	if err != nil || salt != "persisted-salt" {
		t.Fatalf("Salt not persisted: %q, %v", salt, err)
	}

	data, err := db2.GetPost("p1")
	if err != nil {
		t.Fatalf("Failed to get post: %v", err)
	}
	if string(data) != "data" {
		t.Error("Post data not persisted correctly")
	}
}
