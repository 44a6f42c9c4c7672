package posts_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/sealpost/internal/posts"
)

// repositoryContract exercises the behavior every Repository must share.
func repositoryContract(t *testing.T, repo posts.Repository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	rec := &posts.Record{
		ID:        uuid.NewString(),
		Title:     posts.SealedField{Envelope: "dGl0bGU=", Nonce: "00"},
		Body:      posts.SealedField{Envelope: "Ym9keQ==", Nonce: "01"},
		Author:    "alice",
		CreatedAt: now,
		UpdatedAt: now,
	}

	require.NoError(t, repo.Insert(ctx, rec))
	assert.ErrorIs(t, repo.Insert(ctx, rec), posts.ErrDuplicate)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Title, got.Title)
	assert.Equal(t, rec.Author, got.Author)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	rec.Author = "bob"
	require.NoError(t, repo.Update(ctx, rec))
	got, err = repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Author)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	_, err = repo.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, posts.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, rec.ID), posts.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, rec), posts.ErrNotFound)
}

func TestBoltRepository(t *testing.T) {
	repositoryContract(t, newBoltRepo(t))
}

func TestBoltRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newBoltRepo(t).List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMongoRepository(t *testing.T) {
	url := os.Getenv("SEALPOST_TEST_MONGODB_URL")
	if url == "" {
		t.Skip("SEALPOST_TEST_MONGODB_URL not set")
	}

	ctx := context.Background()
	client, err := posts.ConnectMongo(ctx, url, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	coll := client.Database("sealpost_test").Collection("posts_" + uuid.NewString())
	t.Cleanup(func() { _ = coll.Drop(context.Background()) })

	repositoryContract(t, posts.NewMongoRepository(coll))
}
