package macro

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoTable_CancelledWaiterIsCollaboratorError(t *testing.T) {
	var table memoTable[string, string]
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _ = table.load(context.Background(), []string{"k"}, func(context.Context, []string) (map[string]string, error) {
			close(started)
			<-release
			return map[string]string{"k": "v"}, nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := table.load(ctx, []string{"k"}, func(context.Context, []string) (map[string]string, error) {
		t.Fatal("key already in flight must not be fetched again")
		return nil, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollaborator)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoTable_Peek(t *testing.T) {
	var table memoTable[string, string]
	_, err := table.load(context.Background(), []string{"a", "gone"}, func(context.Context, []string) (map[string]string, error) {
		return map[string]string{"a": "A"}, nil
	})
	require.NoError(t, err)

	have, rest := table.peek([]string{"a", "gone", "b"})
	assert.Equal(t, map[string]string{"a": "A"}, have)
	assert.Equal(t, []string{"b"}, rest)
}

func TestMemoRepository_ReusesHostDocuments(t *testing.T) {
	repo := newTestRepository()
	memo := newMemoRepository(repo, nil)
	ctx := context.Background()

	_, err := memo.FetchHosts(ctx, []string{"10"})
	require.NoError(t, err)

	macros, err := memo.FetchHostMacros(ctx, []string{"10", "100"})
	require.NoError(t, err)
	links, err := memo.FetchTemplateLinks(ctx, []string{"10"})
	require.NoError(t, err)

	assert.Equal(t, repo.hosts["10"].Macros, macros["10"])
	assert.Equal(t, repo.hosts["100"].Macros, macros["100"])
	assert.Equal(t, []string{"100"}, links["10"])

	assert.Zero(t, repo.idCallCount("FetchHostMacros", "10"))
	assert.Equal(t, 1, repo.idCallCount("FetchHostMacros", "100"))
	assert.Zero(t, repo.callCount("FetchTemplateLinks"))
}

func TestMemoRepository_WaitsForInFlightFetch(t *testing.T) {
	repo := newTestRepository()
	memo := newMemoRepository(repo, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := memo.FetchItems(ctx, []string{"1001"})
			done <- err
		}()
	}
	for range 2 {
		require.NoError(t, <-done)
	}
	assert.Equal(t, 1, repo.idCallCount("FetchItems", "1001"))
}
