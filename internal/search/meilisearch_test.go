package search

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-portal/internal/models"
	"rental-portal/internal/testutil"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeMeili accepts every call with an enqueued task and records it.
func fakeMeili(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"taskUid":1,"indexUid":"properties","status":"enqueued","type":"documentAdditionOrUpdate","enqueuedAt":"2024-01-01T00:00:00Z"}`)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestRemoveDocuments(t *testing.T) {
	srv, requests := fakeMeili(t)
	client := NewSearchClient(srv.URL, "key", "")

	require.NoError(t, client.RemoveDocuments(context.Background(), []string{"3", "7"}))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.True(t, strings.HasPrefix(reqs[0].Path, "/indexes/properties/documents"))
	assert.Contains(t, reqs[0].Body, `"3"`)
	assert.Contains(t, reqs[0].Body, `"7"`)
}

func TestRemoveDocuments_NoCall(t *testing.T) {
	srv, requests := fakeMeili(t)
	client := NewSearchClient(srv.URL, "key", "")

	require.NoError(t, client.RemoveDocuments(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, client.RemoveDocuments(ctx, []string{"1"}), context.Canceled)

	assert.Empty(t, requests())
}

func TestReindexListed(t *testing.T) {
	srv, requests := fakeMeili(t)
	client := NewSearchClient(srv.URL, "key", "")

	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	profile := fx.LandlordProfile(fx.User("owner"), models.LandlordKindIndividual)
	listed := fx.Property(profile, "Listed")
	fx.DeletedProperty(profile, "Deleted")

	n, err := ReindexListed(context.Background(), db, client)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Body, `"title":"Listed"`)
	assert.NotContains(t, reqs[0].Body, `"title":"Deleted"`)
	assert.Contains(t, reqs[0].Body, listed.IndexID())
}
