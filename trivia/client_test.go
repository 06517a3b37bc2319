package trivia

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/jeopardy/games/jeopardy"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL+"/api/", 0, "jeopardy/test")
	require.NoError(t, err)

	return client
}

func TestFetchRandomCategoryIDs(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns category ids in response order", func(t *testing.T) {
		// Given: a service returning six random clues
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/random", r.URL.Path)
			assert.Equal(t, "6", r.URL.Query().Get("count"))
			assert.Equal(t, "jeopardy/test", r.Header.Get("User-Agent"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"id":1,"category_id":4,"question":"x"},
				{"id":2,"category_id":12},
				{"id":3,"category_id":5},
				{"id":4,"category_id":9},
				{"id":5,"category_id":20},
				{"id":6,"category_id":1}
			]`))
		})

		// When: fetching six category ids
		ids, err := client.FetchRandomCategoryIDs(ctx, 6)

		// Then: the ids come back as sent
		require.NoError(t, err)
		assert.Equal(t, []int{4, 12, 5, 9, 20, 1}, ids)
	})

	t.Run("Keeps duplicate ids", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"category_id":3},{"category_id":3},{"category_id":8}]`))
		})

		ids, err := client.FetchRandomCategoryIDs(ctx, 3)

		require.NoError(t, err)
		assert.Equal(t, []int{3, 3, 8}, ids)
	})

	t.Run("Returns a status error on a non-success response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		})

		ids, err := client.FetchRandomCategoryIDs(ctx, 6)

		require.Error(t, err)
		assert.Nil(t, ids)
		assert.ErrorIs(t, err, ErrStatus)

		var terr *Error
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, http.StatusBadGateway, terr.StatusCode)
		assert.Equal(t, "random", terr.Op)
	})

	t.Run("Returns an error on a malformed payload", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"not":"a list"`))
		})

		_, err := client.FetchRandomCategoryIDs(ctx, 6)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStatus)
		assert.Contains(t, err.Error(), "decoding response")
	})

	t.Run("Returns a transport error when the service is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		client, err := New(srv.URL, 0, "")
		require.NoError(t, err)

		_, err = client.FetchRandomCategoryIDs(ctx, 6)

		var terr *Error
		require.ErrorAs(t, err, &terr)
		assert.Zero(t, terr.StatusCode)
	})
}

func TestFetchCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("Maps the title and every clue as hidden", func(t *testing.T) {
		// Given: a category with five clues and extra fields
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/category", r.URL.Path)
			assert.Equal(t, "42", r.URL.Query().Get("id"))

			_, _ = w.Write([]byte(`{
				"id": 42,
				"title": "Math",
				"clues_count": 5,
				"clues": [
					{"id":1,"question":"2+2","answer":"4","value":200},
					{"id":2,"question":"1+1","answer":"2"},
					{"id":3,"question":"3*3","answer":"9"},
					{"id":4,"question":"10/2","answer":"5"},
					{"id":5,"question":"7-7","answer":"0"}
				]
			}`))
		})

		// When: fetching the category
		cat, err := client.FetchCategory(ctx, 42)

		// Then: title and clues map over in order, all hidden
		require.NoError(t, err)
		assert.Equal(t, "Math", cat.Title)
		require.Len(t, cat.Clues, 5)
		assert.Equal(t, &jeopardy.Clue{Question: "2+2", Answer: "4", Showing: jeopardy.Hidden}, cat.Clues[0])
		assert.Equal(t, "7-7", cat.Clues[4].Question)
		for _, clue := range cat.Clues {
			assert.Equal(t, jeopardy.Hidden, clue.Showing)
		}
	})

	t.Run("Keeps the service's clue count", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"title":"Short","clues":[{"question":"q","answer":"a"}]}`))
		})

		cat, err := client.FetchCategory(ctx, 1)

		require.NoError(t, err)
		assert.Len(t, cat.Clues, 1)
	})

	t.Run("Returns an error on a non-success response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		cat, err := client.FetchCategory(ctx, 1)

		assert.Nil(t, cat)
		assert.ErrorIs(t, err, ErrStatus)
	})

	t.Run("Stops when the context is cancelled", func(t *testing.T) {
		release := make(chan struct{})
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)

		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := client.FetchCategory(ctx, 1)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNew(t *testing.T) {
	t.Run("Defaults the base url", func(t *testing.T) {
		client, err := New("", time.Second, "")

		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL+"/random?count=6", client.endpoint("/random", map[string][]string{"count": {"6"}}))
	})

	t.Run("Rejects non-http urls", func(t *testing.T) {
		_, err := New("ftp://example.com/api", 0, "")

		assert.Error(t, err)
	})
}
