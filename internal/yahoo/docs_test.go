package yahoo

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
)

func TestFinanceClient_QueryNews(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"news":[
			{"uuid":"a1","title":"Stocks rally","publisher":"Wire","link":"https://n/1","providerPublishTime":1704205800},
			{"title":"No id","publisher":"Wire","link":"https://n/2","providerPublishTime":1704292200},
			{"uuid":"a3","title":"Dropped by limit"}
		]}`)) //nolint:errcheck // test server
	})

	items, err := client.QueryNews(context.Background(), "SPY", 2)
	require.NoError(t, err)

	assert.Equal(t, "/v1/finance/search", gotPath)
	assert.Contains(t, gotQuery, "q=SPY")
	assert.Contains(t, gotQuery, "newsCount=2")

	require.Len(t, items, 2)
	assert.Equal(t, "a1", items[0].ID)
	assert.Equal(t, "https://n/1", items[0].URL)
	assert.Equal(t, time.Unix(1704205800, 0).UTC(), items[0].PublishedAt)
	assert.Equal(t, "news_1", items[1].ID)
}

func TestFinanceClient_QueryResearch(t *testing.T) {
	t.Run("grade changes", func(t *testing.T) {
		var gotPath string
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			w.Write([]byte(`{"quoteSummary":{"result":[{"upgradeDowngradeHistory":{"history":[
				{"epochGradeDate":1704205800,"firm":"Acme","toGrade":"Buy","fromGrade":"Hold","action":"up"},
				{"epochGradeDate":1704067200,"firm":"","toGrade":"","fromGrade":""}
			]}}],"error":null}}`)) //nolint:errcheck // test server
		})

		items, err := client.QueryResearch(context.Background(), "^VIX", 10)
		require.NoError(t, err)

		assert.Equal(t, "/v10/finance/quoteSummary/%5EVIX", gotPath)
		require.Len(t, items, 2)
		assert.Equal(t, "Acme - Buy", items[0].Title)
		assert.Equal(t, "Grade: Buy, Previous: Hold", items[0].Summary)
		assert.Equal(t, "research_0", items[0].ID)
		assert.Equal(t, "Unknown - N/A", items[1].Title)
		assert.Equal(t, "Unknown", items[1].Publisher)
	})

	t.Run("embedded not found", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found"}}}`)) //nolint:errcheck // test server
		})

		_, err := client.QueryResearch(context.Background(), "NOPE", 10)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})

	t.Run("throttled", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.QueryResearch(context.Background(), "SPY", 10)
		assert.Equal(t, apperrors.KindRateLimited, apperrors.KindOf(err))
	})
}
