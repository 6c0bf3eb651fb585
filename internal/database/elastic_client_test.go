package database

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/staffportal/internal/domain"
)

func TestElasticSearchClient(t *testing.T) {
	var indexed StaffDoc
	var searchBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body, _ := io.ReadAll(r.Body)
		switch {
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/staff/_doc/"):
			_ = json.Unmarshal(body, &indexed)
			_, _ = io.WriteString(w, `{"_index":"staff","_id":"u1","result":"created"}`)
		case strings.HasSuffix(r.URL.Path, "/staff/_search"):
			searchBody = string(body)
			_, _ = io.WriteString(w, `{"hits":{"total":{"value":2,"relation":"eq"},"hits":[
				{"_index":"staff","_id":"u2","_source":{"id":"u2","first_name":"Ann"}},
				{"_index":"staff","_id":"u7","_source":{}}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	es, err := NewElasticSearchClient(srv.URL, "staff")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, es.IndexUser(ctx, domain.User{ID: "u1", FirstName: "Ann", Role: domain.RoleStaff, Active: true}))
	assert.Equal(t, "u1", indexed.ID)
	assert.Equal(t, "STAFF", indexed.Role)

	ids, err := es.SearchUsers(ctx, "an", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u7"}, ids)
	assert.Contains(t, searchBody, "phrase_prefix")

	require.NoError(t, es.BulkIndexUsers(ctx, nil))
}
