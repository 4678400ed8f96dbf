package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const apiPath = "/gmail/v1/users/me"

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func newTestServer(t *testing.T, modified *[]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(apiPath+"/threads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "label:promo -label:promo/done", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = io.WriteString(w, `{"threads":[{"id":"t1"}],"nextPageToken":"p2"}`)
			return
		}
		_, _ = io.WriteString(w, `{"threads":[{"id":"t2"}]}`)
	})
	thread := func(id string) map[string]interface{} {
		return map[string]interface{}{
			"id": id,
			"messages": []map[string]interface{}{{
				"id":           id + "-m1",
				"internalDate": "1714557600000",
				"payload": map[string]interface{}{
					"mimeType": "multipart/alternative",
					"parts": []map[string]interface{}{
						{"mimeType": "text/plain", "body": map[string]string{"data": encode("plain " + id)}},
						{"mimeType": "text/html", "body": map[string]string{"data": encode("<strong>" + id + "</strong>")}},
					},
				},
			}},
		}
	}
	for _, id := range []string{"t1", "t2"} {
		mux.HandleFunc(apiPath+"/threads/"+id, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "full", r.URL.Query().Get("format"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(thread(id))
		})
	}
	mux.HandleFunc(apiPath+"/labels", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"labels":[{"id":"Label_1","name":"promo"},{"id":"Label_2","name":"promo/done"}]}`)
	})
	mux.HandleFunc(apiPath+"/threads/t1/modify", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			AddLabelIds []string `json:"addLabelIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*modified = append(*modified, body.AddLabelIds...)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"t1"}`)
	})
	return httptest.NewServer(mux)
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := newClient(context.Background(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return c
}

func TestSearchFollowsPagesAndDecodesParts(t *testing.T) {
	var modified []string
	srv := newTestServer(t, &modified)
	defer srv.Close()

	threads, err := testClient(t, srv).Search(context.Background(), "label:promo -label:promo/done")
	require.NoError(t, err)
	require.Len(t, threads, 2)

	msg := threads[0].Messages[0]
	assert.Equal(t, "t1-m1", msg.Id)
	assert.Equal(t, "<strong>t1</strong>", msg.Body)
	assert.Equal(t, "plain t1", msg.PlainBody)
	assert.Equal(t, int64(1714557600000), msg.Date.UnixMilli())
	assert.Equal(t, "t2", threads[1].Id)
}

func TestAddLabelResolvesName(t *testing.T) {
	var modified []string
	srv := newTestServer(t, &modified)
	defer srv.Close()

	c := testClient(t, srv)
	require.NoError(t, c.AddLabel(context.Background(), "t1", "promo/done"))
	assert.Equal(t, []string{"Label_2"}, modified)

	assert.Error(t, c.AddLabel(context.Background(), "t1", "missing"))
}

func TestSearchReportsApiErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":401,"message":"invalid credentials"}}`)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Search(context.Background(), "label:promo")
	assert.Error(t, err)
}

func TestFindPartFallsBackToPlain(t *testing.T) {
	part := &gm.MessagePart{
		MimeType: "text/plain",
		Body:     &gm.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("only plain"))},
	}
	assert.Equal(t, "only plain", findPart(part, "text/plain"))
	assert.Equal(t, "", findPart(part, "text/html"))
	assert.Equal(t, "", findPart(nil, "text/html"))
}
