package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/internal/search"
)

type streamFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialSearch(t *testing.T, svc *fakeEventService, query string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewSearchHandler(search.NewResolver(nil, nil, nil), svc, 10*time.Millisecond, nil, nil)
	r := gin.New()
	r.GET("/events/search/stream", h.Stream)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/events/search/stream" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	return conn
}

// nextFrame reads frames until one of the wanted type satisfies match.
func nextFrame(t *testing.T, conn *websocket.Conn, kind string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	for {
		var frame streamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == kind && (match == nil || match(frame.Data)) {
			return frame.Data
		}
	}
}

func resultFor(query string) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		var res search.Result
		return json.Unmarshal(raw, &res) == nil && res.Query == query
	}
}

func TestSearchHandlerStreamsInitialQuery(t *testing.T) {
	svc := &fakeEventService{events: []models.Event{{ID: "evt-1", Title: "Hackathon"}}}
	conn := dialSearch(t, svc, "?q=hackathon&category=Technology")

	var res search.Result
	require.NoError(t, json.Unmarshal(nextFrame(t, conn, wsTypeResults, resultFor("hackathon")), &res))
	assert.Equal(t, "Technology", res.Category)
	assert.Equal(t, "hackathon", res.Filters.Search)
	assert.Equal(t, models.CategoryTechnology, res.Filters.Category)
	assert.Equal(t, search.OutcomeLiteral, res.Outcome)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "evt-1", res.Events[0].ID)
}

func TestSearchHandlerAppliesClientFrames(t *testing.T) {
	svc := &fakeEventService{}
	conn := dialSearch(t, svc, "")
	nextFrame(t, conn, wsTypeResults, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var msg string
	require.NoError(t, json.Unmarshal(nextFrame(t, conn, wsTypeError, nil), &msg))
	assert.Contains(t, msg, "query or category")

	require.NoError(t, conn.WriteJSON(map[string]string{"query": "football tomorrow", "category": "Sports"}))
	var res search.Result
	require.NoError(t, json.Unmarshal(nextFrame(t, conn, wsTypeResults, resultFor("football tomorrow")), &res))
	assert.Equal(t, models.CategorySports, res.Filters.Category)
	assert.Equal(t, "football tomorrow", res.Filters.Search)
}

func TestSearchHandlerRefreshFrameRerunsSearch(t *testing.T) {
	svc := &fakeEventService{events: []models.Event{{ID: "evt-1", Title: "Hackathon"}}}
	conn := dialSearch(t, svc, "?q=hackathon")

	var first search.Result
	require.NoError(t, json.Unmarshal(nextFrame(t, conn, wsTypeResults, resultFor("hackathon")), &first))
	require.Len(t, first.Events, 1)

	svc.mu.Lock()
	svc.events = append(svc.events, models.Event{ID: "evt-2", Title: "Hackathon finals"})
	svc.mu.Unlock()

	require.NoError(t, conn.WriteJSON(map[string]bool{"refresh": true}))
	var refreshed search.Result
	require.NoError(t, json.Unmarshal(nextFrame(t, conn, wsTypeResults, func(raw json.RawMessage) bool {
		var res search.Result
		return json.Unmarshal(raw, &res) == nil && res.Generation > first.Generation
	}), &refreshed))
	assert.Equal(t, "hackathon", refreshed.Query)
	assert.Len(t, refreshed.Events, 2)
}
