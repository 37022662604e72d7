package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/collabspace/pkg/cerr"
	"github.com/kazz187/collabspace/pkg/storage"
)

func newLocalGateway(t *testing.T) *StorageGateway {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewStorageGateway(s)
}

func newRedisGateway(t *testing.T) *StorageGateway {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStorageGateway(storage.NewRedisStorage(client, "test"))
}

func newRemoteGateway(t *testing.T) *Client {
	t.Helper()
	path, handler := NewDocumentServiceHandler(
		NewServer(newLocalGateway(t)),
		connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor()),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL)
}

func gateways(t *testing.T) map[string]Gateway {
	return map[string]Gateway{
		"local":  newLocalGateway(t),
		"redis":  newRedisGateway(t),
		"remote": newRemoteGateway(t),
	}
}

func TestGateway_InsertGetUpdate(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			id, err := gw.Insert(ctx, "tasks", Fields{"title": "Write spec", "boardId": "b1", "status": "To Do"})
			require.NoError(t, err)
			require.NotEmpty(t, id)

			doc, found, err := gw.Get(ctx, "tasks", id)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, id, doc.ID)
			assert.Equal(t, "Write spec", doc.Fields.String("title"))

			require.NoError(t, gw.Update(ctx, "tasks", id, Fields{"status": "Done"}))
			doc, _, err = gw.Get(ctx, "tasks", id)
			require.NoError(t, err)
			assert.Equal(t, "Done", doc.Fields.String("status"))
			assert.Equal(t, "Write spec", doc.Fields.String("title"), "update must merge, not replace")
		})
	}
}

func TestGateway_Absent(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			doc, found, err := gw.Get(ctx, "boards", "01MISSING")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, doc)

			err = gw.Update(ctx, "boards", "01MISSING", Fields{"title": "x"})
			require.Error(t, err)
			assert.True(t, cerr.IsCode(err, cerr.NotFound), "got %v", err)

			docs, err := gw.Query(ctx, "boards", Eq("workspaceId", "w1"))
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestGateway_Query(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			a, err := gw.Insert(ctx, "workspaces", Fields{"name": "A", "members": []string{"u1", "u2"}})
			require.NoError(t, err)
			_, err = gw.Insert(ctx, "workspaces", Fields{"name": "B", "members": []string{"u3"}})
			require.NoError(t, err)
			c, err := gw.Insert(ctx, "workspaces", Fields{"name": "C", "members": []string{"u1"}})
			require.NoError(t, err)

			docs, err := gw.Query(ctx, "workspaces", ArrayContains("members", "u1"))
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, a, docs[0].ID)
			assert.Equal(t, c, docs[1].ID)
			assert.Equal(t, []string{"u1", "u2"}, docs[0].Fields.Strings("members"))

			docs, err = gw.Query(ctx, "workspaces", Eq("name", "B"))
			require.NoError(t, err)
			require.Len(t, docs, 1)

			docs, err = gw.Query(ctx, "workspaces", Predicate{})
			require.NoError(t, err)
			assert.Len(t, docs, 3)
		})
	}
}

func TestGateway_RejectsBadNames(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			_, err := gw.Insert(ctx, "../etc", Fields{})
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
			_, _, err = gw.Get(ctx, "tasks", "a/b")
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
		})
	}
}

func TestPredicate_Match(t *testing.T) {
	fields := Fields{
		"status":  "Done",
		"count":   float64(3),
		"members": []any{"u1", "u2"},
	}
	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"eq string", Eq("status", "Done"), true},
		{"eq mismatch", Eq("status", "To Do"), false},
		{"eq number across codecs", Eq("count", 3), true},
		{"eq missing field", Eq("boardId", "b1"), false},
		{"contains", ArrayContains("members", "u2"), true},
		{"contains miss", ArrayContains("members", "u9"), false},
		{"contains on scalar", ArrayContains("status", "Done"), false},
		{"zero matches all", Predicate{}, true},
		{"unknown op", Predicate{Field: "status", Op: "like", Value: "Do"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred.Match(fields))
		})
	}
}

func TestFields_Accessors(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	f := Fields{
		"title":     "Plan",
		"members":   []any{"u1", nil, "u2"},
		"createdAt": FormatTime(now),
		"broken":    "yesterday",
		"n":         7,
	}
	assert.Equal(t, "Plan", f.String("title"))
	assert.Equal(t, "", f.String("missing"))
	assert.Equal(t, "", f.String("members"))
	assert.Equal(t, "7", f.String("n"))
	assert.Equal(t, []string{"u1", "u2"}, f.Strings("members"))
	assert.Empty(t, f.Strings("missing"))
	assert.True(t, now.Equal(f.Time("createdAt")))
	assert.True(t, f.Time("broken").IsZero())
	assert.True(t, f.Has("title"))
	assert.False(t, f.Has("missing"))
}

func TestServer_PrivateCollections(t *testing.T) {
	ctx := context.Background()
	backing := newLocalGateway(t)
	_, err := backing.Insert(ctx, "users", Fields{"email": "a@example.com"})
	require.NoError(t, err)

	path, handler := NewDocumentServiceHandler(
		NewServer(backing, WithPrivateCollections("users")),
		connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor()),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := NewClient(srv.Client(), srv.URL)

	_, err = client.Query(ctx, "users", Predicate{})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))

	_, err = client.Insert(ctx, "tasks", Fields{"title": "ok"})
	assert.NoError(t, err)
}
