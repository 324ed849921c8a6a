package daemon

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/smartsearch/ai/mock"
	"github.com/poiesic/smartsearch/core"
	"github.com/poiesic/smartsearch/session"
	"github.com/poiesic/smartsearch/storage/indexfile"
)

func testSession(t *testing.T) *session.Session {
	t.Helper()

	ix := &core.Index{
		Meta: core.IndexMeta{
			Name: "vault", Root: "/vault", Dimension: 2,
			CreatedAt: time.Now().UTC(), FileCount: 1, ChunkCount: 1,
		},
		Paths:    []string{"/vault/a.md"},
		Ordinals: []uint32{0},
		Spans:    []core.Span{{End: 1}},
		Vectors:  []float32{0.9, float32(math.Sqrt(1 - 0.81))},
	}
	repo, err := indexfile.NewRepository(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), ix))

	embedder := mock.NewEmbedder()
	embedder.Dimension = 2
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	sess, err := session.New(repo, embedder)
	require.NoError(t, err)
	require.NoError(t, sess.Start(context.Background()))
	return sess
}

// startServer runs a server on an ephemeral port and returns its address
// and a channel carrying ListenAndServe's return value.
func startServer(t *testing.T, sess *session.Session) (string, chan error) {
	t.Helper()

	srv, err := New(sess, WithAddr("127.0.0.1", 0))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(context.Background()) }()
	t.Cleanup(srv.Shutdown)

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", srv.Addr())
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return srv.Addr(), errCh
}

func roundTrip(t *testing.T, addr string, req *Request) *Response {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, json.NewEncoder(conn).Encode(req))
	var resp Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	return &resp
}

func TestServerPing(t *testing.T) {
	addr, _ := startServer(t, testSession(t))

	resp := roundTrip(t, addr, &Request{Command: CommandPing})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "ready", resp.State)
	assert.Equal(t, []string{"vault"}, resp.Indices)
}

func TestServerSearch(t *testing.T) {
	addr, _ := startServer(t, testSession(t))

	t.Run("returns results", func(t *testing.T) {
		resp := roundTrip(t, addr, &Request{Command: CommandSearch, Query: "anything"})
		require.Equal(t, StatusOK, resp.Status)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "/vault/a.md", resp.Results[0].Path)
		assert.InDelta(t, 0.9, resp.Results[0].Score, 0.15) // hybrid boost may apply
	})

	t.Run("empty query is an error response", func(t *testing.T) {
		resp := roundTrip(t, addr, &Request{Command: CommandSearch, Query: "  "})
		assert.Equal(t, StatusError, resp.Status)
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("oversized query is an error response", func(t *testing.T) {
		long := make([]byte, core.MaxQueryLength+1)
		for i := range long {
			long[i] = 'q'
		}
		resp := roundTrip(t, addr, &Request{Command: CommandSearch, Query: string(long)})
		assert.Equal(t, StatusError, resp.Status)
	})
}

func TestServerReload(t *testing.T) {
	addr, _ := startServer(t, testSession(t))

	resp := roundTrip(t, addr, &Request{Command: CommandReload})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, []string{"vault"}, resp.Indices)
}

func TestServerUnknownCommand(t *testing.T) {
	addr, _ := startServer(t, testSession(t))

	resp := roundTrip(t, addr, &Request{Command: "explode"})
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "explode")
}

func TestServerMalformedRequest(t *testing.T) {
	addr, _ := startServer(t, testSession(t))

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("this is not json\n"))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	assert.Equal(t, StatusError, resp.Status)
}

func TestServerStopCommand(t *testing.T) {
	sess := testSession(t)
	addr, errCh := startServer(t, sess)

	resp := roundTrip(t, addr, &Request{Command: CommandStop})
	assert.Equal(t, StatusOK, resp.Status)

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after stop command")
	}
	assert.Equal(t, session.Stopped, sess.State())
}

func TestServerContextCancel(t *testing.T) {
	srv, err := New(testSession(t), WithAddr("127.0.0.1", 0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", srv.Addr())
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down on context cancel")
	}
}

func TestServerAddressInUse(t *testing.T) {
	addr, _ := startServer(t, testSession(t))
	_, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	second, err := New(testSession(t), WithAddr("127.0.0.1", port))
	require.NoError(t, err)
	err = second.ListenAndServe(context.Background())
	assert.ErrorIs(t, err, core.ErrAlreadyRunning)
}
