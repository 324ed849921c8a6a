package client

import (
	"context"
	"math"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/smartsearch/ai/mock"
	"github.com/poiesic/smartsearch/core"
	"github.com/poiesic/smartsearch/daemon"
	"github.com/poiesic/smartsearch/session"
	"github.com/poiesic/smartsearch/storage/indexfile"
)

// startDaemon runs a daemon over one saved index and returns a client
// pointed at it.
func startDaemon(t *testing.T) *RemoteSession {
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

	srv, err := daemon.New(sess, daemon.WithAddr("127.0.0.1", 0))
	require.NoError(t, err)
	go srv.ListenAndServe(context.Background())
	t.Cleanup(srv.Shutdown)

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", srv.Addr())
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	host, portStr, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return New(host, port)
}

func TestAvailable(t *testing.T) {
	t.Run("running daemon", func(t *testing.T) {
		c := startDaemon(t)
		assert.True(t, c.Available(context.Background()))
	})

	t.Run("no daemon", func(t *testing.T) {
		c := New("127.0.0.1", 1, WithProbeTimeout(50*time.Millisecond))
		assert.False(t, c.Available(context.Background()))
	})
}

func TestPing(t *testing.T) {
	c := startDaemon(t)

	resp, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", resp.State)
	assert.Equal(t, []string{"vault"}, resp.Indices)
}

func TestRemoteSearch(t *testing.T) {
	c := startDaemon(t)

	t.Run("returns results", func(t *testing.T) {
		results, err := c.Search(context.Background(), &core.Query{Text: "anything"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "/vault/a.md", results[0].Path)
	})

	t.Run("daemon-side validation surfaces as error", func(t *testing.T) {
		_, err := c.Search(context.Background(), &core.Query{Text: "   "})
		require.Error(t, err)
		assert.NotErrorIs(t, err, core.ErrDaemonUnreachable)
	})

	t.Run("no matches is empty not nil", func(t *testing.T) {
		results, err := c.Search(context.Background(), &core.Query{Text: "q", Scope: "/nowhere"})
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})
}

func TestRemoteSearchUnreachable(t *testing.T) {
	c := New("127.0.0.1", 1, WithSearchTimeout(50*time.Millisecond))
	_, err := c.Search(context.Background(), &core.Query{Text: "q"})
	assert.ErrorIs(t, err, core.ErrDaemonUnreachable)
}

func TestRemoteReload(t *testing.T) {
	c := startDaemon(t)
	assert.NoError(t, c.Reload(context.Background()))
}

func TestRemoteStop(t *testing.T) {
	c := startDaemon(t)
	require.NoError(t, c.Stop(context.Background()))

	assert.Eventually(t, func() bool {
		return !c.Available(context.Background())
	}, 2*time.Second, 20*time.Millisecond)
}

// Both paths satisfy Searcher, keeping ranking identical either side of
// the socket.
var (
	_ Searcher = (*RemoteSession)(nil)
	_ Searcher = (*session.Session)(nil)
)
