package rtorrent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibetorrent/internal/domain/torrent"
	"vibetorrent/internal/infrastructure/scgi"
	"vibetorrent/internal/logger"
)

type rpcCall struct {
	method string
	args   []any
}

type fakeRPC struct {
	mu       sync.Mutex
	calls    []rpcCall
	handlers map[string]func(args []any) (any, error)
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{handlers: map[string]func([]any) (any, error){}}
}

func (f *fakeRPC) on(method string, result any, err error) {
	f.handlers[method] = func([]any) (any, error) { return result, err }
}

func (f *fakeRPC) Call(_ context.Context, method string, args ...any) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rpcCall{method: method, args: args})
	h, ok := f.handlers[method]
	f.mu.Unlock()
	if !ok {
		return int64(0), nil
	}
	return h(args)
}

func (f *fakeRPC) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeRPC) last(method string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i].args
		}
	}
	return nil
}

func row(hash string, size, completed, downRate int64, active, open, complete int64, peers int64) []any {
	return []any{
		hash, "name-" + hash, size, completed, downRate, int64(10),
		int64(1500), int64(1), active, open, peers,
		int64(1700000000), int64(0), "movies", "/data/" + hash, int64(0), "", complete,
	}
}

func newTestClient(rpc Caller) *Client {
	c := NewClient(rpc, logger.Nop())
	c.diskUsage = func(context.Context, string) (torrent.DiskSpace, error) {
		return torrent.DiskSpace{Used: 300, Total: 1000}, nil
	}
	return c
}

func TestTorrents_ParsesRows(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.multicall2", []any{
		row("AAA", 1000, 250, 50, 1, 1, 0, 3),
		row("BBB", 1000, 1000, 0, 1, 1, 0, 1),
		[]any{"short"},
	}, nil)
	c := newTestClient(rpc)

	items, err := c.Torrents(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	a := items[0]
	assert.Equal(t, "AAA", a.Hash)
	assert.Equal(t, torrent.StatusDownloading, a.State)
	assert.Equal(t, 25.0, a.Progress)
	assert.Equal(t, 15.0, a.ETA)
	assert.Equal(t, 1.5, a.Ratio)
	assert.Equal(t, "movies", a.Label)
	assert.Equal(t, "/data/AAA", a.SavePath)
	assert.Equal(t, int64(1700000000), a.AddedTime)

	// complete flag is 0 but bytes say done
	assert.Equal(t, torrent.StatusSeeding, items[1].State)

	args := rpc.last("d.multicall2")
	require.Len(t, args, 20)
	assert.Equal(t, "", args[0])
	assert.Equal(t, "main", args[1])
	assert.Equal(t, "d.hash=", args[2])
	assert.Equal(t, "d.complete=", args[19])
}

func TestTorrents_RejectsNonList(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.multicall2", "nope", nil)

	_, err := newTestClient(rpc).Torrents(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedResult)
}

func TestSnapshot_CombinesTorrentsAndSystemInfo(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.multicall2", []any{
		row("AAA", 1000, 250, 50, 1, 1, 0, 3),
		row("BBB", 1000, 0, 0, 0, 1, 0, 4),
	}, nil)
	rpc.on("throttle.global_down.rate", int64(2048), nil)
	rpc.on("throttle.global_up.rate", int64(512), nil)
	rpc.on("system.client_version", "0.9.8", nil)
	rpc.on("system.library_version", "0.13.8", nil)
	rpc.on("system.hostname", "seedbox", nil)
	rpc.on("directory.default", "/data", nil)
	c := newTestClient(rpc)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Torrents, 2)
	assert.Equal(t, torrent.StatusPaused, snap.Torrents["BBB"].State)

	require.NotNil(t, snap.SystemInfo)
	info := snap.SystemInfo
	assert.Equal(t, int64(2048), info.DownloadRate)
	assert.Equal(t, int64(512), info.UploadRate)
	assert.Equal(t, int64(7), info.ActivePeers)
	assert.Equal(t, "seedbox", info.Hostname)
	assert.Equal(t, "0.9.8", info.ClientVersion)
	assert.Equal(t, "0.13.8", info.LibraryVersion)
	assert.Equal(t, torrent.DiskSpace{Used: 300, Total: 1000}, info.DiskSpace)

	assert.True(t, c.Status().Connected)
}

func TestSnapshot_DiskUsageFailureIsNotFatal(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.multicall2", []any{}, nil)
	rpc.on("directory.default", "/missing", nil)
	c := newTestClient(rpc)
	c.diskUsage = func(context.Context, string) (torrent.DiskSpace, error) {
		return torrent.DiskSpace{}, errors.New("no such dir")
	}

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, torrent.DiskSpace{}, snap.SystemInfo.DiskSpace)
}

func TestSnapshot_FailureReturnsFallback(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.multicall2", nil, scgi.ErrConnect)
	c := newTestClient(rpc)

	snap, err := c.Snapshot(context.Background())
	require.ErrorIs(t, err, scgi.ErrConnect)
	assert.Empty(t, snap.Torrents)
	assert.Nil(t, snap.SystemInfo)

	status := c.Status()
	assert.False(t, status.Connected)
	assert.NotEmpty(t, status.LastError)
}

func TestCall_FaultKeepsConnected(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.pause", nil, &scgi.FaultError{Code: -1, Message: "bad"})
	c := newTestClient(rpc)

	err := c.Pause(context.Background(), "AAA")
	require.Error(t, err)
	assert.True(t, c.Status().Connected)
}

func TestResume_ClosedTorrentIsOpenedAndStarted(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.is_open", int64(0), nil)
	c := newTestClient(rpc)

	require.NoError(t, c.Resume(context.Background(), "AAA"))
	assert.Equal(t, []string{"d.is_open", "d.open", "d.start"}, rpc.methods())
}

func TestResume_OpenTorrentIsResumed(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.is_open", int64(1), nil)
	c := newTestClient(rpc)

	require.NoError(t, c.Resume(context.Background(), "AAA"))
	assert.Equal(t, []string{"d.is_open", "d.resume"}, rpc.methods())
}

func TestStop_StopsThenCloses(t *testing.T) {
	rpc := newFakeRPC()
	c := newTestClient(rpc)

	require.NoError(t, c.Stop(context.Background(), "AAA"))
	assert.Equal(t, []string{"d.stop", "d.close"}, rpc.methods())
}

func TestRemove_AlreadyGoneIsSuccess(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.hash", nil, &scgi.FaultError{Code: -501, Message: "Could not find info-hash."})
	c := newTestClient(rpc)

	require.NoError(t, c.Remove(context.Background(), "AAA"))
	assert.Equal(t, []string{"d.hash"}, rpc.methods())
}

func TestRemove_ClosesAndErases(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.hash", "AAA", nil)
	c := newTestClient(rpc)

	require.NoError(t, c.Remove(context.Background(), "AAA"))
	assert.Equal(t, []string{"d.hash", "d.close", "d.erase"}, rpc.methods())
}

func TestRemove_PropagatesOtherErrors(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.hash", nil, scgi.ErrTimeout)
	c := newTestClient(rpc)

	assert.ErrorIs(t, c.Remove(context.Background(), "AAA"), scgi.ErrTimeout)
}

func TestAddURL_BuildsCommands(t *testing.T) {
	rpc := newFakeRPC()
	c := newTestClient(rpc)
	high := 3

	err := c.AddURL(context.Background(), "magnet:?xt=1", AddOptions{
		Directory: "/data/tv",
		Label:     "tv",
		Priority:  &high,
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"", "magnet:?xt=1", "d.directory.set=/data/tv", "d.custom1.set=tv", "d.priority.set=3"},
		rpc.last("load.start"))
}

func TestAddURL_PausedUsesLoadNormal(t *testing.T) {
	rpc := newFakeRPC()
	c := newTestClient(rpc)
	normal := DefaultPriority

	require.NoError(t, c.AddURL(context.Background(), "http://x/t.torrent", AddOptions{Paused: true, Priority: &normal}))
	assert.Equal(t, []any{"", "http://x/t.torrent"}, rpc.last("load.normal"))
}

func TestAddFile_SendsRawBytes(t *testing.T) {
	rpc := newFakeRPC()
	c := newTestClient(rpc)

	require.NoError(t, c.AddFile(context.Background(), []byte("d4:infoe"), AddOptions{}))
	args := rpc.last("load.raw_start")
	require.Len(t, args, 2)
	assert.Equal(t, []byte("d4:infoe"), args[1])
}

func TestFiles_EstimatesCompletedFromChunks(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("f.multicall", []any{
		[]any{"a.mkv", int64(1000), int64(5), int64(10), int64(1)},
		[]any{"b.nfo", int64(10), int64(0), int64(0), int64(0)},
	}, nil)
	c := newTestClient(rpc)

	files, err := c.Files(context.Background(), "AAA")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, 500.0, files[0].Completed)
	assert.Equal(t, 0.0, files[1].Completed)
	assert.Equal(t, 1, files[1].Index)
}

func TestPeersAndTrackers(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("p.multicall", []any{
		[]any{"10.0.0.1", "qB 4.6", int64(100), int64(5), int64(42), int64(1), int64(0)},
	}, nil)
	rpc.on("t.multicall", []any{
		[]any{"udp://tracker", int64(2), int64(1), int64(10), int64(3)},
	}, nil)
	c := newTestClient(rpc)

	peers, err := c.Peers(context.Background(), "AAA")
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.True(t, peers[0].IsEncrypted)
	assert.False(t, peers[0].IsIncoming)
	assert.Equal(t, 42.0, peers[0].Progress)

	trackers, err := c.Trackers(context.Background(), "AAA")
	require.NoError(t, err)
	require.Len(t, trackers, 1)
	assert.True(t, trackers[0].Enabled)
	assert.Equal(t, int64(10), trackers[0].Seeders)
}

func TestSetFilePriority_TargetsFile(t *testing.T) {
	rpc := newFakeRPC()
	c := newTestClient(rpc)

	require.NoError(t, c.SetFilePriority(context.Background(), "AAA", 3, 2))
	assert.Equal(t, []any{"AAA:f3", 2}, rpc.last("f.priority.set"))
	assert.Equal(t, []any{"AAA"}, rpc.last("d.update_priorities"))
}

func TestLimits_ConvertKiB(t *testing.T) {
	rpc := newFakeRPC()
	c := newTestClient(rpc)

	require.NoError(t, c.SetDownloadLimit(context.Background(), 100))
	require.NoError(t, c.SetUploadLimit(context.Background(), 0))
	assert.Equal(t, []any{"", int64(102400)}, rpc.last("throttle.global_down.max_rate.set"))
	assert.Equal(t, []any{"", int64(0)}, rpc.last("throttle.global_up.max_rate.set"))
}

func TestPriority_DefaultsOnError(t *testing.T) {
	rpc := newFakeRPC()
	rpc.on("d.priority", nil, scgi.ErrConnect)
	c := newTestClient(rpc)

	p, err := c.Priority(context.Background(), "AAA")
	require.Error(t, err)
	assert.Equal(t, int64(DefaultPriority), p)
}
