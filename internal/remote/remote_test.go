package remote

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/internal/core/forward"
	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/internal/discovery/directory"
	"github.com/dep2p/go-gpsoffice/internal/testutil"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// newServer 在随机端口上启动服务端
func newServer(t *testing.T) (*rpc.Server, string) {
	t.Helper()
	srv := rpc.NewServer(rpc.DefaultServerConfig())
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	t.Cleanup(func() { _ = srv.Close() })
	return srv, srv.Addr().String()
}

func newClient(t *testing.T) *rpc.Client {
	t.Helper()
	c := rpc.NewClient(rpc.DefaultClientConfig())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// ============================================================================
//                              办公室
// ============================================================================

func TestOffice_RoundTrip(t *testing.T) {
	srv, addr := newServer(t)
	mock := testutil.NewMockOffice("A", 0, 0)
	var gotDest types.Coordinate
	var gotCustomer types.ListenerRef
	mock.CreatePacketFunc = func(_ context.Context, dest types.Coordinate, customer types.ListenerRef) (types.TrackingID, error) {
		gotDest, gotCustomer = dest, customer
		return "t-1", nil
	}
	ServeOffice(srv, mock)

	stub := NewOfficeStub(newClient(t), addr)
	ctx := context.Background()

	name, err := stub.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", name)

	coord, err := stub.Coordinate(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Coordinate{X: 0, Y: 0}, coord)

	ref := types.ListenerRef{Endpoint: "127.0.0.1:9", ID: "cust"}
	id, err := stub.CreatePacket(ctx, types.Coordinate{X: 20, Y: 0}, ref)
	require.NoError(t, err)
	assert.Equal(t, types.TrackingID("t-1"), id)
	assert.Equal(t, types.Coordinate{X: 20, Y: 0}, gotDest)
	assert.Equal(t, ref, gotCustomer)

	p := types.NewPacket(types.Coordinate{X: 1, Y: 2}, ref, time.Now())
	require.NoError(t, stub.PacketForward(ctx, p))
	require.Equal(t, 1, mock.ReceivedCount())
	assert.Equal(t, p.TrackingID, mock.Received[0].TrackingID)
	assert.Equal(t, p.Listener, mock.Received[0].Listener)

	lease, err := stub.AddListener(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "cust", lease.ID)
}

func TestOffice_ErrorKeepsIdentity(t *testing.T) {
	srv, addr := newServer(t)
	mock := testutil.NewMockOffice("A", 0, 0)
	mock.PacketForwardFunc = func(context.Context, *types.Packet) error {
		return forward.ErrClosed
	}
	ServeOffice(srv, mock)

	err := NewOfficeStub(newClient(t), addr).PacketForward(context.Background(), &types.Packet{TrackingID: "t"})
	assert.ErrorIs(t, err, forward.ErrClosed)
}

func TestOffice_Unreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	d := NewDialer(newClient(t))
	o, err := d.DialOffice(addr)
	require.NoError(t, err)
	_, err = o.Coordinate(context.Background())
	assert.ErrorIs(t, err, rpc.ErrUnreachable)
}

// ============================================================================
//                              监听者
// ============================================================================

func TestListenerRegistry_Notify(t *testing.T) {
	srv, addr := newServer(t)
	reg := NewListenerRegistry(srv, func() string { return addr })

	rec := testutil.NewRecorder()
	ref := reg.Register(rec)
	assert.Equal(t, addr, ref.Endpoint)
	assert.NotEmpty(t, ref.ID)
	assert.Equal(t, 1, reg.Len())

	d := NewDialer(newClient(t))
	l, err := d.DialListener(ref)
	require.NoError(t, err)

	ev := types.NewArrived("t-1", "A", time.Now())
	require.NoError(t, l.Notify(context.Background(), ev))
	require.Equal(t, 1, rec.Len())
	assert.Equal(t, ev.Message, rec.Events()[0].Message)

	assert.True(t, reg.Unregister(ref))
	assert.False(t, reg.Unregister(ref))
	err = l.Notify(context.Background(), ev)
	assert.ErrorIs(t, err, ErrUnknownListener)
}

func TestListenerRegistry_ListenerErrorPropagates(t *testing.T) {
	srv, addr := newServer(t)
	reg := NewListenerRegistry(srv, func() string { return addr })

	rec := testutil.NewRecorder()
	rec.Err = directory.ErrClosed
	ref := reg.Register(rec)

	err := NewListenerStub(newClient(t), ref).Notify(context.Background(), types.NewArrived("t", "A", time.Now()))
	assert.ErrorIs(t, err, directory.ErrClosed)
}

func TestDialer_EmptyEndpoint(t *testing.T) {
	d := NewDialer(newClient(t))
	_, err := d.DialOffice("")
	assert.ErrorIs(t, err, ErrEmptyEndpoint)
	_, err = d.DialListener(types.ListenerRef{ID: "x"})
	assert.ErrorIs(t, err, ErrEmptyEndpoint)
}

// ============================================================================
//                              目录
// ============================================================================

func newDirectory(t *testing.T) (*directory.Store, *DirectoryStub) {
	t.Helper()
	store := directory.NewStore(directory.DefaultStoreConfig())
	store.Start()
	t.Cleanup(func() { _ = store.Close() })

	srv, addr := newServer(t)
	ServeDirectory(srv, store)
	return store, NewDirectoryStub(newClient(t), addr)
}

func TestDirectory_BindLookupList(t *testing.T) {
	_, stub := newDirectory(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, stub.Bind(ctx, types.Record{Name: name, Type: types.OfficeType, Endpoint: "127.0.0.1:1" + name}))
	}

	err := stub.Bind(ctx, types.Record{Name: "A", Type: types.OfficeType, Endpoint: "x"})
	assert.ErrorIs(t, err, directory.ErrAlreadyBound)

	rec, err := stub.Lookup(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1B", rec.Endpoint)
	assert.Equal(t, types.OfficeType, rec.Type)

	names, err := stub.List(ctx, types.OfficeType)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names)

	require.NoError(t, stub.Unbind(ctx, "B"))
	_, err = stub.Lookup(ctx, "B")
	assert.ErrorIs(t, err, directory.ErrNotBound)
	assert.ErrorIs(t, stub.Unbind(ctx, "B"), directory.ErrNotBound)
	assert.ErrorIs(t, stub.Renew(ctx, "B"), directory.ErrNotBound)

	err = stub.Bind(ctx, types.Record{Name: "", Type: types.OfficeType, Endpoint: "x"})
	assert.ErrorIs(t, err, directory.ErrInvalidRecord)
}

func TestDirectory_Subscribe(t *testing.T) {
	store, stub := newDirectory(t)
	ctx := context.Background()

	rec := &testutil.DirectoryRecorder{}
	cancel, err := stub.Subscribe(ctx, rec, types.Filter{Type: types.OfficeType, Bound: true, Unbound: true})
	require.NoError(t, err)

	// 订阅返回即生效，不会错过紧随其后的绑定
	require.NoError(t, store.Bind(ctx, types.Record{Name: "A", Type: types.OfficeType, Endpoint: "e"}))
	require.NoError(t, store.Bind(ctx, types.Record{Name: "X", Type: "Other", Endpoint: "e"}))
	require.NoError(t, store.Unbind(ctx, "A"))

	testutil.Eventually(t, 2*time.Second, func() bool { return rec.Len() == 2 }, "应收到两条通知")
	events := rec.Events()
	assert.Equal(t, types.DirectoryEvent{Name: "A", Type: types.OfficeType, Bound: true}, events[0])
	assert.Equal(t, types.DirectoryEvent{Name: "A", Type: types.OfficeType, Bound: false}, events[1])

	cancel()
	cancel()
	require.NoError(t, store.Bind(ctx, types.Record{Name: "B", Type: types.OfficeType, Endpoint: "e"}))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, rec.Len())
}

// resubscribeRecorder 额外记录订阅恢复次数
type resubscribeRecorder struct {
	testutil.DirectoryRecorder
	resubscribed atomic.Int32
}

func (r *resubscribeRecorder) OnResubscribed() { r.resubscribed.Add(1) }

func TestDirectory_SubscribeSurvivesRestart(t *testing.T) {
	store := directory.NewStore(directory.DefaultStoreConfig())
	store.Start()
	t.Cleanup(func() { _ = store.Close() })

	srv, addr := newServer(t)
	ServeDirectory(srv, store)
	stub := NewDirectoryStub(newClient(t), addr)
	stub.retryMin = 10 * time.Millisecond
	stub.retryMax = 50 * time.Millisecond

	rec := &resubscribeRecorder{}
	cancel, err := stub.Subscribe(context.Background(), rec, types.Filter{Type: types.OfficeType, Bound: true})
	require.NoError(t, err)
	defer cancel()

	// 目录进程重启：同一地址上的新服务端
	require.NoError(t, srv.Close())
	restarted := rpc.NewServer(rpc.DefaultServerConfig())
	ServeDirectory(restarted, store)
	require.NoError(t, restarted.Listen(addr))
	t.Cleanup(func() { _ = restarted.Close() })

	testutil.Eventually(t, 5*time.Second, func() bool { return rec.resubscribed.Load() == 1 }, "订阅未恢复")
	require.NoError(t, store.Bind(context.Background(), types.Record{Name: "A", Type: types.OfficeType, Endpoint: "e"}))
	testutil.Eventually(t, 2*time.Second, func() bool { return rec.Len() == 1 }, "恢复后未收到通知")
	assert.Equal(t, types.DirectoryEvent{Name: "A", Type: types.OfficeType, Bound: true}, rec.Events()[0])
}

func TestDirectory_SubscribeUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = NewDirectoryStub(newClient(t), addr).Subscribe(context.Background(), &testutil.DirectoryRecorder{}, types.Filter{Bound: true})
	assert.ErrorIs(t, err, rpc.ErrUnreachable)
}

// ============================================================================
//                              地址与模块
// ============================================================================

func TestAdvertiseAddr(t *testing.T) {
	tcp := func(s string) net.Addr {
		a, err := net.ResolveTCPAddr("tcp", s)
		require.NoError(t, err)
		return a
	}

	assert.Equal(t, "10.0.0.5:7000", AdvertiseAddr(tcp("0.0.0.0:1"), "10.0.0.5:7000"))
	assert.Equal(t, "127.0.0.1:4000", AdvertiseAddr(tcp("0.0.0.0:4000"), ""))
	assert.Equal(t, "127.0.0.1:4000", AdvertiseAddr(tcp("[::]:4000"), ""))
	assert.Equal(t, "192.168.1.2:4000", AdvertiseAddr(tcp("192.168.1.2:4000"), ""))
	assert.Equal(t, "", AdvertiseAddr(nil, ""))
}

func TestModule_Lifecycle(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Transport.ListenAddr = "127.0.0.1:0"

	var (
		endpoint  *Endpoint
		listeners *ListenerRegistry
		dialer    *Dialer
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&endpoint, &listeners, &dialer),
	)
	app.RequireStart()
	defer app.RequireStop()

	addr := endpoint.String()
	require.NotEmpty(t, addr)
	assert.NotContains(t, addr, ":0")

	rec := testutil.NewRecorder()
	ref := listeners.Register(rec)
	assert.Equal(t, addr, ref.Endpoint)

	l, err := dialer.DialListener(ref)
	require.NoError(t, err)
	require.NoError(t, l.Notify(context.Background(), types.NewArrived("t", "A", time.Now())))
	assert.Equal(t, 1, rec.Len())
}
