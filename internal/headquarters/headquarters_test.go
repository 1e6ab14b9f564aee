package headquarters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-gpsoffice/internal/discovery/directory"
	"github.com/dep2p/go-gpsoffice/internal/localnet"
	"github.com/dep2p/go-gpsoffice/internal/office"
	"github.com/dep2p/go-gpsoffice/internal/testutil"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// syncBuffer 并发安全的输出
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeSink 记录发布的事件
type fakeSink struct {
	mu     sync.Mutex
	events []types.Event
	err    error
	closed bool
}

func (s *fakeSink) Publish(_ context.Context, ev types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func startOffice(t *testing.T, store *directory.Store, net *localnet.Network, name string, x, y float64) *office.Office {
	t.Helper()
	cfg := office.DefaultConfig()
	cfg.ProcessingDelay = 10 * time.Millisecond
	cfg.ForwardTimeout = 2 * time.Second
	cfg.ResyncInterval = 0
	o, err := office.New(types.Identity{Name: name, Coordinate: types.Coordinate{X: x, Y: y}}, store, net, nil, cfg)
	require.NoError(t, err)
	endpoint := "ep-" + name
	net.AddOffice(endpoint, o)
	require.NoError(t, o.Start(context.Background(), endpoint))
	t.Cleanup(func() { _ = o.Stop(context.Background()) })
	return o
}

func newStore(t *testing.T) *directory.Store {
	t.Helper()
	store := directory.NewStore(directory.DefaultStoreConfig())
	store.Start()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// ============================================================================
//                              总部
// ============================================================================

func TestHeadquarters_AttachesExistingAndNewOffices(t *testing.T) {
	store := newStore(t)
	net := localnet.New()
	a := startOffice(t, store, net, "A", 0, 0)

	out := &syncBuffer{}
	sink := &fakeSink{}
	hq := New(store, net, Config{Out: out}, sink)
	require.NoError(t, hq.Start(context.Background(), net.AddListener(hq)))
	defer hq.Stop()

	testutil.Eventually(t, 2*time.Second, func() bool { return hq.Offices() == 1 }, "未注册到已有办公室")

	startOffice(t, store, net, "B", 10, 0)
	testutil.Eventually(t, 2*time.Second, func() bool { return hq.Offices() == 2 }, "未注册到新办公室")
	testutil.Eventually(t, 2*time.Second, func() bool {
		return assert.ObjectsAreEqual([]string{"B"}, a.Neighbors())
	}, "A 的邻居表未收敛")

	customer := testutil.NewRecorder()
	id, err := a.CreatePacket(context.Background(), types.Coordinate{X: 10, Y: 0}, net.AddListener(customer))
	require.NoError(t, err)
	_, ok := customer.WaitTerminal(3 * time.Second)
	require.True(t, ok)

	delivered := "Package number " + id.String() + " delivered from B office to (10,0)"
	testutil.Eventually(t, 2*time.Second, func() bool {
		return strings.Contains(out.String(), delivered)
	}, "总部未打印投递消息")
	assert.Contains(t, out.String(), "Package number "+id.String()+" arrived at A office")
	// Arrived@A Departed@A Arrived@B Delivered@B
	testutil.Eventually(t, 2*time.Second, func() bool { return sink.Len() == 4 }, "输出未收到全部事件")
}

func TestHeadquarters_AttachOncePerName(t *testing.T) {
	store := newStore(t)
	dialer := testutil.NewMockDialer()

	var calls atomic.Int32
	mock := testutil.NewMockOffice("A", 0, 0)
	mock.AddListenerFunc = func(_ context.Context, ref types.ListenerRef) (types.Lease, error) {
		calls.Add(1)
		return types.Lease{ID: "lease-" + ref.ID}, nil
	}
	dialer.AddOffice("ep-A", mock)
	require.NoError(t, store.Bind(context.Background(), types.Record{Name: "A", Type: types.OfficeType, Endpoint: "ep-A"}))

	hq := New(store, dialer, Config{Out: &syncBuffer{}})
	require.NoError(t, hq.Start(context.Background(), types.ListenerRef{Endpoint: "hq", ID: "1"}))
	defer hq.Stop()
	assert.Equal(t, 1, hq.Offices())

	// 已注册的名字再次出现时忽略
	hq.OnDirectoryEvent(types.DirectoryEvent{Name: "A", Type: types.OfficeType, Bound: true})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	// 解绑后再绑定视为新办公室
	hq.OnDirectoryEvent(types.DirectoryEvent{Name: "A", Type: types.OfficeType, Bound: false})
	assert.Equal(t, 0, hq.Offices())
	hq.OnDirectoryEvent(types.DirectoryEvent{Name: "A", Type: types.OfficeType, Bound: true})
	testutil.Eventually(t, 2*time.Second, func() bool { return calls.Load() == 2 }, "未重新注册")
	testutil.Eventually(t, 2*time.Second, func() bool { return hq.Offices() == 1 }, "注册未完成")
}

func TestHeadquarters_UnboundDuringAttachDropsLease(t *testing.T) {
	store := newStore(t)
	dialer := testutil.NewMockDialer()

	var calls atomic.Int32
	release := make(chan struct{})
	mock := testutil.NewMockOffice("A", 0, 0)
	mock.AddListenerFunc = func(_ context.Context, ref types.ListenerRef) (types.Lease, error) {
		// 只有第一次注册被阻塞
		if calls.Add(1) == 1 {
			<-release
		}
		return types.Lease{ID: "lease-" + ref.ID}, nil
	}
	dialer.AddOffice("ep-A", mock)

	hq := New(store, dialer, Config{Out: &syncBuffer{}})
	require.NoError(t, hq.Start(context.Background(), types.ListenerRef{Endpoint: "hq", ID: "1"}))
	defer hq.Stop()

	require.NoError(t, store.Bind(context.Background(), types.Record{Name: "A", Type: types.OfficeType, Endpoint: "ep-A"}))
	testutil.Eventually(t, 2*time.Second, func() bool { return calls.Load() == 1 }, "注册未开始")

	hq.OnDirectoryEvent(types.DirectoryEvent{Name: "A", Type: types.OfficeType, Bound: false})
	close(release)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, hq.Offices())

	// 解绑时丢弃的注册不应阻止再次绑定
	hq.OnDirectoryEvent(types.DirectoryEvent{Name: "A", Type: types.OfficeType, Bound: true})
	testutil.Eventually(t, 2*time.Second, func() bool { return calls.Load() == 2 }, "未重新注册")
	testutil.Eventually(t, 2*time.Second, func() bool { return hq.Offices() == 1 }, "注册未完成")
}

func TestHeadquarters_ResubscribedReconciles(t *testing.T) {
	store := newStore(t)
	dialer := testutil.NewMockDialer()
	for _, name := range []string{"A", "B"} {
		dialer.AddOffice("ep-"+name, testutil.NewMockOffice(name, 0, 0))
	}
	require.NoError(t, store.Bind(context.Background(), types.Record{Name: "A", Type: types.OfficeType, Endpoint: "ep-A"}))

	hq := New(store, dialer, Config{Out: &syncBuffer{}})
	require.NoError(t, hq.Start(context.Background(), types.ListenerRef{Endpoint: "hq", ID: "1"}))
	defer hq.Stop()
	require.Equal(t, 1, hq.Offices())

	// 模拟订阅中断期间 A 解绑、B 加入
	hq.unsubscribe()
	require.NoError(t, store.Unbind(context.Background(), "A"))
	require.NoError(t, store.Bind(context.Background(), types.Record{Name: "B", Type: types.OfficeType, Endpoint: "ep-B"}))
	time.Sleep(20 * time.Millisecond)

	hq.OnResubscribed()
	testutil.Eventually(t, 2*time.Second, func() bool {
		hq.mu.Lock()
		defer hq.mu.Unlock()
		_, hasA := hq.attached["A"]
		b, hasB := hq.attached["B"]
		return !hasA && hasB && b.lease.ID != ""
	}, "重新枚举后应只保留 B")
	assert.Equal(t, 1, hq.Offices())
}

func TestHeadquarters_AttachFailureRetriedOnNextBind(t *testing.T) {
	store := newStore(t)
	dialer := testutil.NewMockDialer()
	require.NoError(t, store.Bind(context.Background(), types.Record{Name: "A", Type: types.OfficeType, Endpoint: "ep-A"}))

	hq := New(store, dialer, Config{Out: &syncBuffer{}})
	require.NoError(t, hq.Start(context.Background(), types.ListenerRef{Endpoint: "hq", ID: "1"}))
	defer hq.Stop()
	assert.Equal(t, 0, hq.Offices())

	dialer.AddOffice("ep-A", testutil.NewMockOffice("A", 0, 0))
	hq.OnDirectoryEvent(types.DirectoryEvent{Name: "A", Type: types.OfficeType, Bound: true})
	testutil.Eventually(t, 2*time.Second, func() bool { return hq.Offices() == 1 }, "失败后未重试")
}

func TestHeadquarters_IgnoresOtherTypes(t *testing.T) {
	store := newStore(t)
	dialer := testutil.NewMockDialer()
	dialer.AddOffice("ep-X", testutil.NewMockOffice("X", 0, 0))
	require.NoError(t, store.Bind(context.Background(), types.Record{Name: "X", Type: "Warehouse", Endpoint: "ep-X"}))

	hq := New(store, dialer, Config{Out: &syncBuffer{}})
	require.NoError(t, hq.Start(context.Background(), types.ListenerRef{Endpoint: "hq", ID: "1"}))
	defer hq.Stop()
	assert.Equal(t, 0, hq.Offices())
}

func TestHeadquarters_NotifyPrintsAndPublishes(t *testing.T) {
	out := &syncBuffer{}
	ok := &fakeSink{}
	failing := &fakeSink{err: errors.New("sink down")}
	hq := New(newStore(t), testutil.NewMockDialer(), Config{Out: out}, failing, ok)

	ev := types.NewLost("42", "C", time.Now())
	require.NoError(t, hq.Notify(context.Background(), ev))
	assert.Equal(t, "Package number 42 lost by C office\n", out.String())
	assert.Equal(t, 1, ok.Len())
	assert.Equal(t, 1, failing.Len())

	require.NoError(t, hq.Stop())
	assert.True(t, ok.closed)
	assert.True(t, failing.closed)
}

func TestHeadquarters_StartTwice(t *testing.T) {
	hq := New(newStore(t), testutil.NewMockDialer(), Config{Out: &syncBuffer{}})
	require.NoError(t, hq.Start(context.Background(), types.ListenerRef{Endpoint: "hq", ID: "1"}))
	assert.ErrorIs(t, hq.Start(context.Background(), types.ListenerRef{Endpoint: "hq", ID: "1"}), ErrAlreadyStarted)
	require.NoError(t, hq.Stop())
	assert.ErrorIs(t, hq.Start(context.Background(), types.ListenerRef{Endpoint: "hq", ID: "1"}), ErrAlreadyStarted)
}

func TestHeadquarters_StartFailsOnClosedDirectory(t *testing.T) {
	store := directory.NewStore(directory.DefaultStoreConfig())
	require.NoError(t, store.Close())

	hq := New(store, testutil.NewMockDialer(), Config{Out: &syncBuffer{}})
	err := hq.Start(context.Background(), types.ListenerRef{Endpoint: "hq", ID: "1"})
	assert.ErrorIs(t, err, directory.ErrClosed)
}

// ============================================================================
//                              websocket
// ============================================================================

func TestFeed_BroadcastsJSON(t *testing.T) {
	feed := NewFeed()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	testutil.Eventually(t, 2*time.Second, func() bool { return feed.Clients() == 1 }, "客户端未加入")

	dest := types.Coordinate{X: 20, Y: 0}
	require.NoError(t, feed.Publish(context.Background(), types.NewDelivered("7", "C", dest, time.Now())))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got FeedEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "delivered", got.Kind)
	assert.Equal(t, "7", got.TrackingID)
	assert.Equal(t, "C", got.Office)
	require.NotNil(t, got.Destination)
	assert.Equal(t, dest, *got.Destination)

	require.NoError(t, feed.Close())
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	testutil.Eventually(t, 2*time.Second, func() bool { return feed.Clients() == 0 }, "客户端未移除")
}

func TestFeedServer_StartStop(t *testing.T) {
	fs := NewFeedServer("127.0.0.1:0", NewFeed())
	require.NoError(t, fs.Start())
	require.NotNil(t, fs.Addr())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+fs.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	_ = conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fs.Stop(ctx))
}

func TestNewFeedEvent_OmitsDestinationUnlessDelivered(t *testing.T) {
	fe := NewFeedEvent(types.NewArrived("1", "A", time.Now()))
	assert.Nil(t, fe.Destination)

	data, err := json.Marshal(fe)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "destination")
}

// ============================================================================
//                              MQTT
// ============================================================================

type fakeToken struct {
	ok  bool
	err error
}

func (t *fakeToken) Wait() bool                     { return t.ok }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.ok }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakePublisher struct {
	token        *fakeToken
	topic        string
	qos          byte
	payload      []byte
	disconnected bool
}

func (p *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	p.topic = topic
	p.qos = qos
	p.payload, _ = payload.([]byte)
	return p.token
}

func (p *fakePublisher) Disconnect(uint) {
	p.disconnected = true
}

func TestMQTTSink_PublishesPerOfficeTopic(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{ok: true}}
	sink := newMQTTSink(MQTTConfig{Topic: "gpsoffice/events", QoS: 1}, pub)

	require.NoError(t, sink.Publish(context.Background(), types.NewDeparted("9", "B", time.Now())))
	assert.Equal(t, "gpsoffice/events/B", pub.topic)
	assert.Equal(t, byte(1), pub.qos)

	var got FeedEvent
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, "departed", got.Kind)
	assert.Equal(t, "9", got.TrackingID)

	require.NoError(t, sink.Close())
	assert.True(t, pub.disconnected)
}

func TestMQTTSink_Errors(t *testing.T) {
	sink := newMQTTSink(MQTTConfig{Topic: "t"}, &fakePublisher{token: &fakeToken{ok: false}})
	assert.ErrorIs(t, sink.Publish(context.Background(), types.NewArrived("1", "A", time.Now())), ErrMQTTTimeout)

	brokerErr := errors.New("not authorized")
	sink = newMQTTSink(MQTTConfig{Topic: "t"}, &fakePublisher{token: &fakeToken{ok: true, err: brokerErr}})
	assert.ErrorIs(t, sink.Publish(context.Background(), types.NewArrived("1", "A", time.Now())), brokerErr)
}
