package office

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/internal/core/metrics"
	"github.com/dep2p/go-gpsoffice/internal/discovery/directory"
	"github.com/dep2p/go-gpsoffice/internal/remote"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

func TestModule_ServesOfficeOverRPC(t *testing.T) {
	store := directory.NewStore(directory.DefaultStoreConfig())
	store.Start()
	defer store.Close()

	cfg := config.NewConfig()
	cfg.Transport.ListenAddr = "127.0.0.1:0"
	cfg.Office.ProcessingDelay = config.Duration(10 * time.Millisecond)
	cfg.Office.MetricsAddr = "127.0.0.1:0"

	var (
		o      *Office
		dialer *remote.Dialer
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Supply(types.Identity{Name: "A", Coordinate: types.Coordinate{X: 1, Y: 2}}),
		fx.Provide(func() interfaces.Directory { return store }),
		remote.Module,
		metrics.Module,
		Module,
		fx.Populate(&o, &dialer),
	)
	app.RequireStart()

	rec, err := store.Lookup(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, types.OfficeType, rec.Type)
	assert.Equal(t, o.Endpoint(), rec.Endpoint)

	handle, err := dialer.DialOffice(rec.Endpoint)
	require.NoError(t, err)
	coord, err := handle.Coordinate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Coordinate{X: 1, Y: 2}, coord)

	_, err = handle.CreatePacket(context.Background(), types.Coordinate{X: 1, Y: 2}, types.ListenerRef{})
	require.NoError(t, err)

	app.RequireStop()
	_, err = store.Lookup(context.Background(), "A")
	assert.ErrorIs(t, err, directory.ErrNotBound)
}

func TestMetricsServer_ServesRegistry(t *testing.T) {
	collector := metrics.NewCollector()
	collector.PacketCreated()

	ms := NewMetricsServer("127.0.0.1:0", collector)
	require.NoError(t, ms.Start())
	defer ms.Stop(context.Background())

	resp, err := http.Get("http://" + ms.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gpsoffice_packets_created_total 1")
}
