package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance(Coordinate{0, 0}, Coordinate{3, 4}))
	assert.Equal(t, 0.0, Coordinate{1, 1}.DistanceTo(Coordinate{1, 1}))
	assert.Equal(t, Distance(Coordinate{-2, 7}, Coordinate{4, -1}), Distance(Coordinate{4, -1}, Coordinate{-2, 7}))
}

func TestCoordinate_String(t *testing.T) {
	assert.Equal(t, "(20,0)", Coordinate{20, 0}.String())
	assert.Equal(t, "(1.5,-2)", Coordinate{1.5, -2}.String())
}

// TestEvent_Messages 测试事件文本沿用原有措辞
func TestEvent_Messages(t *testing.T) {
	now := time.Now()
	id := TrackingID("42")

	assert.Equal(t, "Package number 42 arrived at A office", NewArrived(id, "A", now).Message)
	assert.Equal(t, "Package number 42 departed from A office", NewDeparted(id, "A", now).Message)
	assert.Equal(t, "Package number 42 delivered from C office to (20,0)",
		NewDelivered(id, "C", Coordinate{20, 0}, now).Message)
	assert.Equal(t, "Package number 42 lost by C office", NewLost(id, "C", now).Message)

	assert.False(t, NewArrived(id, "A", now).Terminal())
	assert.False(t, NewDeparted(id, "A", now).Terminal())
	assert.True(t, NewDelivered(id, "A", Coordinate{}, now).Terminal())
	assert.True(t, NewLost(id, "A", now).Terminal())
}

func TestNewTrackingID_Unique(t *testing.T) {
	seen := make(map[TrackingID]struct{})
	for i := 0; i < 1000; i++ {
		id := NewTrackingID()
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestFilter_Match(t *testing.T) {
	f := Filter{Type: OfficeType, Bound: true}
	assert.True(t, f.Match(DirectoryEvent{Name: "a", Type: OfficeType, Bound: true}))
	assert.False(t, f.Match(DirectoryEvent{Name: "a", Type: OfficeType, Bound: false}))
	assert.False(t, f.Match(DirectoryEvent{Name: "a", Type: "Other", Bound: true}))

	all := Filter{Bound: true, Unbound: true}
	assert.True(t, all.Match(DirectoryEvent{Name: "a", Type: "Other"}))
}

func TestLease_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, Lease{ID: "x"}.Expired(now))
	assert.False(t, Lease{ID: "x", ExpiresAt: now.Add(time.Second)}.Expired(now))
	assert.True(t, Lease{ID: "x", ExpiresAt: now}.Expired(now))
}
