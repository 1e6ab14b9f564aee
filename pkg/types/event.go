package types

import (
	"fmt"
	"time"
)

// EventKind 包裹生命周期事件类型
type EventKind uint8

const (
	// EventArrived 到达办公室
	EventArrived EventKind = iota + 1
	// EventDeparted 离开办公室
	EventDeparted
	// EventDelivered 已投递（终态）
	EventDelivered
	// EventLost 已丢失（终态）
	EventLost
)

// String 返回事件类型名称
func (k EventKind) String() string {
	switch k {
	case EventArrived:
		return "arrived"
	case EventDeparted:
		return "departed"
	case EventDelivered:
		return "delivered"
	case EventLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Terminal 是否为终态事件
func (k EventKind) Terminal() bool {
	return k == EventDelivered || k == EventLost
}

// Event 包裹生命周期事件
//
// 值类型，发布后不再修改。Destination 仅对 Delivered 有意义。
type Event struct {
	Kind        EventKind  `json:"kind"`
	TrackingID  TrackingID `json:"tracking_id"`
	Office      string     `json:"office"`
	Message     string     `json:"message"`
	Destination Coordinate `json:"destination"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Terminal 是否为终态事件
func (e Event) Terminal() bool {
	return e.Kind.Terminal()
}

// NewArrived 构造到达事件
func NewArrived(id TrackingID, office string, now time.Time) Event {
	return Event{
		Kind:       EventArrived,
		TrackingID: id,
		Office:     office,
		Message:    fmt.Sprintf("Package number %s arrived at %s office", id, office),
		Timestamp:  now,
	}
}

// NewDeparted 构造离开事件
func NewDeparted(id TrackingID, office string, now time.Time) Event {
	return Event{
		Kind:       EventDeparted,
		TrackingID: id,
		Office:     office,
		Message:    fmt.Sprintf("Package number %s departed from %s office", id, office),
		Timestamp:  now,
	}
}

// NewDelivered 构造投递事件
func NewDelivered(id TrackingID, office string, dest Coordinate, now time.Time) Event {
	return Event{
		Kind:        EventDelivered,
		TrackingID:  id,
		Office:      office,
		Message:     fmt.Sprintf("Package number %s delivered from %s office to %s", id, office, dest),
		Destination: dest,
		Timestamp:   now,
	}
}

// NewLost 构造丢失事件
//
// office 为被判定丢失包裹的办公室（即不可达的下一跳）。
func NewLost(id TrackingID, office string, now time.Time) Event {
	return Event{
		Kind:       EventLost,
		TrackingID: id,
		Office:     office,
		Message:    fmt.Sprintf("Package number %s lost by %s office", id, office),
		Timestamp:  now,
	}
}
