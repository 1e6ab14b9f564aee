package types

import "time"

// OfficeType 办公室在目录中的类型标签
const OfficeType = "GPSOffice"

// Record 目录记录
type Record struct {
	// Name 绑定名称
	Name string `json:"name"`

	// Type 类型标签
	Type string `json:"type"`

	// Endpoint 句柄所在的 RPC 地址
	Endpoint string `json:"endpoint"`

	// TTL 有效期，0 表示永久
	TTL time.Duration `json:"ttl,omitempty"`
}

// Filter 目录变更订阅过滤器
type Filter struct {
	// Type 只关注此类型，空表示全部
	Type string `json:"type"`

	// Bound 报告绑定事件
	Bound bool `json:"bound"`

	// Unbound 报告解绑事件
	Unbound bool `json:"unbound"`
}

// Match 判断事件是否满足过滤条件
func (f Filter) Match(ev DirectoryEvent) bool {
	if f.Type != "" && f.Type != ev.Type {
		return false
	}
	if ev.Bound {
		return f.Bound
	}
	return f.Unbound
}

// DirectoryEvent 目录变更通知
type DirectoryEvent struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Bound bool   `json:"bound"`
}

// Lease 订阅租约
type Lease struct {
	// ID 租约 ID
	ID string `json:"id"`

	// ExpiresAt 过期时间，零值表示不过期
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired 判断在 now 时刻是否已过期
func (l Lease) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !now.Before(l.ExpiresAt)
}
