package neighbor

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// DefaultMaxNeighbors 默认邻居上限
const DefaultMaxNeighbors = 3

// ErrInvalidPolicy 未知替换策略
var ErrInvalidPolicy = errors.New("neighbor: invalid eviction policy")

// Policy 表满时的替换策略
type Policy int

const (
	// FirstFit 替换第一个更远的条目
	FirstFit Policy = iota
	// BestFit 替换最远的条目
	BestFit
)

// String 返回策略名称
func (p Policy) String() string {
	if p == BestFit {
		return "best-fit"
	}
	return "first-fit"
}

// ParsePolicy 解析策略名称，空字符串为 FirstFit
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "first-fit", "firstfit":
		return FirstFit, nil
	case "best-fit", "bestfit":
		return BestFit, nil
	default:
		return FirstFit, ErrInvalidPolicy
	}
}

// Candidate 候选邻居
type Candidate struct {
	Name       string
	Coordinate types.Coordinate
	Handle     interfaces.Office
}

// Descriptor 邻居描述符
//
// 只归属一个邻居表；替换时整体换掉，不原地修改。
type Descriptor struct {
	Name       string
	Coordinate types.Coordinate
	Handle     interfaces.Office

	// Distance 到所属办公室的距离（缓存）
	Distance float64
}

// Table 有界邻居表
type Table struct {
	self   types.Identity
	k      int
	policy Policy

	mu      sync.Mutex
	entries []Descriptor
}

// New 创建邻居表
//
// k <= 0 时使用 DefaultMaxNeighbors。
func New(self types.Identity, k int, policy Policy) *Table {
	if k <= 0 {
		k = DefaultMaxNeighbors
	}
	return &Table{
		self:    self,
		k:       k,
		policy:  policy,
		entries: make([]Descriptor, 0, k),
	}
}

// Self 返回所属办公室身份
func (t *Table) Self() types.Identity {
	return t.self
}

// Capacity 返回 K
func (t *Table) Capacity() int {
	return t.k
}

// InsertCandidate 插入候选邻居
//
// 返回值表示表是否发生变化。候选者为自身或已在表中时不做任何操作。
func (t *Table) InsertCandidate(c Candidate) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertLocked(c)
}

// RemoveByName 按名称移除邻居，不存在时不做任何操作
func (t *Table) RemoveByName(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].Name == name {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// FullResync 清空并按列表顺序重建
//
// 单次移除无法知道之前是否因表满而排除了更近的候选者，因此解绑后需要重建。
func (t *Table) FullResync(candidates []Candidate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = t.entries[:0]
	for _, c := range candidates {
		t.insertLocked(c)
	}
}

// ClosestTo 返回 {自身, 所有邻居} 中离 dest 最近者
//
// 第二个返回值为 false 表示自身最近（平局时偏向自身，因为自身无需再跳）。
func (t *Table) ClosestTo(dest types.Coordinate) (Descriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	best := t.self.Coordinate.DistanceTo(dest)
	idx := -1
	for i := range t.entries {
		if d := t.entries[i].Coordinate.DistanceTo(dest); d < best {
			best = d
			idx = i
		}
	}
	if idx < 0 {
		return Descriptor{}, false
	}
	return t.entries[idx], true
}

// Snapshot 返回当前条目的拷贝（按距离升序）
func (t *Table) Snapshot() []Descriptor {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Descriptor, len(t.entries))
	copy(out, t.entries)
	return out
}

// Names 返回当前邻居名称（按距离升序）
func (t *Table) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, len(t.entries))
	for i := range t.entries {
		names[i] = t.entries[i].Name
	}
	return names
}

// Len 返回当前邻居数
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// ============================================================================
//                              内部方法
// ============================================================================

// insertLocked 调用方必须持有 t.mu
func (t *Table) insertLocked(c Candidate) bool {
	if c.Name == "" || c.Name == t.self.Name {
		return false
	}
	for i := range t.entries {
		if t.entries[i].Name == c.Name {
			return false
		}
	}

	d := Descriptor{
		Name:       c.Name,
		Coordinate: c.Coordinate,
		Handle:     c.Handle,
		Distance:   t.self.Coordinate.DistanceTo(c.Coordinate),
	}

	if len(t.entries) < t.k {
		t.entries = append(t.entries, d)
		t.sortLocked()
		return true
	}

	victim := -1
	switch t.policy {
	case BestFit:
		for i := range t.entries {
			if t.entries[i].Distance > d.Distance && (victim < 0 || t.entries[i].Distance > t.entries[victim].Distance) {
				victim = i
			}
		}
	default:
		for i := range t.entries {
			if t.entries[i].Distance > d.Distance {
				victim = i
				break
			}
		}
	}
	if victim < 0 {
		return false
	}

	t.entries[victim] = d
	t.sortLocked()
	return true
}

// sortLocked 稳定排序，相同距离保持先到先得
func (t *Table) sortLocked() {
	sort.SliceStable(t.entries, func(i, j int) bool {
		return t.entries[i].Distance < t.entries[j].Distance
	})
}
