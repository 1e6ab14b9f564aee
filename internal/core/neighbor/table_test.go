package neighbor

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-gpsoffice/pkg/types"
)

func origin() types.Identity {
	return types.Identity{Name: "self", Coordinate: types.Coordinate{X: 0, Y: 0}}
}

// cand 在 x 轴上距离原点 d 处的候选者
func cand(name string, d float64) Candidate {
	return Candidate{Name: name, Coordinate: types.Coordinate{X: d, Y: 0}}
}

// ============================================================================
//                              插入
// ============================================================================

func TestTable_InsertUntilFull(t *testing.T) {
	tbl := New(origin(), 3, FirstFit)

	assert.True(t, tbl.InsertCandidate(cand("a", 5)))
	assert.True(t, tbl.InsertCandidate(cand("b", 1)))
	assert.True(t, tbl.InsertCandidate(cand("c", 3)))
	assert.Equal(t, []string{"b", "c", "a"}, tbl.Names())

	// 已存在的名称不做任何操作
	assert.False(t, tbl.InsertCandidate(cand("a", 0.5)))
	assert.Equal(t, 3, tbl.Len())
}

func TestTable_NeverContainsSelf(t *testing.T) {
	tbl := New(origin(), 3, FirstFit)
	assert.False(t, tbl.InsertCandidate(cand("self", 1)))
	assert.False(t, tbl.InsertCandidate(cand("", 1)))
	assert.Equal(t, 0, tbl.Len())
}

func TestTable_DefaultCapacity(t *testing.T) {
	tbl := New(origin(), 0, FirstFit)
	assert.Equal(t, DefaultMaxNeighbors, tbl.Capacity())
}

// TestTable_FirstFitReplacesFirstFarther 测试 FirstFit 只替换第一个更远的条目
func TestTable_FirstFitReplacesFirstFarther(t *testing.T) {
	tbl := New(origin(), 3, FirstFit)
	tbl.InsertCandidate(cand("a", 1))
	tbl.InsertCandidate(cand("b", 5))
	tbl.InsertCandidate(cand("c", 9))

	// 3 比 5 和 9 都近，但只替换第一个更远者（5）
	assert.True(t, tbl.InsertCandidate(cand("d", 3)))
	assert.Equal(t, []string{"a", "d", "c"}, tbl.Names())

	// 比所有条目都远：不替换
	assert.False(t, tbl.InsertCandidate(cand("e", 10)))
	assert.Equal(t, []string{"a", "d", "c"}, tbl.Names())
}

func TestTable_BestFitReplacesFarthest(t *testing.T) {
	tbl := New(origin(), 3, BestFit)
	tbl.InsertCandidate(cand("a", 1))
	tbl.InsertCandidate(cand("b", 5))
	tbl.InsertCandidate(cand("c", 9))

	assert.True(t, tbl.InsertCandidate(cand("d", 3)))
	assert.Equal(t, []string{"a", "d", "b"}, tbl.Names())
}

// TestTable_EqualDistanceFirstSeenWins 测试相同距离先到先得
func TestTable_EqualDistanceFirstSeenWins(t *testing.T) {
	for _, p := range []Policy{FirstFit, BestFit} {
		tbl := New(origin(), 2, p)
		tbl.InsertCandidate(cand("a", 2))
		tbl.InsertCandidate(cand("b", 2))
		assert.False(t, tbl.InsertCandidate(cand("c", 2)), p.String())
		assert.Equal(t, []string{"a", "b"}, tbl.Names(), p.String())
	}
}

// ============================================================================
//                              移除与重建
// ============================================================================

func TestTable_RemoveByName(t *testing.T) {
	tbl := New(origin(), 3, FirstFit)
	tbl.InsertCandidate(cand("a", 1))
	tbl.InsertCandidate(cand("b", 2))

	assert.True(t, tbl.RemoveByName("a"))
	assert.False(t, tbl.RemoveByName("a"))
	assert.False(t, tbl.RemoveByName("zzz"))
	assert.Equal(t, []string{"b"}, tbl.Names())
}

// TestTable_FullResyncRecoversExcluded 测试重建恢复之前因表满被排除的候选者
func TestTable_FullResyncRecoversExcluded(t *testing.T) {
	tbl := New(origin(), 2, FirstFit)
	all := []Candidate{cand("a", 1), cand("b", 2), cand("c", 3)}
	for _, c := range all {
		tbl.InsertCandidate(c)
	}
	require.Equal(t, []string{"a", "b"}, tbl.Names())

	tbl.RemoveByName("a")
	assert.Equal(t, []string{"b"}, tbl.Names())

	tbl.FullResync([]Candidate{cand("b", 2), cand("c", 3)})
	assert.Equal(t, []string{"b", "c"}, tbl.Names())
}

// TestTable_FullResyncKNearest 测试按距离升序输入时 FirstFit 得到恰好 K 近邻，
// BestFit 对任意顺序都得到 K 近邻
func TestTable_FullResyncKNearest(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var cands []Candidate
	for i := 0; i < 20; i++ {
		cands = append(cands, cand(fmt.Sprintf("n%02d", i), float64(rng.Intn(1000))+rng.Float64()))
	}

	sorted := append([]Candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Coordinate.X < sorted[j].Coordinate.X })
	want := []string{sorted[0].Name, sorted[1].Name, sorted[2].Name}

	ff := New(origin(), 3, FirstFit)
	ff.FullResync(sorted)
	assert.Equal(t, want, ff.Names())

	bf := New(origin(), 3, BestFit)
	bf.FullResync(cands)
	assert.Equal(t, want, bf.Names())

	// 重建是可复现的
	bf2 := New(origin(), 3, BestFit)
	bf2.FullResync(cands)
	assert.Equal(t, bf.Names(), bf2.Names())
}

// ============================================================================
//                              最近查询
// ============================================================================

func TestTable_ClosestTo(t *testing.T) {
	tbl := New(origin(), 3, FirstFit)
	tbl.InsertCandidate(Candidate{Name: "b", Coordinate: types.Coordinate{X: 10, Y: 0}})
	tbl.InsertCandidate(Candidate{Name: "c", Coordinate: types.Coordinate{X: 20, Y: 0}})

	d, ok := tbl.ClosestTo(types.Coordinate{X: 20, Y: 0})
	require.True(t, ok)
	assert.Equal(t, "c", d.Name)
	assert.Equal(t, 20.0, d.Distance)

	d, ok = tbl.ClosestTo(types.Coordinate{X: 11, Y: 3})
	require.True(t, ok)
	assert.Equal(t, "b", d.Name)

	_, ok = tbl.ClosestTo(types.Coordinate{X: -4, Y: 0})
	assert.False(t, ok)
}

// TestTable_ClosestToTieFavorsSelf 测试平局偏向自身
func TestTable_ClosestToTieFavorsSelf(t *testing.T) {
	tbl := New(origin(), 3, FirstFit)
	tbl.InsertCandidate(Candidate{Name: "b", Coordinate: types.Coordinate{X: 10, Y: 0}})

	_, ok := tbl.ClosestTo(types.Coordinate{X: 5, Y: 0})
	assert.False(t, ok)
}

func TestTable_ClosestToEmpty(t *testing.T) {
	tbl := New(origin(), 3, FirstFit)
	_, ok := tbl.ClosestTo(types.Coordinate{X: 100, Y: 100})
	assert.False(t, ok)
}

// ============================================================================
//                              不变量与并发
// ============================================================================

// TestTable_BoundUnderChurn 测试任意插入/移除/重建序列下不超过 K 且不含自身
func TestTable_BoundUnderChurn(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tbl := New(origin(), 3, FirstFit)

	for i := 0; i < 2000; i++ {
		name := fmt.Sprintf("n%d", rng.Intn(12))
		if rng.Intn(8) == 0 {
			name = "self"
		}
		switch rng.Intn(4) {
		case 0, 1:
			tbl.InsertCandidate(cand(name, rng.Float64()*100))
		case 2:
			tbl.RemoveByName(name)
		default:
			tbl.FullResync([]Candidate{cand(name, 3), cand("self", 1), cand("n99", 2), cand("n98", 7)})
		}

		names := tbl.Names()
		require.LessOrEqual(t, len(names), 3)
		require.NotContains(t, names, "self")
	}
}

func TestTable_ConcurrentAccess(t *testing.T) {
	tbl := New(origin(), 3, FirstFit)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				name := fmt.Sprintf("g%d-%d", g, i%5)
				tbl.InsertCandidate(cand(name, float64(i%17)))
				tbl.ClosestTo(types.Coordinate{X: float64(i), Y: 1})
				if i%7 == 0 {
					tbl.RemoveByName(name)
				}
				if i%50 == 0 {
					tbl.FullResync([]Candidate{cand(name, 1)})
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, tbl.Len(), 3)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FirstFit, p)

	p, err = ParsePolicy("Best-Fit")
	require.NoError(t, err)
	assert.Equal(t, BestFit, p)

	_, err = ParsePolicy("random")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
