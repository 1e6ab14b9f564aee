package types

import (
	"fmt"
	"math"
)

// Coordinate 二维平面坐标
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo 返回到另一坐标的欧氏距离
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return Distance(c, other)
}

// Equal 判断坐标是否相同
func (c Coordinate) Equal(other Coordinate) bool {
	return c.X == other.X && c.Y == other.Y
}

// String 返回 "(x,y)" 形式
func (c Coordinate) String() string {
	return fmt.Sprintf("(%g,%g)", c.X, c.Y)
}

// Distance 计算两点间欧氏距离，永不失败
func Distance(a, b Coordinate) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Identity 办公室身份
//
// 进程启动时创建，之后不再修改。
type Identity struct {
	// Name 目录中的唯一名称
	Name string `json:"name"`

	// Coordinate 固定坐标
	Coordinate Coordinate `json:"coordinate"`
}
