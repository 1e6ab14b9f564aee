package metrics

// Stats 办公室指标快照
type Stats struct {
	Arrived        int64   // 到达事件数
	Departed       int64   // 离开事件数
	Delivered      int64   // 投递事件数
	Lost           int64   // 丢失事件数
	Created        int64   // 创建包裹数
	ForwardFailure int64   // 转发失败次数
	Neighbors      int     // 当前邻居数
	ForwardRate    float64 // 最近 60 秒转发速率（包裹/秒）
}
