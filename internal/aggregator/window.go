package aggregator

import "time"

// Resolution 根据查询跨度选择窗口分辨率
// 按查询跨度覆盖的整天数分档，跨度与分辨率的映射是确定性的纯函数
func Resolution(span time.Duration) time.Duration {
	days := int(span.Hours()) / 24
	switch {
	case days <= 1:
		return 5 * time.Minute
	case days <= 2:
		return 15 * time.Minute
	case days <= 3:
		return 30 * time.Minute
	default:
		return 2 * time.Hour
	}
}
