package aggregator

import (
	"sort"
	"strconv"
	"time"

	"vitalwatch/internal/models"
)

// 聚合输出的字段顺序：数值字段在前，状态字段在后
var numericFields = []string{"temp", "heart_rate", "oxygen"}

// StateField 分类状态字段名
const StateField = "state"

// 加权多数权重：严重状态即使样本更少也优先胜出
var stateWeights = map[models.HealthState]int{
	models.StateDangerous: 3,
	models.StateRisky:     2,
	models.StateNormal:    1,
}

// 平分时的裁决顺序（显式常量表，不依赖 map 遍历顺序）
var statePriority = []models.HealthState{
	models.StateDangerous,
	models.StateRisky,
	models.StateNormal,
}

// numericWindow 单个数值窗口累加器
type numericWindow struct {
	sum   float64
	min   float64
	max   float64
	count int
}

// Aggregate 将原始样本按固定分辨率窗口聚合
// 纯函数：相同输入必然产生相同输出，可被多个查询请求并发调用
// 数值字段输出 {均值, 最小, 最大, 样本数}；状态字段输出加权多数状态
// 空输入返回空切片（无数据不是错误）
func Aggregate(samples []models.RawSample, resolution time.Duration) []models.AggregatedPoint {
	if len(samples) == 0 {
		return []models.AggregatedPoint{}
	}

	// 数值字段：field -> windowStart -> 累加器
	numeric := make(map[string]map[time.Time]*numericWindow)
	for _, field := range numericFields {
		numeric[field] = make(map[time.Time]*numericWindow)
	}
	// 状态字段：windowStart -> state -> 出现次数
	states := make(map[time.Time]map[models.HealthState]int)

	for _, sample := range samples {
		// 窗口对齐到固定纪元（Truncate 按 Unix 纪元对齐）
		windowStart := sample.Time.Truncate(resolution)

		if sample.Field == StateField {
			state := models.HealthState(sample.Value)
			if !state.Valid() {
				// 未知状态在计数前剔除
				continue
			}
			if states[windowStart] == nil {
				states[windowStart] = make(map[models.HealthState]int)
			}
			states[windowStart][state]++
			continue
		}

		windows, ok := numeric[sample.Field]
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(sample.Value, 64)
		if err != nil {
			// 无法数值转换的样本直接丢弃，不计入 count
			continue
		}
		w := windows[windowStart]
		if w == nil {
			w = &numericWindow{min: value, max: value}
			windows[windowStart] = w
		}
		w.sum += value
		w.count++
		if value < w.min {
			w.min = value
		}
		if value > w.max {
			w.max = value
		}
	}

	points := make([]models.AggregatedPoint, 0)

	for _, field := range numericFields {
		windows := numeric[field]
		for _, windowStart := range sortedWindows(windows) {
			w := windows[windowStart]
			points = append(points, models.AggregatedPoint{
				WindowStart: windowStart,
				Field:       field,
				Value:       w.sum / float64(w.count),
				MinValue:    w.min,
				MaxValue:    w.max,
				SampleCount: w.count,
			})
		}
	}

	for _, windowStart := range sortedStateWindows(states) {
		state := weightedMajority(states[windowStart])
		points = append(points, models.AggregatedPoint{
			WindowStart: windowStart,
			Field:       StateField,
			Value:       string(state),
			MinValue:    string(state),
			MaxValue:    string(state),
			SampleCount: 1,
		})
	}

	return points
}

// weightedMajority 计算窗口内的加权多数状态
// 得分 = 出现次数 × 权重；得分相同时按 dangerous > risky > normal 裁决
func weightedMajority(counts map[models.HealthState]int) models.HealthState {
	best := models.StateNormal
	bestScore := -1
	for _, state := range statePriority {
		score := counts[state] * stateWeights[state]
		if score > bestScore {
			best = state
			bestScore = score
		}
	}
	return best
}

func sortedWindows(windows map[time.Time]*numericWindow) []time.Time {
	keys := make([]time.Time, 0, len(windows))
	for k := range windows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

func sortedStateWindows(windows map[time.Time]map[models.HealthState]int) []time.Time {
	keys := make([]time.Time, 0, len(windows))
	for k := range windows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}
