// Package service implements the business logic layer
// Package service 实现业务逻辑层
package service

// ServiceConfig service layer configuration
// ServiceConfig 服务层配置
type ServiceConfig struct {
	Record  RecordServiceConfig  // Record engine config // 修订记录引擎配置
	Summary SummaryServiceConfig // Summary cascade config // 统计级联配置
}

// RecordServiceConfig record service configuration
// RecordServiceConfig 修订记录服务配置
type RecordServiceConfig struct {
	// SystemActorName actor name stamped on writes without an actor // 无操作者时使用的名称
	SystemActorName string
	// HistoryPageSize default page size of revision listings // 修订列表默认分页大小
	HistoryPageSize int
}

// SummaryServiceConfig summary cascade configuration
// SummaryServiceConfig 统计级联配置
type SummaryServiceConfig struct {
	// RecountConcurrency institutions recomputed in parallel by RecomputeAll // 批量重算并发数
	RecountConcurrency int
}

// DefaultServiceConfig returns the configuration used when none is injected
// DefaultServiceConfig 返回未注入配置时的默认值
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Record:  RecordServiceConfig{SystemActorName: "system", HistoryPageSize: 20},
		Summary: SummaryServiceConfig{RecountConcurrency: 4},
	}
}
