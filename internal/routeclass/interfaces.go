package routeclass

// Class 是请求分类结果，每个被拦截的 fetch 恰好命中一类。
type Class string

const (
	ClassNavigation  Class = "navigation"
	ClassMedia       Class = "media"
	ClassStatic      Class = "static"
	ClassAPIRead     Class = "api-read"
	ClassPassthrough Class = "passthrough"
)

// StrategyKind 描述某一类请求使用的取数策略。
type StrategyKind string

const (
	StrategyNetworkFirst StrategyKind = "network-first"
	StrategyCacheFirst   StrategyKind = "cache-first"
)

// Descriptor 记录一个被拦截分类的静态信息：策略、网络失败时的兜底资源，
// 供执行器分发与诊断端展示使用。passthrough 不注册，它代表不拦截。
type Descriptor struct {
	Key         Class
	Description string
	Strategy    StrategyKind

	// FallbackPath 指向预缓存中的兜底资源；为空表示网络失败原样上抛。
	FallbackPath string
}

// HasFallback 返回该分类在网络失败时是否有兜底资源可用。
func (d Descriptor) HasFallback() bool {
	return d.FallbackPath != ""
}
