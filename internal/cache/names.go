package cache

// 缓存代角色前缀。同一版本下每个角色至多存在一个“当前”代，
// 其余代在 activate 阶段被整体删除。
const (
	RolePrecache = "precache"
	RoleRuntime  = "runtime"
)

// PrecacheName 返回指定版本的预缓存代名字，例如 precache-v2.0.0。
func PrecacheName(version string) string {
	return RolePrecache + "-" + version
}

// RuntimeName 返回指定版本的运行时缓存代名字，例如 runtime-v2.0.0。
func RuntimeName(version string) string {
	return RoleRuntime + "-" + version
}

// CurrentNames 返回当前版本应当保留的全部缓存代名字。
func CurrentNames(version string) map[string]struct{} {
	return map[string]struct{}{
		PrecacheName(version): {},
		RuntimeName(version):  {},
	}
}
