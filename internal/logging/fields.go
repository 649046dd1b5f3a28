package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供分类/策略/命中来源字段，供请求处理日志复用。
func FetchFields(class, strategy, source string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"class":     class,
		"strategy":  strategy,
		"source":    source,
		"cache_hit": cacheHit,
	}
}

// LifecycleFields 提供安装/激活阶段的公共字段。
func LifecycleFields(action, version string) logrus.Fields {
	return logrus.Fields{
		"action":  action,
		"version": version,
	}
}
