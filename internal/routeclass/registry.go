package routeclass

import (
	"fmt"
	"sort"
	"sync"
)

var globalRegistry = newRegistry()

type registry struct {
	mu      sync.RWMutex
	classes map[Class]Descriptor
}

func newRegistry() *registry {
	return &registry{classes: make(map[Class]Descriptor)}
}

// Register 将分类描述加入全局注册表，重复键会返回错误。
func Register(desc Descriptor) error {
	return globalRegistry.register(desc)
}

// MustRegister 在注册失败时 panic，适合分类子包 init() 中调用。
func MustRegister(desc Descriptor) {
	if err := Register(desc); err != nil {
		panic(err)
	}
}

// Resolve 返回指定分类的描述。
func Resolve(key Class) (Descriptor, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的分类描述列表。
func List() []Descriptor {
	return globalRegistry.list()
}

// Keys 返回所有已注册分类的键值，供诊断端使用。
func Keys() []Class {
	items := List()
	result := make([]Class, len(items))
	for i, desc := range items {
		result[i] = desc.Key
	}
	return result
}

func (r *registry) register(desc Descriptor) error {
	if desc.Key == "" {
		return fmt.Errorf("route class key is required")
	}
	if desc.Strategy != StrategyNetworkFirst && desc.Strategy != StrategyCacheFirst {
		return fmt.Errorf("route class %s: unknown strategy %q", desc.Key, desc.Strategy)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classes[desc.Key]; exists {
		return fmt.Errorf("route class %s already registered", desc.Key)
	}
	r.classes[desc.Key] = desc
	return nil
}

func (r *registry) resolve(key Class) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.classes[key]
	return desc, ok
}

func (r *registry) list() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.classes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.classes))
	for key := range r.classes {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)

	result := make([]Descriptor, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.classes[Class(key)])
	}
	return result
}
