// Package cache 实现按版本分代的响应缓存存储：Accessor 负责缓存代的
// 打开/枚举/整体删除，Generation 承载具体条目的读写。提供磁盘、SQLite
// 与内存三种后端，以及响应路径之外的后台写入队列。
package cache
