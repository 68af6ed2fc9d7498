package store

// 此包只包含实现，KV 接口定义在 core 包（core.Store / core.KeyValueStore）。
//
// 两个 KV 后端：
//   - MemoryStore：内存实现，测试/开发/原型
//   - RedisStore：生产常用，持久化/集群/哨兵
//
// 领域数据访问契约（core.CandidateStore / core.InteractionStore /
// core.PreferenceStore）的 KV 适配器也在此包（catalog.go / interactions.go /
// preferences.go），任意 KeyValueStore 后端都可直接复用。
