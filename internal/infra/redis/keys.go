package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixJoinIdemResult：入局幂等“结果缓存”Key 的前缀。
	// 作用：缓存某个 idempotency key 对应的第一次成功结果（JoinOutput JSON），用于后续重复请求直接返回。
	PrefixJoinIdemResult = "join:idem:result:"
	// PrefixJoinIdemLock：入局幂等“进行中锁”Key 的前缀。
	// 作用：使用 SETNX + TTL 标记 idempotency key 正在处理，吸收瞬时重复请求，减轻数据库压力。
	PrefixJoinIdemLock = "join:idem:lock:"

	// PrefixRoomSnapshot：房间快照缓存，用于前端倒计时、席位展示等快速查询
	PrefixRoomSnapshot = "room:snapshot:"
	// PrefixRoomResult：开转结果缓存
	PrefixRoomResult = "room:result:"
)

// IdemResultKey：构造幂等“结果缓存”的完整 Key。
// 形如：join:idem:result:{idempotency_key}
func IdemResultKey(k string) string { return PrefixJoinIdemResult + k }

// IdemLockKey：构造幂等“进行中锁”的完整 Key。
// 形如：join:idem:lock:{idempotency_key}
func IdemLockKey(k string) string { return PrefixJoinIdemLock + k }

// RoomSnapshotKey：构造房间快照缓存 Key。形如：room:snapshot:{room_id}
func RoomSnapshotKey(roomID string) string { return PrefixRoomSnapshot + roomID }

// RoomResultKey：构造开转结果缓存 Key。形如：room:result:{room_id}
func RoomResultKey(roomID string) string { return PrefixRoomResult + roomID }
