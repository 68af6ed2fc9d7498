package engine

// VariantA / VariantB 是实验分桶标识。
const (
	VariantA = "A"
	VariantB = "B"
)

// Bucket 把用户确定性地分到 A/B 实验桶：对 userID 做 31 乘数滚动哈希后取模。
// 同一个用户在任何进程、任何时刻都落在同一个桶里。
func Bucket(userID string) string {
	var h uint32
	for i := 0; i < len(userID); i++ {
		h = h*31 + uint32(userID[i])
	}
	if h%2 == 0 {
		return VariantA
	}
	return VariantB
}
