package helper

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// 展示码字符表：去掉易混淆的 I/O/0/1
const displayCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DisplayCodeLen 展示码长度
const DisplayCodeLen = 6

// GenerateDisplayCode 生成玩家在房间内的展示码（局内短标识，非全局唯一）
// 使用 crypto/rand，避免可预测的码值
func GenerateDisplayCode() (string, error) {
	b := make([]byte, DisplayCodeLen)
	max := big.NewInt(int64(len(displayCodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("display code rand failed: %w", err)
		}
		b[i] = displayCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// CryptoIntn 返回 [0, n) 内均匀分布的随机数（强随机源）
// 开奖选人使用此函数，而不是 math/rand
func CryptoIntn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("CryptoIntn: non-positive n=%d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
