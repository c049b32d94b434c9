package helper

import (
	"github.com/shopspring/decimal"
)

// RoundCents 将金额四舍五入到整数分
// 奖池派彩 = 奖池 * 派彩比例，结果必须落在整数分上
func RoundCents(val decimal.Decimal) int64 {
	return val.Round(0).IntPart()
}

// ShareOf 计算金额的比例份额（整数分，四舍五入）
func ShareOf(amountCents int64, share decimal.Decimal) int64 {
	return RoundCents(decimal.NewFromInt(amountCents).Mul(share))
}
