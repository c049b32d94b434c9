package constant

// 账变类型（追加式账本 wallet_ledger.biz_type）
// 1=entry 入局扣费 2=refund 退局退款 3=payout 中奖派彩 4=adjust 后台调整
const (
	LedgerTypeEntry  = 1
	LedgerTypeRefund = 2
	LedgerTypePayout = 3
	LedgerTypeAdjust = 4
)

// 账变类型描述映射（冗余字符串，便于查询与审计）
var LedgerTypeDesc = map[int]string{
	LedgerTypeEntry:  "entry",
	LedgerTypeRefund: "refund",
	LedgerTypePayout: "payout",
	LedgerTypeAdjust: "adjust",
}

// GetLedgerTypeDesc 获取账变类型描述
func GetLedgerTypeDesc(t int) string {
	if desc, ok := LedgerTypeDesc[t]; ok {
		return desc
	}
	return "unknown"
}

// IsValidLedgerType 验证账变类型是否有效
func IsValidLedgerType(t int) bool {
	_, ok := LedgerTypeDesc[t]
	return ok
}

// 支出/收入分组：entry 为支出，refund/payout/adjust 为收入方向
var (
	DebitTypes  = []int{LedgerTypeEntry}
	CreditTypes = []int{LedgerTypeRefund, LedgerTypePayout, LedgerTypeAdjust}
)

// IsDebitType 账变类型是否为支出方向
func IsDebitType(t int) bool {
	for _, v := range DebitTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsCreditType 账变类型是否为收入方向
func IsCreditType(t int) bool {
	for _, v := range CreditTypes {
		if v == t {
			return true
		}
	}
	return false
}

// GetLedgerDirection 获取账变方向描述（debit=支出 credit=收入）
func GetLedgerDirection(t int) string {
	switch {
	case IsDebitType(t):
		return "debit"
	case IsCreditType(t):
		return "credit"
	}
	return "unknown"
}
