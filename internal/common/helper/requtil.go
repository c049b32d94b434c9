package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// GetAuthUserID 提取用户认证中间件注入的用户ID（0 表示未认证）
func GetAuthUserID(ctx *beegocontext.Context) int64 {
	if v := ctx.Input.GetData("auth_user_id"); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// JoinParsed 为解析后的入局入参（与控制器/服务层解耦）
type JoinParsed struct {
	Tier           int64  `json:"tier"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ParseJoinFromJSON 解析 JSON 到 JoinParsed。失败返回 false 与错误消息。
func ParseJoinFromJSON(r io.Reader) (JoinParsed, bool, string) {
	var out JoinParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return JoinParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParseJoinFromForm 从表单读取字段并做强校验
func ParseJoinFromForm(ctx *beegocontext.Context) (JoinParsed, bool, string) {
	var out JoinParsed
	tierStr := strings.TrimSpace(ctx.Input.Query("tier"))
	if tierStr == "" {
		return JoinParsed{}, false, "tier required"
	}
	t, err := strconv.ParseInt(tierStr, 10, 64)
	if err != nil {
		return JoinParsed{}, false, "tier must be integer"
	}
	out.Tier = t
	out.IdempotencyKey = strings.TrimSpace(ctx.Input.Query("idempotency_key"))
	return out, true, ""
}

// ValidateJoin 对通用字段做二次校验（适用于 JSON 与 FORM）
func ValidateJoin(in *JoinParsed) (bool, string) {
	if in.Tier <= 0 {
		return false, "tier required"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.IdempotencyKey) > 64 {
		return false, "invalid request"
	}
	return true, ""
}

// ParseAndValidateJoin 按 Content-Type 自动解析并做统一校验
func ParseAndValidateJoin(ctx *beegocontext.Context) (JoinParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseJoinFromJSON, ParseJoinFromForm)
	if !ok {
		return JoinParsed{}, false, msg
	}
	if ok, msg := ValidateJoin(&out); !ok {
		return JoinParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Leave helpers --------

type LeaveParsed struct {
	RoomID string `json:"room_id"`
}

func ParseLeaveFromJSON(r io.Reader) (LeaveParsed, bool, string) {
	var out LeaveParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return LeaveParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseLeaveFromForm(ctx *beegocontext.Context) (LeaveParsed, bool, string) {
	var out LeaveParsed
	out.RoomID = strings.TrimSpace(ctx.Input.Query("room_id"))
	return out, true, ""
}

func ValidateLeave(in *LeaveParsed) (bool, string) {
	if strings.TrimSpace(in.RoomID) == "" {
		return false, "room_id required"
	}
	if len(in.RoomID) > 64 {
		return false, "invalid request"
	}
	return true, ""
}

func ParseAndValidateLeave(ctx *beegocontext.Context) (LeaveParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseLeaveFromJSON, ParseLeaveFromForm)
	if !ok {
		return LeaveParsed{}, false, msg
	}
	if ok, msg := ValidateLeave(&out); !ok {
		return LeaveParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Spin trigger helpers --------

type SpinParsed struct {
	RoomID string `json:"room_id"`
	Source string `json:"source"` // timer|sweeper|api，缺省 api
}

func ParseSpinFromJSON(r io.Reader) (SpinParsed, bool, string) {
	var out SpinParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return SpinParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseSpinFromForm(ctx *beegocontext.Context) (SpinParsed, bool, string) {
	var out SpinParsed
	out.RoomID = strings.TrimSpace(ctx.Input.Query("room_id"))
	out.Source = strings.TrimSpace(ctx.Input.Query("source"))
	return out, true, ""
}

func ValidateSpin(in *SpinParsed) (bool, string) {
	if strings.TrimSpace(in.RoomID) == "" {
		return false, "room_id required"
	}
	if len(in.RoomID) > 64 || len(in.Source) > 16 {
		return false, "invalid request"
	}
	if in.Source == "" {
		in.Source = "api"
	}
	return true, ""
}

func ParseAndValidateSpin(ctx *beegocontext.Context) (SpinParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseSpinFromJSON, ParseSpinFromForm)
	if !ok {
		return SpinParsed{}, false, msg
	}
	if ok, msg := ValidateSpin(&out); !ok {
		return SpinParsed{}, false, msg
	}
	return out, true, ""
}
