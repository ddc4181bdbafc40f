// Package timex provides a database and JSON friendly time type
// Package timex 提供适用于数据库与 JSON 的时间类型
package timex

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Layout default text layout // 默认文本格式
const Layout = "2006-01-02 15:04:05"

// StampLayout compact UTC timestamp layout used inside revision field blobs
// StampLayout 修订字段快照中使用的紧凑 UTC 时间戳格式
const StampLayout = "20060102150405"

// Time wraps time.Time for gorm columns and JSON output
// Time 封装 time.Time 用于 gorm 字段与 JSON 输出
type Time time.Time

// Now returns the current time
// Now 返回当前时间
func Now() Time {
	return Time(time.Now())
}

// Time converts back to time.Time
func (t Time) Time() time.Time {
	return time.Time(t)
}

func (t Time) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Time) Unix() int64 {
	return time.Time(t).Unix()
}

func (t Time) UnixMilli() int64 {
	return time.Time(t).UnixMilli()
}

func (t Time) UnixMicro() int64 {
	return time.Time(t).UnixMicro()
}

func (t Time) UnixNano() int64 {
	return time.Time(t).UnixNano()
}

func (t Time) String() string {
	return time.Time(t).Format(Layout)
}

// MarshalJSON 序列化为 "2006-01-02 15:04:05"
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

// UnmarshalJSON 反序列化
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = Time(time.Time{})
		return nil
	}
	parsed, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return err
	}
	*t = Time(parsed)
	return nil
}

// Value implements driver.Valuer
func (t Time) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return time.Time(t), nil
}

// Scan implements sql.Scanner
func (t *Time) Scan(v interface{}) error {
	switch value := v.(type) {
	case nil:
		*t = Time(time.Time{})
	case time.Time:
		*t = Time(value)
	case string:
		return t.scanString(value)
	case []byte:
		return t.scanString(string(value))
	default:
		return fmt.Errorf("timex: cannot scan %T into Time", v)
	}
	return nil
}

func (t *Time) scanString(s string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", Layout} {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Time(parsed)
			return nil
		}
	}
	return fmt.Errorf("timex: cannot parse %q", s)
}

// FormatStamp formats a time as a compact UTC stamp, zero time gives ""
// FormatStamp 将时间格式化为紧凑 UTC 时间戳，零值返回空字符串
func FormatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(StampLayout)
}

// ParseStamp parses a compact UTC stamp, "" gives the zero time
// ParseStamp 解析紧凑 UTC 时间戳，空字符串返回零值
func ParseStamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(StampLayout, s, time.UTC)
}
