package model

import (
	"database/sql/driver"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
)

// IDList stores a sorted id set as a JSON array column
// IDList 以 JSON 数组列存储有序 ID 集合
type IDList []int64

// Value implements driver.Valuer
func (l IDList) Value() (driver.Value, error) {
	ids := append([]int64{}, l...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return sonic.ConfigStd.MarshalToString(ids)
}

// Scan implements sql.Scanner
func (l *IDList) Scan(v interface{}) error {
	var raw []byte
	switch value := v.(type) {
	case nil:
		*l = IDList{}
		return nil
	case string:
		raw = []byte(value)
	case []byte:
		raw = value
	default:
		return fmt.Errorf("model: cannot scan %T into IDList", v)
	}
	if len(raw) == 0 {
		*l = IDList{}
		return nil
	}
	var ids []int64
	if err := sonic.Unmarshal(raw, &ids); err != nil {
		return err
	}
	*l = ids
	return nil
}
