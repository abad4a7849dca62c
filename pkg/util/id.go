package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewEventID 生成事件唯一标识，worker 侧据此去重
func NewEventID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
