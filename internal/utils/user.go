package utils

import (
	"math/rand/v2"
	"strings"
)

var avatars = []string{"📄", "📚", "📘", "📗", "📙", "📝", "🎓", "🔬", "🧪", "🧮", "🦉", "💡"}

// GetRandomEmoji 返回一个随机 emoji 用于默认头像
func GetRandomEmoji() string {
	return avatars[rand.IntN(len(avatars))]
}

// UsernameFromEmail 取邮箱 @ 之前的部分作为默认用户名
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.TrimSpace(local)
}
