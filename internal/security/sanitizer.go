package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は外部サービスから受け取った表示用テキストを無害化する。
// カタログのアイテム名など、HTMLとして解釈されるべきでない値に使用する。
type TextSanitizer interface {
	// Sanitize はすべてのタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	Sanitize(raw string) string
}

type strictSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを一切許可しないTextSanitizerを生成する。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
func NewTextSanitizer() TextSanitizer {
	return &strictSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去したプレーンテキストを返す。
// StrictPolicyはエスケープ済みの文字列を返すため、テンプレート側での二重エスケープを避けて一度デコードする。
func (s *strictSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
