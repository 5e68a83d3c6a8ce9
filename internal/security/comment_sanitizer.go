// Package security はアプリケーションのセキュリティ機能を提供する。
//
// CommentSanitizerService は専門家コメントの保存前サニタイズを行い、
// XSSなどの注入リスクからダッシュボード閲覧者を保護する。
// コメントはプレーンテキストとして扱うため、bluemondayの
// StrictPolicy（全タグ除去）を使用する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// CommentSanitizerService は専門家コメントのサニタイズ機能のインターフェースを定義する。
// コメント保存前およびWebhook送信前に使用される。
type CommentSanitizerService interface {
	// Sanitize はコメント文字列からすべてのHTMLタグを除去し、
	// 前後の空白をトリムして返す。
	// コメントはプレーンテキストのみを想定しており、許可タグは存在しない。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// commentSanitizer はCommentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type commentSanitizer struct {
	policy *bluemonday.Policy
}

// NewCommentSanitizer はCommentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのHTML要素と属性を除去する。
// scriptタグやon*イベント属性を含むペイロードは本文ごと取り除かれる。
func NewCommentSanitizer() *commentSanitizer {
	return &commentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はコメントからHTMLを除去し前後の空白をトリムして返す。
func (s *commentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
