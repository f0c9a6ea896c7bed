package errors

import (
	"errors"
	"fmt"
)

// Supported locales for user-facing messages.
const (
	LocaleJA = "ja"
	LocaleEN = "en"
)

var messages = map[string]map[Code]string{
	LocaleJA: {
		CodeUserNotFound:        "ユーザーが見つかりません",
		CodeWrongPassword:       "パスワードが間違っています",
		CodeEmailInUse:          "このメールアドレスは既に使用されています",
		CodeWeakPassword:        "パスワードが弱すぎます（6文字以上必要）",
		CodeInvalidEmail:        "メールアドレスが無効です",
		CodeTooManyRequests:     "リクエストが多すぎます。しばらく時間をおいてください",
		CodeNetworkFailed:       "ネットワークエラーが発生しました",
		CodePermissionDenied:    "アクセス権限がありません",
		CodeUnavailable:         "サービスが一時的に利用できません",
		CodeDeadlineExceeded:    "リクエストがタイムアウトしました",
		CodeUnauthenticated:     "ユーザー認証が必要です",
		CodeOperationNotAllowed: "この認証方法は有効になっていません",
	},
	LocaleEN: {
		CodeUserNotFound:        "User not found",
		CodeWrongPassword:       "Wrong password",
		CodeEmailInUse:          "This email address is already in use",
		CodeWeakPassword:        "Password is too weak (at least 6 characters)",
		CodeInvalidEmail:        "Invalid email address",
		CodeTooManyRequests:     "Too many requests, please wait a moment",
		CodeNetworkFailed:       "A network error occurred",
		CodePermissionDenied:    "Permission denied",
		CodeUnavailable:         "The service is temporarily unavailable",
		CodeDeadlineExceeded:    "The request timed out",
		CodeUnauthenticated:     "Sign-in required",
		CodeOperationNotAllowed: "This sign-in method is not enabled",
	},
}

var fallback = map[string]string{
	LocaleJA: "エラーが発生しました: %s",
	LocaleEN: "An error occurred: %s",
}

// Message maps err to a user-facing message through the fixed lookup table.
// Unknown locales use Japanese; unmapped codes use the generic fallback.
func Message(locale string, err error) string {
	if err == nil {
		return ""
	}
	table, ok := messages[locale]
	if !ok {
		locale = LocaleJA
		table = messages[LocaleJA]
	}
	var e *Error
	if errors.As(err, &e) {
		if msg, ok := table[e.Code]; ok {
			return msg
		}
		return fmt.Sprintf(fallback[locale], e.Message)
	}
	return fmt.Sprintf(fallback[locale], err.Error())
}
