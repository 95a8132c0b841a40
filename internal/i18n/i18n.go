package i18n

import (
	"fmt"
	"maps"
	"os"
	"strings"
)

// catalogs 支持的语言；缺失的 key 回退到英文
// catalogs are the supported locales; missing keys fall back to English
var catalogs = map[string]map[string]string{
	"en":    EnMessages,
	"zh-CN": ZhCNMessages,
}

// I18n 单一语言的只读消息表，可并发使用
// I18n is a read-only message table for one locale, safe for concurrent use.
// Front ends receive it through their Deps; there is no process-wide instance.
type I18n struct {
	locale   string
	messages map[string]string
}

// New 按 locale 构建消息表；空值时从环境检测，不支持的语言使用英文
// New builds the table for locale. An empty locale is detected from the
// environment and an unsupported one resolves to English.
func New(locale string) *I18n {
	if strings.TrimSpace(locale) == "" {
		locale = DetectLocale()
	}
	locale = normalizeLocale(locale)

	messages := make(map[string]string, len(EnMessages))
	maps.Copy(messages, EnMessages)
	if locale != "en" {
		maps.Copy(messages, catalogs[locale])
	}
	return &I18n{locale: locale, messages: messages}
}

// T 翻译 key；未知 key 原样返回，便于发现遗漏
// T formats the message for key. Unknown keys come back verbatim so a
// missing entry shows up on screen instead of a blank.
func (i *I18n) T(key string, args ...any) string {
	tmpl, ok := i.messages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

func (i *I18n) Locale() string {
	return i.locale
}

// DetectLocale 依次读取 TODO_LANG 与 POSIX 的 LC_ALL、LC_MESSAGES、LANG
// DetectLocale reads TODO_LANG, then the POSIX variables in precedence order
func DetectLocale() string {
	for _, env := range []string{"TODO_LANG", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return normalizeLocale(v)
		}
	}
	return "en"
}

// normalizeLocale 将 zh_CN.UTF-8、zh-TW 等映射到已支持的 locale
// normalizeLocale maps values such as zh_CN.UTF-8 onto a supported locale
func normalizeLocale(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, ".@"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.ToLower(strings.ReplaceAll(s, "_", "-"))
	if strings.HasPrefix(s, "zh") {
		return "zh-CN"
	}
	return "en"
}
