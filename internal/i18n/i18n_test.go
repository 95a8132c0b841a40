package i18n

import "testing"

func TestNew_English(t *testing.T) {
	i := New("en")
	if i.Locale() != "en" {
		t.Fatalf("Locale()=%q, want en", i.Locale())
	}
	got := i.T("panel.todos")
	if got != "Todos" {
		t.Fatalf("T(panel.todos)=%q, want Todos", got)
	}
}

func TestNew_Chinese(t *testing.T) {
	i := New("zh-CN")
	if i.Locale() != "zh-CN" {
		t.Fatalf("Locale()=%q, want zh-CN", i.Locale())
	}
	got := i.T("panel.assistant")
	if got != "助手" {
		t.Fatalf("T(panel.assistant)=%q, want 助手", got)
	}
	// 未翻译的 key 回退到英文 / Untranslated keys fall back to English
	if got := i.T("todo.done_mark"); got != "[x]" {
		t.Fatalf("fallback=%q", got)
	}
}

func TestNew_ChineseFromLang(t *testing.T) {
	i := New("zh_CN.UTF-8")
	if i.Locale() != "zh-CN" {
		t.Fatalf("Locale()=%q, want zh-CN", i.Locale())
	}
	got := i.T("panel.logs")
	if got != "日志" {
		t.Fatalf("T(panel.logs)=%q, want 日志", got)
	}
}

func TestT_WithArgs(t *testing.T) {
	i := New("en")
	got := i.T("status.signed_in", "ada@example.com")
	if got != "Signed in as ada@example.com" {
		t.Fatalf("T with args=%q", got)
	}
}

func TestT_MissingKey(t *testing.T) {
	i := New("en")
	got := i.T("nonexistent.key")
	if got != "nonexistent.key" {
		t.Fatalf("T missing key=%q, want key itself", got)
	}
}

func TestChineseCatalogHasEnglishKeys(t *testing.T) {
	for key := range ZhCNMessages {
		if _, ok := EnMessages[key]; !ok {
			t.Errorf("zh-CN key %q has no English entry", key)
		}
	}
}

func TestDetectLocalePrefersTodoLang(t *testing.T) {
	t.Setenv("TODO_LANG", "zh_CN")
	t.Setenv("LANG", "en_US.UTF-8")
	if got := DetectLocale(); got != "zh-CN" {
		t.Fatalf("DetectLocale()=%q", got)
	}
}

func TestNormalizeLocale(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en_US.UTF-8", "en"},
		{"zh_CN.UTF-8", "zh-CN"},
		{"zh_TW", "zh-CN"},
		{"en", "en"},
		{"", "en"},
		{"fr_FR", "en"},
		{"C.UTF-8", "en"},
		{"zh_CN@pinyin", "zh-CN"},
	}
	for _, tt := range tests {
		got := normalizeLocale(tt.input)
		if got != tt.expected {
			t.Errorf("normalizeLocale(%q)=%q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDetectLocaleFollowsPOSIXOrder(t *testing.T) {
	t.Setenv("TODO_LANG", "")
	t.Setenv("LC_ALL", "zh_CN.UTF-8")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "en_US.UTF-8")
	if got := DetectLocale(); got != "zh-CN" {
		t.Fatalf("DetectLocale()=%q, want LC_ALL to win over LANG", got)
	}
}

func TestUnsupportedLocaleUsesEnglish(t *testing.T) {
	i := New("fr_FR.UTF-8")
	if i.Locale() != "en" || i.T("panel.todos") != "Todos" {
		t.Fatalf("locale=%q panel=%q", i.Locale(), i.T("panel.todos"))
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	en, zh := New("en"), New("zh-CN")
	if en.T("panel.logs") == zh.T("panel.logs") {
		t.Fatal("each instance keeps its own catalog")
	}
	if EnMessages["panel.logs"] != "Logs" {
		t.Fatal("building a catalog must not modify the English source")
	}
}
