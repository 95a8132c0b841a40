package assistant

import (
	"sync"
	"sync/atomic"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in a chat message.
type Counter interface {
	CountText(text string) int
}

// Tokenizer 精确 token 计数器，支持 tiktoken 和启发式回退
// Tokenizer provides precise token counting with tiktoken and heuristic fallback
type Tokenizer struct {
	encoder      *tiktoken.Tiktoken
	encodingName string
	fallback     bool // 是否使用启发式回退 / Whether using heuristic fallback
	mu           sync.RWMutex
}

var (
	defaultTokenizer     *Tokenizer
	defaultTokenizerOnce sync.Once
)

// DefaultTokenizer 返回全局默认的 tokenizer 实例（首次调用时加载）
// DefaultTokenizer returns the shared cl100k_base tokenizer, loaded on first use
func DefaultTokenizer() *Tokenizer {
	defaultTokenizerOnce.Do(func() {
		defaultTokenizer = NewTokenizer("cl100k_base")
	})
	return defaultTokenizer
}

// NewTokenizer 创建 tokenizer，如果 tiktoken 初始化失败则回退到启发式
// NewTokenizer creates a tokenizer, falls back to heuristic if tiktoken init fails
func NewTokenizer(encodingName string) *Tokenizer {
	t := &Tokenizer{encodingName: encodingName}

	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		// 离线环境可能没有 BPE 缓存，回退到启发式
		// Offline environments may lack BPE cache, fallback to heuristic
		t.fallback = true
		return t
	}
	t.encoder = enc
	return t
}

// HeuristicTokenizer never touches the BPE ranks.
func HeuristicTokenizer() *Tokenizer {
	return &Tokenizer{encodingName: "heuristic", fallback: true}
}

// CountText 计算单个文本的 token 数
// CountText counts tokens for a single text string
func (t *Tokenizer) CountText(text string) int {
	if text == "" {
		return 0
	}
	if t.fallback {
		return heuristicTokenCount(text)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.encoder.Encode(text, nil, nil))
}

func (t *Tokenizer) IsPrecise() bool {
	return !t.fallback
}

func (t *Tokenizer) EncodingName() string {
	return t.encodingName
}

// BackgroundTokenizer 在后台加载精确计数器，加载完成前使用启发式计数，CountText 从不阻塞
// BackgroundTokenizer loads a precise counter in the background and counts
// with the heuristic until it is ready. CountText never blocks on the load.
type BackgroundTokenizer struct {
	precise  atomic.Pointer[Counter]
	fallback *Tokenizer
	ready    chan struct{}
}

// NewBackgroundTokenizer starts load in its own goroutine.
func NewBackgroundTokenizer(load func() Counter) *BackgroundTokenizer {
	b := &BackgroundTokenizer{
		fallback: HeuristicTokenizer(),
		ready:    make(chan struct{}),
	}
	go func() {
		defer close(b.ready)
		if c := load(); c != nil {
			b.precise.Store(&c)
		}
	}()
	return b
}

func (b *BackgroundTokenizer) CountText(text string) int {
	if c := b.precise.Load(); c != nil {
		return (*c).CountText(text)
	}
	return b.fallback.CountText(text)
}

// Ready is closed once the load has returned, successfully or not.
func (b *BackgroundTokenizer) Ready() <-chan struct{} { return b.ready }

// heuristicTokenCount: CJK ~1.5 tokens per character, other text ~4 chars per token
func heuristicTokenCount(text string) int {
	cjkCount := 0
	otherCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		} else {
			otherCount++
		}
	}
	estimate := int(float64(cjkCount)*1.5 + float64(otherCount)*0.25)
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x3000 && r <= 0x303F) || // CJK Symbols
		(r >= 0xFF00 && r <= 0xFFEF) || // Fullwidth Forms
		(r >= 0xAC00 && r <= 0xD7AF) // Korean Hangul
}
