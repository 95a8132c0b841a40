package assistant

import (
	"testing"
	"time"
)

func TestHeuristicTokenCount(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"abcdefgh", 2},
		{"你好", 3},
		{"a", 1},
		{"Mixed 混合", 4},
	}
	for _, tt := range tests {
		if got := heuristicTokenCount(tt.input); got != tt.want {
			t.Errorf("heuristicTokenCount(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestCJKRanges(t *testing.T) {
	for _, r := range []rune{'中', '。', '한', 'Ａ'} {
		if !isCJK(r) {
			t.Errorf("isCJK(%q) = false", r)
		}
	}
	if isCJK('a') || isCJK('é') {
		t.Fatal("latin letters are not CJK")
	}
}

type fixedCounter int

func (c fixedCounter) CountText(string) int { return int(c) }

func TestBackgroundTokenizerNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	tok := NewBackgroundTokenizer(func() Counter {
		<-release
		return fixedCounter(42)
	})
	p := NewPanel(nil, WithTokenBudget(tok, 100))

	done := make(chan error, 1)
	go func() {
		_, err := p.Begin("hello")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Begin blocked while the encoding was still loading")
	}
	if got := tok.CountText("abcdefgh"); got != 2 {
		t.Fatalf("heuristic count=%d, want 2", got)
	}

	close(release)
	select {
	case <-tok.Ready():
	case <-time.After(time.Second):
		t.Fatal("load never finished")
	}
	if got := tok.CountText("abcdefgh"); got != 42 {
		t.Fatalf("count after load=%d, want 42", got)
	}
}

func TestBackgroundTokenizerKeepsHeuristicOnNil(t *testing.T) {
	tok := NewBackgroundTokenizer(func() Counter { return nil })
	<-tok.Ready()
	if got := tok.CountText("你好"); got != 3 {
		t.Fatalf("count=%d, want 3", got)
	}
}
