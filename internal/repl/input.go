package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// ErrInterrupt is returned by a LineInput when the user pressed Ctrl+C.
var ErrInterrupt = readline.ErrInterrupt

// LineInput 读取一行输入；密码不回显
// LineInput reads one line at a time; passwords are read without echo
type LineInput interface {
	ReadLine(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Close() error
}

type basicLineInput struct {
	reader *bufio.Reader
	in     *os.File
	out    io.Writer
}

// NewBasicLineInput reads from in without line editing. When in is a
// terminal, passwords are read with echo disabled.
func NewBasicLineInput(in io.Reader, out io.Writer) LineInput {
	b := &basicLineInput{
		reader: bufio.NewReader(in),
		out:    out,
	}
	if f, ok := in.(*os.File); ok {
		b.in = f
	}
	return b
}

func (b *basicLineInput) ReadLine(prompt string) (string, error) {
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (b *basicLineInput) ReadPassword(prompt string) (string, error) {
	if b.in == nil || !term.IsTerminal(int(b.in.Fd())) {
		return b.ReadLine(prompt)
	}
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	pw, err := term.ReadPassword(int(b.in.Fd()))
	if b.out != nil {
		fmt.Fprintln(b.out)
	}
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (b *basicLineInput) Close() error { return nil }

type readlineInput struct {
	instance *readline.Instance
}

func newReadlineInput(historyPath string) (*readlineInput, error) {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	instance, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyPath,
		HistorySearchFold: true,
		AutoComplete:      completer(),
	})
	if err != nil {
		return nil, err
	}
	return &readlineInput{instance: instance}, nil
}

func (r *readlineInput) ReadLine(prompt string) (string, error) {
	r.instance.SetPrompt(prompt)
	return r.instance.Readline()
}

func (r *readlineInput) ReadPassword(prompt string) (string, error) {
	pw, err := r.instance.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (r *readlineInput) Close() error {
	if r == nil || r.instance == nil {
		return nil
	}
	return r.instance.Close()
}

// NewLineInput 优先使用 readline；失败时退回基础输入并返回错误供提示
// NewLineInput prefers readline and falls back to basic input, returning the
// readline error so the caller can mention it.
func NewLineInput(historyPath string) (LineInput, error) {
	readlineReader, err := newReadlineInput(historyPath)
	if err == nil {
		return readlineReader, nil
	}
	return NewBasicLineInput(os.Stdin, os.Stdout), err
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commandNames))
	for _, name := range commandNames {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
