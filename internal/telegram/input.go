package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var ErrNoAnswer = errors.New("telegram: no answer configured")

// InputProvider supplies credentials when the engine asks for them. Calls
// block the dispatch loop until they return.
type InputProvider interface {
	PhoneNumber(ctx context.Context) (string, error)
	Code(ctx context.Context) (string, error)
	Password(ctx context.Context) (string, error)
	EmailAddress(ctx context.Context) (string, error)
	EmailCode(ctx context.Context) (string, error)
	FirstAndLastName(ctx context.Context) (first, last string, err error)
}

// ConsoleInput prompts on out and reads answers line by line from in.
// A read interrupted by ctx is not lost: the line typed afterwards answers
// the next prompt.
type ConsoleInput struct {
	in      io.Reader
	reader  *bufio.Reader
	out     io.Writer
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

func NewConsoleInput(in io.Reader, out io.Writer) *ConsoleInput {
	return &ConsoleInput{in: in, reader: bufio.NewReader(in), out: out}
}

// await runs read in the background and waits for it or for ctx.
func (c *ConsoleInput) await(ctx context.Context, read func() lineResult) (string, error) {
	if c.pending == nil {
		ch := make(chan lineResult, 1)
		go func() { ch <- read() }()
		c.pending = ch
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-c.pending:
		c.pending = nil
		return res.line, res.err
	}
}

func (c *ConsoleInput) readLine() lineResult {
	line, err := c.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return lineResult{err: err}
	}
	line = strings.TrimSpace(line)
	if line == "" && errors.Is(err, io.EOF) {
		return lineResult{err: io.ErrUnexpectedEOF}
	}
	return lineResult{line: line}
}

func (c *ConsoleInput) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, prompt)
	return c.await(ctx, c.readLine)
}

func (c *ConsoleInput) PhoneNumber(ctx context.Context) (string, error) {
	return c.ask(ctx, "Please enter your phone number: ")
}

func (c *ConsoleInput) Code(ctx context.Context) (string, error) {
	return c.ask(ctx, "Please enter the authentication code you received: ")
}

// Password does not echo when reading from a terminal.
func (c *ConsoleInput) Password(ctx context.Context) (string, error) {
	f, ok := c.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return c.ask(ctx, "Please enter your password: ")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, "Please enter your password: ")
	pass, err := c.await(ctx, func() lineResult {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return lineResult{err: err}
		}
		return lineResult{line: strings.TrimSpace(string(b))}
	})
	return pass, err
}

func (c *ConsoleInput) EmailAddress(ctx context.Context) (string, error) {
	return c.ask(ctx, "Please enter your email address: ")
}

func (c *ConsoleInput) EmailCode(ctx context.Context) (string, error) {
	return c.ask(ctx, "Please enter the code sent to your email: ")
}

func (c *ConsoleInput) FirstAndLastName(ctx context.Context) (string, string, error) {
	first, err := c.ask(ctx, "Please enter your first name: ")
	if err != nil {
		return "", "", err
	}
	last, err := c.ask(ctx, "Please enter your last name: ")
	if err != nil {
		return "", "", err
	}
	return first, last, nil
}

// ScriptedInput answers from fixed values, for tests and unattended logins.
type ScriptedInput struct {
	Phone     string
	LoginCode string
	Pass      string
	Email     string
	MailCode  string
	FirstName string
	LastName  string

	mu    sync.Mutex
	calls map[string]int
}

// Calls reports how often a prompt ("phone", "code", "password", "email",
// "email_code", "name") was asked.
func (s *ScriptedInput) Calls(prompt string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[prompt]
}

func (s *ScriptedInput) answer(prompt, value string) (string, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[prompt]++
	s.mu.Unlock()
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNoAnswer, prompt)
	}
	return value, nil
}

func (s *ScriptedInput) PhoneNumber(context.Context) (string, error) {
	return s.answer("phone", s.Phone)
}

func (s *ScriptedInput) Code(context.Context) (string, error) {
	return s.answer("code", s.LoginCode)
}

func (s *ScriptedInput) Password(context.Context) (string, error) {
	return s.answer("password", s.Pass)
}

func (s *ScriptedInput) EmailAddress(context.Context) (string, error) {
	return s.answer("email", s.Email)
}

func (s *ScriptedInput) EmailCode(context.Context) (string, error) {
	return s.answer("email_code", s.MailCode)
}

func (s *ScriptedInput) FirstAndLastName(context.Context) (string, string, error) {
	first, err := s.answer("name", s.FirstName)
	if err != nil {
		return "", "", err
	}
	return first, s.LastName, nil
}
