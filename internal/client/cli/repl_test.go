package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }

func (f *fakeExec) Register(context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}

func (f *fakeExec) Login(context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}

func (f *fakeExec) Logout(context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}

func (f *fakeExec) WhoAmI(context.Context) error {
	f.calls = append(f.calls, "whoami")
	return nil
}

func run(t *testing.T, exec *fakeExec, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	runREPL(context.Background(), exec, func() string { return "status" }, reader, &out)
	return out.String()
}

func TestRunREPL_LoginFlow(t *testing.T) {
	exec := &fakeExec{}
	out := run(t, exec, "help", "whoami", "register", "login", "help", "whoami", "logout", "logout", "foobar", "", "exit", "login")

	assert.Equal(t, []string{"register", "login", "whoami", "logout"}, exec.calls)
	assert.Contains(t, out, "Available commands: register, login, exit")
	assert.Contains(t, out, "Available commands: whoami, logout, exit")
	assert.Contains(t, out, "Not logged in")
	assert.Contains(t, out, "Unknown command: foobar")
	assert.Contains(t, out, "Bye!")
	assert.Contains(t, out, "vhub status> ")
}

func TestRunREPL_EOFWithoutNewline(t *testing.T) {
	exec := &fakeExec{}
	run(t, exec, "register")

	assert.Equal(t, []string{"register"}, exec.calls)
}

func TestRunREPL_QuitAlias(t *testing.T) {
	exec := &fakeExec{}
	out := run(t, exec, "quit", "login")

	assert.Empty(t, exec.calls)
	assert.Contains(t, out, "Bye!")
}
