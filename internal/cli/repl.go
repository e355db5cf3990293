package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/dsjlzh/fridabind"
)

const historyFile = ".fridabind_history"

// prompter reads one line of input. *liner.State implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
}

type scanPrompter struct {
	scanner *bufio.Scanner
}

func (p *scanPrompter) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

func (a *app) attachCommand() *cobra.Command {
	var scriptPath, eval string
	cmd := &cobra.Command{
		Use:   "attach <pid|name>",
		Short: "Attach to a process and open a script console",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.device()
			if err != nil {
				return err
			}
			defer d.Close()

			var sess *fridabind.Session
			if pid, perr := parsePID(args[0]); perr == nil {
				sess, err = d.Attach(pid, nil)
			} else {
				sess, err = d.AttachByName(args[0], nil)
			}
			if err != nil {
				return err
			}
			defer sess.Close()

			c := &console{app: a, sess: sess}
			defer c.close()
			err = sess.OnDetached(func(reason fridabind.DetachReason, crash *fridabind.Crash) {
				c.printf("detached: %s\n", reason)
				if crash != nil {
					c.printf("%s\n", crash.Summary)
				}
			})
			if err != nil {
				return err
			}

			if scriptPath != "" {
				if err := c.load(scriptPath); err != nil {
					return err
				}
			}
			if eval != "" {
				return c.eval(eval)
			}
			return c.run()
		},
	}
	cmd.Flags().StringVarP(&scriptPath, "load", "l", "", "load a script file before the console starts")
	cmd.Flags().StringVarP(&eval, "eval", "e", "", "evaluate source and exit")
	return cmd
}

// console is an interactive session on one attached process. Lines are
// either commands starting with ':' or script source to evaluate.
type console struct {
	app  *app
	sess *fridabind.Session

	mu      sync.Mutex
	script  *fridabind.Script
	scratch []*fridabind.Script
}

func (c *console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.app.out, format, args...)
}

func (c *console) handler(name string) fridabind.MessageHandlerFunc {
	return func(message string, data []byte) {
		m, err := fridabind.ParseMessage(message)
		if err != nil {
			c.printf("[%s] %s\n", name, message)
			return
		}
		switch m.Type {
		case fridabind.MessageTypeSend:
			c.printf("[%s] %s\n", name, m.Payload)
		case fridabind.MessageTypeLog:
			c.printf("[%s] %s: %s\n", name, m.Level, m.Text)
		case fridabind.MessageTypeError:
			c.printf("[%s] error: %s\n", name, m.Description)
			if m.Stack != "" {
				c.printf("%s\n", m.Stack)
			}
		}
		if data != nil {
			c.printf("[%s] (%d bytes of data)\n", name, len(data))
		}
	}
}

func (c *console) create(source, name string) (*fridabind.Script, error) {
	s, err := c.sess.CreateScriptNamed(source, name)
	if err != nil {
		return nil, err
	}
	if err := s.OnMessage(c.handler(name)); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Load(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// load replaces the current script with the contents of path.
func (c *console) load(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Errorf("load %s: %w", path, err)
	}
	s, err := c.create(string(source), filepath.Base(path))
	if err != nil {
		return err
	}
	c.unload()
	c.script = s
	return nil
}

func (c *console) unload() {
	if c.script != nil {
		c.script.Close()
		c.script = nil
	}
}

func (c *console) eval(source string) error {
	s, err := c.create(source, "repl")
	if err != nil {
		return err
	}
	c.scratch = append(c.scratch, s)
	return nil
}

func (c *console) close() {
	c.unload()
	for _, s := range c.scratch {
		s.Close()
	}
	c.scratch = nil
}

func (c *console) run() error {
	if !c.app.interactive() {
		return c.loop(&scanPrompter{scanner: bufio.NewScanner(c.app.in)})
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	return c.loop(&history{State: ln})
}

// history records every accepted line.
type history struct {
	*liner.State
}

func (h *history) Prompt(prompt string) (string, error) {
	line, err := h.State.Prompt(prompt)
	if err == nil && strings.TrimSpace(line) != "" {
		h.AppendHistory(line)
	}
	return line, err
}

func (c *console) loop(p prompter) error {
	for {
		line, err := p.Prompt(fmt.Sprintf("[pid %d]-> ", c.sess.PID()))
		if err == io.EOF || err == liner.ErrPromptAborted {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if c.sess.IsDetached() {
			return nil
		}
		if strings.HasPrefix(line, ":") {
			quit, err := c.command(line)
			if err != nil {
				c.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}
		if err := c.eval(line); err != nil {
			c.printf("error: %v\n", err)
		}
	}
}

func (c *console) command(line string) (quit bool, err error) {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case ":quit", ":q":
		return true, nil
	case ":help":
		c.printf(":load <file>               replace the loaded script\n" +
			":unload                    unload the loaded script\n" +
			":post <json>               post a message to the loaded script\n" +
			":call <method> [json-args] call an exported rpc method\n" +
			":quit                      detach and exit\n")
	case ":load":
		err = c.load(rest)
	case ":unload":
		c.unload()
	case ":post":
		if c.script == nil {
			return false, xerrors.New("no script loaded")
		}
		err = c.script.Post(rest)
	case ":call":
		err = c.call(rest)
	default:
		err = xerrors.Errorf("unknown command %s, try :help", name)
	}
	return
}

func (c *console) call(rest string) error {
	if c.script == nil {
		return xerrors.New("no script loaded")
	}
	method, argText, _ := strings.Cut(rest, " ")
	if method == "" {
		return xerrors.New("usage: :call <method> [json-args]")
	}
	var args []interface{}
	if argText = strings.TrimSpace(argText); argText != "" {
		if err := json.Unmarshal([]byte(argText), &args); err != nil {
			return xerrors.Errorf("arguments must be a JSON array: %w", err)
		}
	}
	result, err := c.script.Call(context.Background(), method, args...)
	if err != nil {
		return err
	}
	if data, ok := result.([]byte); ok {
		c.printf("(%d bytes of data)\n", len(data))
		return nil
	}
	text, err := json.Marshal(result)
	if err != nil {
		return err
	}
	c.printf("%s\n", text)
	return nil
}
