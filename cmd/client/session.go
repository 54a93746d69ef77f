package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/script"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/client"
)

// syncWriter serializes the output of the command loop and the notification printer
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, format, args...)
}

// parsedCommand is a command read from the input, or the error of an invalid line
type parsedCommand struct {
	cmd script.Command
	err error
}

// RunSession executes the client commands read from in on the connected client c
// and prints responses and notifications to out. The client is disconnected when the
// input ends, ctx is done or a DISCONNECT command was read. RunSession returns when
// the notification stream has ended.
func RunSession(ctx context.Context, c client.IClient, in io.Reader, out io.Writer) error {
	w := &syncWriter{w: out}

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for change := range c.Notifications() {
			w.Printf("%s\n", formatChange(change))
		}
	}()

	// Reading the input may block indefinitely, the parser gets its own goroutine
	commands := make(chan parsedCommand)
	stopParser := make(chan struct{})
	defer close(stopParser)
	go func() {
		defer close(commands)
		p := script.NewParser(in, script.LangClient, 0)
		for {
			cmd, err := p.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case commands <- parsedCommand{cmd, err}:
			case <-stopParser:
				return
			}
		}
	}()

	err := commandLoop(ctx, c, commands, w)
	<-printed
	return err
}

// commandLoop executes commands until the input ends, ctx is done or the session ended
func commandLoop(ctx context.Context, c client.IClient, commands <-chan parsedCommand, w *syncWriter) error {
	for {
		var next parsedCommand
		select {
		case <-ctx.Done():
			return disconnect(c, w)
		case p, ok := <-commands:
			if !ok {
				return disconnect(c, w)
			}
			next = p
		}

		if next.err != nil {
			w.Printf("line %d: %v\n", next.cmd.Line, next.err)
			continue
		}

		cmd := next.cmd
		switch cmd.Type {
		case script.CmdSubscribe:
			status, err := c.Subscribe(cmd.Keys[0])
			if err != nil && !errors.Is(err, store.ErrCapacityExceeded) {
				return sessionError(c, cmd, err)
			}
			w.Printf("Server returned %d for operation: %s\n", status, cmd.Type)

		case script.CmdUnsubscribe:
			status, err := c.Unsubscribe(cmd.Keys[0])
			if err != nil {
				return sessionError(c, cmd, err)
			}
			w.Printf("Server returned %d for operation: %s\n", status, cmd.Type)

		case script.CmdDelay:
			select {
			case <-ctx.Done():
			case <-time.After(cmd.Delay):
			}

		case script.CmdHelp:
			w.Printf("%s", script.ClientHelp)

		case script.CmdDisconnect:
			return disconnect(c, w)
		}
	}
}

func disconnect(c client.IClient, w *syncWriter) error {
	if err := c.Disconnect(); err != nil {
		_ = c.Close()
		if errors.Is(err, store.ErrNotInitialized) {
			return nil
		}
		return err
	}
	w.Printf("Server returned 0 for operation: %s\n", script.CmdDisconnect)
	return nil
}

// sessionError closes the client after a failed request
func sessionError(c client.IClient, cmd script.Command, err error) error {
	_ = c.Close()
	return fmt.Errorf("%s failed: %w", cmd.Type, err)
}

func formatChange(change db.Change) string {
	if change.Deleted {
		return fmt.Sprintf("(%s,DELETED)", change.Key)
	}
	return fmt.Sprintf("(%s,%s)", change.Key, change.Value)
}
