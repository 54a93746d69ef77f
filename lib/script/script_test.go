package script

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
)

func TestParseWrite(t *testing.T) {
	tests := []struct {
		line  string
		pairs []db.Pair
	}{
		{"WRITE [(a,1)(b,2)]", []db.Pair{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}},
		{"WRITE [(a,1),(b,2)]", []db.Pair{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}},
		{"  WRITE [( a , 1 ) (b,)]  ", []db.Pair{{Key: "a", Value: "1"}, {Key: "b", Value: ""}}},
		{"WRITE [(k,v)(k,w)]", []db.Pair{{Key: "k", Value: "v"}, {Key: "k", Value: "w"}}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.line, func(t *testing.T) {
			cmd, err := ParseLine(tc.line, LangBatch, 0)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cmd.Type != CmdWrite {
				t.Fatalf("Expected WRITE, got %s", cmd.Type)
			}
			if len(cmd.Pairs) != len(tc.pairs) {
				t.Fatalf("Expected %v, got %v", tc.pairs, cmd.Pairs)
			}
			for i := range tc.pairs {
				if cmd.Pairs[i] != tc.pairs[i] {
					t.Errorf("Pair %d: expected %v, got %v", i, tc.pairs[i], cmd.Pairs[i])
				}
			}
		})
	}
}

func TestParseKeysAndArgs(t *testing.T) {
	cmd, err := ParseLine("READ [a, b,c]", LangBatch, 0)
	if err != nil || cmd.Type != CmdRead || strings.Join(cmd.Keys, "|") != "a|b|c" {
		t.Errorf("Unexpected READ result %+v, %v", cmd, err)
	}

	cmd, err = ParseLine("DELETE [z]", LangBatch, 0)
	if err != nil || cmd.Type != CmdDelete || len(cmd.Keys) != 1 {
		t.Errorf("Unexpected DELETE result %+v, %v", cmd, err)
	}

	cmd, err = ParseLine("WAIT 250", LangBatch, 0)
	if err != nil || cmd.Type != CmdWait || cmd.Delay != 250*time.Millisecond {
		t.Errorf("Unexpected WAIT result %+v, %v", cmd, err)
	}

	cmd, err = ParseLine("SUBSCRIBE [a]", LangClient, 0)
	if err != nil || cmd.Type != CmdSubscribe || cmd.Keys[0] != "a" {
		t.Errorf("Unexpected SUBSCRIBE result %+v, %v", cmd, err)
	}

	cmd, err = ParseLine("DELAY 10", LangClient, 0)
	if err != nil || cmd.Type != CmdDelay || cmd.Delay != 10*time.Millisecond {
		t.Errorf("Unexpected DELAY result %+v, %v", cmd, err)
	}

	for _, line := range []string{"SHOW", "BACKUP", "HELP"} {
		if _, err := ParseLine(line, LangBatch, 0); err != nil {
			t.Errorf("Expected %s to parse, got %v", line, err)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	batch := []string{
		"WRITE", "WRITE []", "WRITE [(a)]", "WRITE [(,1)]", "WRITE [(a,1]", "WRITE (a,1)",
		"READ", "READ []", "READ [a,,b]", "READ a,b",
		"WAIT", "WAIT -1", "WAIT soon",
		"SHOW now", "write [(a,1)]", "FOO",
		"SUBSCRIBE [a]",
	}
	for _, line := range batch {
		if _, err := ParseLine(line, LangBatch, 0); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("Expected %q to be invalid, got %v", line, err)
		}
	}

	client := []string{"SUBSCRIBE [a,b]", "UNSUBSCRIBE", "DELAY x", "WRITE [(a,1)]"}
	for _, line := range client {
		if _, err := ParseLine(line, LangClient, 0); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("Expected %q to be invalid in client mode, got %v", line, err)
		}
	}
}

func TestParseBatchLimit(t *testing.T) {
	_, err := ParseLine("READ [a,b,c]", LangBatch, 2)
	if !errors.Is(err, store.ErrCapacityExceeded) {
		t.Errorf("Expected ErrCapacityExceeded, got %v", err)
	}
	if _, err := ParseLine("WRITE [(a,1)(b,2)]", LangBatch, 2); err != nil {
		t.Errorf("Expected batch at the limit to pass, got %v", err)
	}
}

func TestParser(t *testing.T) {
	input := "# comment\n\nWRITE [(a,1)]\nBOGUS\n  \nSHOW\n"
	p := NewParser(strings.NewReader(input), LangBatch, 0)

	cmd, err := p.Next()
	if err != nil || cmd.Type != CmdWrite || cmd.Line != 3 {
		t.Fatalf("Expected WRITE on line 3, got %+v, %v", cmd, err)
	}

	cmd, err = p.Next()
	if !errors.Is(err, ErrInvalidCommand) || cmd.Line != 4 {
		t.Fatalf("Expected invalid command on line 4, got %+v, %v", cmd, err)
	}

	cmd, err = p.Next()
	if err != nil || cmd.Type != CmdShow || cmd.Line != 6 {
		t.Fatalf("Expected SHOW on line 6, got %+v, %v", cmd, err)
	}

	if _, err = p.Next(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}
