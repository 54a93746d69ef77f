package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
)

// ErrInvalidCommand is returned for every line that is not a valid command
var ErrInvalidCommand = errors.New("Invalid command. See HELP for usage")

// CmdType identifies the kind of a parsed command
type CmdType int

const (
	CmdEmpty CmdType = iota // blank line or comment

	// batch commands

	CmdWrite
	CmdRead
	CmdDelete
	CmdShow
	CmdWait
	CmdBackup
	CmdHelp

	// client commands

	CmdSubscribe
	CmdUnsubscribe
	CmdDelay
	CmdDisconnect
)

// String returns the keyword of the command type
func (t CmdType) String() string {
	switch t {
	case CmdEmpty:
		return "EMPTY"
	case CmdWrite:
		return "WRITE"
	case CmdRead:
		return "READ"
	case CmdDelete:
		return "DELETE"
	case CmdShow:
		return "SHOW"
	case CmdWait:
		return "WAIT"
	case CmdBackup:
		return "BACKUP"
	case CmdHelp:
		return "HELP"
	case CmdSubscribe:
		return "SUBSCRIBE"
	case CmdUnsubscribe:
		return "UNSUBSCRIBE"
	case CmdDelay:
		return "DELAY"
	case CmdDisconnect:
		return "DISCONNECT"
	default:
		return "INVALID"
	}
}

// Command is a single parsed line
type Command struct {
	Type  CmdType
	Pairs []db.Pair     // WRITE
	Keys  []string      // READ, DELETE, SUBSCRIBE, UNSUBSCRIBE
	Delay time.Duration // WAIT, DELAY
	Line  int           // 1-based line number, set by the Parser
}

// Language selects which command set a line is parsed against
type Language int

const (
	LangBatch  Language = iota // WRITE READ DELETE SHOW WAIT BACKUP HELP
	LangClient                 // SUBSCRIBE UNSUBSCRIBE DELAY DISCONNECT HELP
)

// ParseLine parses a single line of the given language.
// maxBatch limits the number of keys of a list argument (0 = unlimited).
func ParseLine(line string, lang Language, maxBatch int) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{Type: CmdEmpty}, nil
	}

	keyword, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch {
	case keyword == "HELP":
		return noArgs(CmdHelp, rest)

	case lang == LangBatch && keyword == "WRITE":
		pairs, err := parsePairs(rest)
		if err != nil {
			return Command{}, err
		}
		if err := checkBatch(len(pairs), maxBatch); err != nil {
			return Command{}, err
		}
		return Command{Type: CmdWrite, Pairs: pairs}, nil

	case lang == LangBatch && (keyword == "READ" || keyword == "DELETE"):
		keys, err := parseKeys(rest)
		if err != nil {
			return Command{}, err
		}
		if err := checkBatch(len(keys), maxBatch); err != nil {
			return Command{}, err
		}
		typ := CmdRead
		if keyword == "DELETE" {
			typ = CmdDelete
		}
		return Command{Type: typ, Keys: keys}, nil

	case lang == LangBatch && keyword == "SHOW":
		return noArgs(CmdShow, rest)

	case lang == LangBatch && keyword == "BACKUP":
		return noArgs(CmdBackup, rest)

	case lang == LangBatch && keyword == "WAIT":
		return parseDelay(CmdWait, rest)

	case lang == LangClient && (keyword == "SUBSCRIBE" || keyword == "UNSUBSCRIBE"):
		keys, err := parseKeys(rest)
		if err != nil {
			return Command{}, err
		}
		if len(keys) != 1 {
			return Command{}, ErrInvalidCommand
		}
		typ := CmdSubscribe
		if keyword == "UNSUBSCRIBE" {
			typ = CmdUnsubscribe
		}
		return Command{Type: typ, Keys: keys}, nil

	case lang == LangClient && keyword == "DELAY":
		return parseDelay(CmdDelay, rest)

	case lang == LangClient && keyword == "DISCONNECT":
		return noArgs(CmdDisconnect, rest)
	}

	return Command{}, ErrInvalidCommand
}

// --------------------------------------------------------------------------
// Argument Parsing
// --------------------------------------------------------------------------

func noArgs(typ CmdType, rest string) (Command, error) {
	if rest != "" {
		return Command{}, ErrInvalidCommand
	}
	return Command{Type: typ}, nil
}

func parseDelay(typ CmdType, rest string) (Command, error) {
	ms, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return Command{}, ErrInvalidCommand
	}
	return Command{Type: typ, Delay: time.Duration(ms) * time.Millisecond}, nil
}

func checkBatch(n, maxBatch int) error {
	if maxBatch > 0 && n > maxBatch {
		return store.NewError(store.RetCCapacityExceeded,
			fmt.Sprintf("batch of %d keys exceeds the maximum of %d", n, maxBatch))
	}
	return nil
}

// brackets returns the content between a leading '[' and a trailing ']'
func brackets(s string) (string, bool) {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// parseKeys parses "[k1,k2,...]". At least one key is required.
func parseKeys(s string) ([]string, error) {
	inner, ok := brackets(s)
	if !ok {
		return nil, ErrInvalidCommand
	}
	var keys []string
	for _, k := range strings.Split(inner, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, ErrInvalidCommand
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// parsePairs parses "[(k1,v1)(k2,v2)...]". Commas and spaces between pairs are optional.
func parsePairs(s string) ([]db.Pair, error) {
	inner, ok := brackets(s)
	if !ok {
		return nil, ErrInvalidCommand
	}

	var pairs []db.Pair
	for {
		inner = strings.TrimLeft(inner, " \t,")
		if inner == "" {
			break
		}
		if inner[0] != '(' {
			return nil, ErrInvalidCommand
		}
		end := strings.IndexByte(inner, ')')
		if end < 0 {
			return nil, ErrInvalidCommand
		}
		key, value, found := strings.Cut(inner[1:end], ",")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, ErrInvalidCommand
		}
		pairs = append(pairs, db.Pair{Key: key, Value: strings.TrimSpace(value)})
		inner = inner[end+1:]
	}

	if len(pairs) == 0 {
		return nil, ErrInvalidCommand
	}
	return pairs, nil
}
