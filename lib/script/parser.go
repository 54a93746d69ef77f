package script

import (
	"bufio"
	"io"
)

// BatchHelp is the usage text printed by HELP in batch mode
const BatchHelp = "Available commands:\n" +
	"  WRITE [(key,value),(key2,value2),...]\n" +
	"  READ [key,key2,...]\n" +
	"  DELETE [key,key2,...]\n" +
	"  SHOW\n" +
	"  WAIT <delay_ms>\n" +
	"  BACKUP\n" +
	"  HELP\n"

// ClientHelp is the usage text printed by HELP in the interactive client
const ClientHelp = "Available commands:\n" +
	"  SUBSCRIBE [key]\n" +
	"  UNSUBSCRIBE [key]\n" +
	"  DELAY <delay_ms>\n" +
	"  DISCONNECT\n" +
	"  HELP\n"

// Parser reads commands line by line from a reader.
//
// Thread-safety: A Parser must only be used by one goroutine.
type Parser struct {
	scanner  *bufio.Scanner
	lang     Language
	maxBatch int
	line     int
}

// NewParser creates a parser reading commands of lang from r
func NewParser(r io.Reader, lang Language, maxBatch int) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Parser{
		scanner:  scanner,
		lang:     lang,
		maxBatch: maxBatch,
	}
}

// Next returns the next non-empty command. A line that fails to parse is returned
// as error together with a Command carrying only its line number, the parser can
// be used further afterward. io.EOF is returned at the end of the input.
func (p *Parser) Next() (Command, error) {
	for p.scanner.Scan() {
		p.line++
		cmd, err := ParseLine(p.scanner.Text(), p.lang, p.maxBatch)
		if err != nil {
			return Command{Line: p.line}, err
		}
		if cmd.Type == CmdEmpty {
			continue
		}
		cmd.Line = p.line
		return cmd, nil
	}
	if err := p.scanner.Err(); err != nil {
		return Command{}, err
	}
	return Command{}, io.EOF
}
