package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/leengari/flatsql/internal/domain/data"
)

// DefaultDelimiter separates fields within a record
const DefaultDelimiter = "-_-"

const escape = '\\'

// maxRecordSize bounds a single encoded line
const maxRecordSize = 16 * 1024 * 1024

// Codec serializes records as delimiter-separated lines.
//
// Fields are escaped so any value round-trips:
//
//	\        -> \\
//	newline  -> \n
//	CR       -> \r
//	d        -> \d   (d = first byte of the delimiter)
//
// After escaping, an unescaped d can only be the start of a delimiter.
type Codec struct {
	delim string
	lead  byte
}

// New creates a codec for the given delimiter
func New(delim string) (*Codec, error) {
	if delim == "" {
		return nil, fmt.Errorf("codec: empty delimiter")
	}
	if strings.ContainsAny(delim, "\\\n\r") {
		return nil, fmt.Errorf("codec: delimiter %q contains a reserved character", delim)
	}
	if delim[0] == 'n' || delim[0] == 'r' {
		return nil, fmt.Errorf("codec: delimiter %q may not start with an escape letter", delim)
	}
	return &Codec{delim: delim, lead: delim[0]}, nil
}

// Default returns a codec using DefaultDelimiter
func Default() *Codec {
	c, _ := New(DefaultDelimiter)
	return c
}

// Delimiter returns the field delimiter
func (c *Codec) Delimiter() string {
	return c.delim
}

// Encode writes records, one per line
func (c *Codec) Encode(w io.Writer, records []data.Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		for i, field := range rec {
			if i > 0 {
				bw.WriteString(c.delim)
			}
			c.writeField(bw, field)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func (c *Codec) writeField(bw *bufio.Writer, field string) {
	for i := 0; i < len(field); i++ {
		ch := field[i]
		switch {
		case ch == escape:
			bw.WriteString(`\\`)
		case ch == '\n':
			bw.WriteString(`\n`)
		case ch == '\r':
			bw.WriteString(`\r`)
		case ch == c.lead:
			bw.WriteByte(escape)
			bw.WriteByte(ch)
		default:
			bw.WriteByte(ch)
		}
	}
}

// Decode reads records until EOF
func (c *Codec) Decode(r io.Reader) ([]data.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	var records []data.Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		rec, err := c.decodeLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Codec) decodeLine(line string) (data.Record, error) {
	var (
		rec   data.Record
		field strings.Builder
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == escape:
			if i+1 >= len(line) {
				return nil, fmt.Errorf("dangling escape at column %d", i+1)
			}
			i++
			switch line[i] {
			case 'n':
				field.WriteByte('\n')
			case 'r':
				field.WriteByte('\r')
			default:
				field.WriteByte(line[i])
			}
		case ch == c.lead:
			if !strings.HasPrefix(line[i:], c.delim) {
				return nil, fmt.Errorf("unescaped %q at column %d", ch, i+1)
			}
			rec = append(rec, field.String())
			field.Reset()
			i += len(c.delim) - 1
		default:
			field.WriteByte(ch)
		}
	}
	rec = append(rec, field.String())
	return rec, nil
}

// Marshal encodes records to bytes
func (c *Codec) Marshal(records []data.Record) []byte {
	var buf bytes.Buffer
	_ = c.Encode(&buf, records)
	return buf.Bytes()
}

// Unmarshal decodes bytes produced by Marshal
func (c *Codec) Unmarshal(b []byte) ([]data.Record, error) {
	return c.Decode(bytes.NewReader(b))
}
