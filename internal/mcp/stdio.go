package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/valyala/bytebufferpool"
)

// MaxLineSize caps a single newline delimited document on stdio.
const MaxLineSize = MaxBodySize

// Stdio serves a Processor over newline delimited JSON. Each line is one
// document and each reply is written as one line.
type Stdio struct {
	processor *Processor

	r  io.Reader
	w  io.Writer
	mu sync.Mutex
}

func NewStdio(processor *Processor, r io.Reader, w io.Writer) *Stdio {
	return &Stdio{
		processor: processor,
		r:         r,
		w:         w,
	}
}

// Serve reads documents until EOF or ctx is done. Documents are handled
// concurrently, so replies may come out of input order; clients match them
// by id. Serve returns once every started document has been answered.
// A line over MaxLineSize is answered with a parse error and skipped.
func (s *Stdio) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	defer wg.Wait()

	reader := bufio.NewReaderSize(s.r, 64*1024)
	for ctx.Err() == nil {
		line, tooLong, err := readLine(reader, MaxLineSize)
		if tooLong {
			log.Warn().Int("limit", MaxLineSize).Msg("document too large, skipped")
			if err := s.writeResponse(NewErrorResponse(nil, DocumentTooLarge(MaxLineSize))); err != nil {
				log.Error().Err(err).Msg("failed to write reply")
			}
		} else if line = bytes.TrimSpace(line); len(line) > 0 {
			doc := line
			wg.Go(func() {
				reply, ok := s.processor.HandleMessage(ctx, doc)
				if !ok {
					return
				}
				if err := s.writeLine(reply); err != nil {
					log.Error().Err(err).Msg("failed to write reply")
				}
			})
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readLine returns the next line without its size bounded by the reader
// buffer. Past limit bytes the rest of the line is drained and dropped, and
// tooLong is set. The returned slice is owned by the caller.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		frag, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(bytes.TrimRight(frag, "\r\n")) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, frag...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, tooLong, err
	}
}

func (s *Stdio) writeResponse(resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.writeLine(b)
}

func (s *Stdio) writeLine(p []byte) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.Write(p)
	buf.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(buf.B)
	return err
}
