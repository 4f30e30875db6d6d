package claude

import (
	"bufio"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// The backend emits UTF-8 line-delimited JSON events. The protocol is
// loosely specified and evolving, so interpretation is permissive: lines
// that fail to parse and event kinds we do not recognize are skipped, never
// escalated. The single hard requirement is a terminal result event.

// Result is the aggregate outcome of one backend invocation.
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
	SessionID    string
}

// StreamOutcome is what a streaming pass learned, retained for persistence
// after the deltas have already gone to the client.
type StreamOutcome struct {
	Text         string // concatenation of all emitted deltas
	InputTokens  int
	OutputTokens int
	SessionID    string
	SawResult    bool
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	return sc
}

// Interpret consumes the full event stream and returns the terminal result.
// The init event's session_id is a fallback only; the result event's
// session_id, when present, wins.
func Interpret(r io.Reader) (Result, error) {
	var (
		res         Result
		haveResult  bool
		fallbackSID string
	)

	sc := newScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !gjson.Valid(line) {
			continue
		}
		ev := gjson.Parse(line)
		switch ev.Get("type").String() {
		case "system":
			if ev.Get("subtype").String() == "init" {
				if sid := ev.Get("session_id").String(); sid != "" {
					fallbackSID = sid
				}
			}
		case "result":
			if ev.Get("is_error").Bool() {
				return Result{}, &BackendError{Message: ev.Get("result").String()}
			}
			haveResult = true
			res.Text = ev.Get("result").String()
			res.InputTokens = int(ev.Get("usage.input_tokens").Int())
			res.OutputTokens = int(ev.Get("usage.output_tokens").Int())
			res.SessionID = ev.Get("session_id").String()
		}
	}
	if err := sc.Err(); err != nil {
		return Result{}, err
	}
	if !haveResult {
		return Result{}, &ProtocolError{Reason: "no result found in claude output"}
	}
	if res.SessionID == "" {
		res.SessionID = fallbackSID
	}
	return res, nil
}

// InterpretStream emits each assistant text delta via onDelta in arrival
// order, as soon as its event is read. Reading stops at the first result
// event regardless of what the process writes afterwards.
func InterpretStream(r io.Reader, onDelta func(text string) error) (StreamOutcome, error) {
	var (
		out         StreamOutcome
		buf         strings.Builder
		fallbackSID string
	)

	sc := newScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !gjson.Valid(line) {
			continue
		}
		ev := gjson.Parse(line)
		switch ev.Get("type").String() {
		case "system":
			if ev.Get("subtype").String() == "init" {
				if sid := ev.Get("session_id").String(); sid != "" {
					fallbackSID = sid
				}
			}
		case "assistant":
			var emitErr error
			ev.Get("message.content").ForEach(func(_, block gjson.Result) bool {
				if block.Get("type").String() != "text" {
					return true
				}
				text := block.Get("text").String()
				if text == "" {
					return true
				}
				buf.WriteString(text)
				if err := onDelta(text); err != nil {
					emitErr = err
					return false
				}
				return true
			})
			if emitErr != nil {
				out.Text = buf.String()
				return out, emitErr
			}
		case "result":
			out.SawResult = true
			out.SessionID = ev.Get("session_id").String()
			out.InputTokens = int(ev.Get("usage.input_tokens").Int())
			out.OutputTokens = int(ev.Get("usage.output_tokens").Int())
			out.Text = buf.String()
			if out.SessionID == "" {
				out.SessionID = fallbackSID
			}
			if ev.Get("is_error").Bool() {
				return out, &BackendError{Message: ev.Get("result").String()}
			}
			return out, nil
		}
	}
	out.Text = buf.String()
	if out.SessionID == "" {
		out.SessionID = fallbackSID
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	return out, &ProtocolError{Reason: "stream ended without a result event"}
}
