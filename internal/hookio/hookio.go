// Package hookio implements the stdin/stdout protocol between bkit and the
// host runtime: one JSON object in, one decision out.
package hookio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bkit-dev/bkit/internal/platform"
	"golang.org/x/term"
)

const (
	// MaxStdinBytes caps stdin reads. Hook payloads are small JSON objects.
	MaxStdinBytes = 1 << 20

	// MaxContextLength is where Truncate cuts guidance text.
	MaxContextLength = 500

	truncatedSuffix = "... (truncated)"
)

// Input is the decoded hook payload. Unknown fields are kept in Raw.
type Input struct {
	Raw map[string]any
}

// ReadStdin reads the hook payload from os.Stdin. A terminal, an empty
// stream, or malformed JSON yields an empty input.
func ReadStdin() Input {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return Input{Raw: map[string]any{}}
	}
	return Read(os.Stdin)
}

// Read decodes at most MaxStdinBytes from r.
func Read(r io.Reader) Input {
	data, err := io.ReadAll(io.LimitReader(r, MaxStdinBytes))
	if err != nil {
		return Input{Raw: map[string]any{}}
	}
	return Parse(data)
}

// Parse decodes a JSON object. Anything that is not an object is treated
// as empty input.
func Parse(data []byte) Input {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return Input{Raw: map[string]any{}}
	}
	return Input{Raw: raw}
}

// NewInput wraps an already decoded payload.
func NewInput(raw map[string]any) Input {
	if raw == nil {
		raw = map[string]any{}
	}
	return Input{Raw: raw}
}

// Get walks nested objects along keys.
func (in Input) Get(keys ...string) (any, bool) {
	var cur any = in.Raw
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// String returns the string at keys, or "".
func (in Input) String(keys ...string) string {
	v, ok := in.Get(keys...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// First returns the first non-empty string among the given key paths.
func (in Input) First(paths ...[]string) string {
	for _, p := range paths {
		if s := in.String(p...); s != "" {
			return s
		}
	}
	return ""
}

// ToolInput returns the tool_input object, or an empty map.
func (in Input) ToolInput() map[string]any {
	if v, ok := in.Get("tool_input"); ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

func (in Input) ToolName() string {
	return in.First([]string{"tool_name"}, []string{"toolName"})
}

func (in Input) FilePath() string {
	return in.First([]string{"tool_input", "file_path"}, []string{"tool_input", "filePath"})
}

func (in Input) Content() string {
	return in.First([]string{"tool_input", "content"}, []string{"tool_input", "new_string"})
}

func (in Input) Command() string { return in.String("tool_input", "command") }

func (in Input) OldString() string { return in.String("tool_input", "old_string") }

// Prompt returns the user prompt from prompt, user_message or message.
func (in Input) Prompt() string {
	return in.First([]string{"prompt"}, []string{"user_message"}, []string{"message"})
}

// JSON re-encodes the payload without HTML escaping. Stop handlers scan
// it as text.
func (in Input) JSON() string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(in.Raw); err != nil {
		return ""
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Truncate cuts s at MaxContextLength and marks the cut.
func Truncate(s string) string {
	return TruncateTo(s, MaxContextLength)
}

// TruncateTo cuts s at max runes and marks the cut.
func TruncateTo(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + truncatedSuffix
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// XMLSafe escapes XML special characters.
func XMLSafe(s string) string {
	return xmlReplacer.Replace(s)
}

// ─── Output ───

// Decision is what a handler asks the host to do.
type Decision string

const (
	DecisionEmpty Decision = ""
	DecisionAllow Decision = "allow"
	DecisionBlock Decision = "block"
	// DecisionRaw writes Payload verbatim: strings as text, anything else
	// as JSON.
	DecisionRaw Decision = "raw"
)

// Result is a handler's answer. ExitCode is the process exit status the
// hook command should use.
type Result struct {
	Decision Decision
	Message  string
	Event    string
	ExitCode int
	Payload  any
	Indent   bool
}

// Empty produces no guidance.
func Empty() Result { return Result{} }

// Allow lets the tool run, optionally with guidance for the model.
func Allow(message, event string) Result {
	return Result{Decision: DecisionAllow, Message: message, Event: event}
}

// Block stops the tool with reason.
func Block(reason string) Result {
	return Result{Decision: DecisionBlock, Message: reason}
}

// Raw writes payload as-is.
func Raw(payload any) Result {
	return Result{Decision: DecisionRaw, Payload: payload}
}

// RawIndented writes payload as 2-space indented JSON.
func RawIndented(payload any) Result {
	return Result{Decision: DecisionRaw, Payload: payload, Indent: true}
}

// Halt asks the host to stop the conversation loop.
func Halt() Result {
	return Raw(map[string]any{"continue": false})
}

// Write renders r for the given platform.
//
//	allow: gemini {status:"allow",message}; claude {success:true,message}
//	       for SessionStart/UserPromptSubmit, plain text otherwise
//	block: gemini {status:"block",message}; claude {decision:"block",reason}
//	empty: gemini {status:"allow"}; claude nothing
func Write(w io.Writer, p platform.Name, r Result) error {
	gemini := p == platform.Gemini

	switch r.Decision {
	case DecisionAllow:
		msg := Truncate(r.Message)
		if gemini {
			return writeJSON(w, statusMessage{Status: "allow", Message: msg}, false)
		}
		if r.Event == "SessionStart" || r.Event == "UserPromptSubmit" {
			return writeJSON(w, successMessage{Success: true, Message: msg}, false)
		}
		if msg == "" {
			return nil
		}
		_, err := fmt.Fprintln(w, msg)
		return err

	case DecisionBlock:
		if gemini {
			return writeJSON(w, statusMessage{Status: "block", Message: r.Message}, false)
		}
		return writeJSON(w, blockMessage{Decision: "block", Reason: r.Message}, false)

	case DecisionRaw:
		if s, ok := r.Payload.(string); ok {
			_, err := fmt.Fprintln(w, s)
			return err
		}
		return writeJSON(w, r.Payload, r.Indent)

	default:
		if gemini {
			return writeJSON(w, statusMessage{Status: "allow"}, false)
		}
		return nil
	}
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type successMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type blockMessage struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
