package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Attachment is a file the user picked for the next prompt. Only its name
// travels to the backend.
type Attachment struct {
	Name string
	Path string
	Size int64
}

// ToolCall is one backend-reported function invocation of the current turn
type ToolCall struct {
	ID           string
	FunctionName string
	Args         map[string]any
}

// PrettyArgs renders the arguments as indented JSON
func (t ToolCall) PrettyArgs() string {
	data, err := json.MarshalIndent(t.Args, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", t.Args)
	}
	return string(data)
}

// Table looks for the first argument holding a non-empty list of objects and
// flattens it into title-cased headers and string cells. Columns come from
// the first row's keys in sorted order.
func (t ToolCall) Table() (headers []string, rows [][]string, ok bool) {
	keys := make([]string, 0, len(t.Args))
	for k := range t.Args {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var records []map[string]any
	for _, k := range keys {
		if records, ok = objectList(t.Args[k]); ok {
			break
		}
	}
	if !ok {
		return nil, nil, false
	}

	columns := make([]string, 0, len(records[0]))
	for k := range records[0] {
		columns = append(columns, k)
	}
	slices.Sort(columns)

	for _, c := range columns {
		headers = append(headers, TitleCase(c))
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cellText(rec[c])
		}
		rows = append(rows, row)
	}
	return headers, rows, true
}

func objectList(v any) ([]map[string]any, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	if _, ok := list[0].(map[string]any); !ok {
		return nil, false
	}

	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		rec, _ := item.(map[string]any)
		out = append(out, rec)
	}
	return out, true
}

func cellText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// TitleCase turns snake_case keys into "Snake Case" headers
func TitleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// ComposePrompt appends one attachment note per file after the prompt text
func ComposePrompt(prompt string, attachments []Attachment) string {
	var b strings.Builder
	b.WriteString(prompt)
	for _, a := range attachments {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[Attachment: %s]", a.Name)
	}
	return b.String()
}

// errorAnnotation is appended to the assistant reply for an in-band error
func errorAnnotation(text string) string {
	return "\n\n**Error:** " + text
}
