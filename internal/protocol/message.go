package protocol

import "strconv"

// Command names exchanged with the monitor.
const (
	CommandHello     = "Hello"
	CommandBye       = "Bye"
	CommandSetPage   = "SetPage"
	CommandAboutMe   = "AboutMe"
	CommandDoRefresh = "DoRefresh"
)

// Field keys used by the commands above.
const (
	FieldCommand = "command"
	FieldType    = "type"
	FieldAgent   = "agent"
	FieldVersion = "version"
	FieldPage    = "page"
	FieldURL     = "url"
	FieldName    = "name"
	FieldFiles   = "files"
	FieldAction  = "action"
)

// File actions reported inside DoRefresh.
const (
	ActionChanged = "changed"
	ActionCreated = "created"
	ActionDeleted = "deleted"
	ActionRenamed = "renamed"
)

// Message is one protocol object. Accessors never fail: a missing or
// mistyped field reads as the zero value of the requested type.
type Message map[string]any

// NewMessage returns a message carrying only the command field.
func NewMessage(command string) Message {
	return Message{FieldCommand: command}
}

// Command returns the command field.
func (m Message) Command() string {
	return m.String(FieldCommand)
}

// Set stores v under key. String values are packed through PackValue.
func (m Message) Set(key string, v any) Message {
	if s, ok := v.(string); ok {
		v = PackValue(s)
	}
	m[key] = v
	return m
}

// String returns the field as text, or "" when absent or not a valid string.
func (m Message) String(key string) string {
	if m == nil {
		return ""
	}
	return UnpackValue(m[key])
}

// Int returns the field as an int. Numeric strings are accepted.
func (m Message) Int(key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Map returns a nested object, or an empty message.
func (m Message) Map(key string) Message {
	if m == nil {
		return Message{}
	}
	return asMessage(m[key])
}

// List returns an array of objects. Elements that are not objects read as
// empty messages so positions are preserved.
func (m Message) List(key string) []Message {
	if m == nil {
		return nil
	}
	raw, ok := m[key].([]any)
	if !ok {
		if typed, ok := m[key].([]Message); ok {
			return typed
		}
		return nil
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		out = append(out, asMessage(item))
	}
	return out
}

func asMessage(v any) Message {
	switch t := v.(type) {
	case Message:
		return t
	case map[string]any:
		return Message(t)
	default:
		return Message{}
	}
}
