package fridabind

import (
	"github.com/buger/jsonparser"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/xerrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type MessageType string

const (
	MessageTypeSend  MessageType = "send"
	MessageTypeLog   MessageType = "log"
	MessageTypeError MessageType = "error"
)

// Message is a parsed script message envelope.
type Message struct {
	Type MessageType
	// Payload is the raw JSON of a send message, or of a log message text.
	Payload []byte

	// log
	Level string
	Text  string

	// error
	Description  string
	Stack        string
	FileName     string
	LineNumber   int
	ColumnNumber int
}

// ParseMessage classifies the JSON text a script emitted.
func ParseMessage(text string) (*Message, error) {
	b := []byte(text)
	t, err := jsonparser.GetString(b, "type")
	if err != nil {
		return nil, xerrors.Errorf("message type: %w", err)
	}
	m := &Message{Type: MessageType(t)}

	switch m.Type {
	case MessageTypeSend:
		m.Payload = rawValue(b, "payload")
	case MessageTypeLog:
		m.Payload = rawValue(b, "payload")
		m.Level, _ = jsonparser.GetString(b, "level")
		m.Text, _ = jsonparser.GetString(b, "payload")
	case MessageTypeError:
		m.Description, _ = jsonparser.GetString(b, "description")
		m.Stack, _ = jsonparser.GetString(b, "stack")
		m.FileName, _ = jsonparser.GetString(b, "fileName")
		if n, err := jsonparser.GetInt(b, "lineNumber"); err == nil {
			m.LineNumber = int(n)
		}
		if n, err := jsonparser.GetInt(b, "columnNumber"); err == nil {
			m.ColumnNumber = int(n)
		}
	default:
		return nil, xerrors.Errorf("message type %q: unknown", t)
	}
	return m, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return xerrors.New("message has no payload")
	}
	return json.Unmarshal(m.Payload, v)
}

// rawValue returns the JSON text of the value at keys, quotes included, or
// nil when it is missing.
func rawValue(b []byte, keys ...string) []byte {
	v, t, offset, err := jsonparser.Get(b, keys...)
	if err != nil {
		return nil
	}
	if t == jsonparser.String {
		return b[offset-len(v)-2 : offset]
	}
	return v
}
