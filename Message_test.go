package fridabind

import (
	"reflect"
	"testing"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Message
		payload string
	}{
		{
			name:    "send object",
			text:    `{"type":"send","payload":{"event":"open","fd":3}}`,
			want:    Message{Type: MessageTypeSend},
			payload: `{"event":"open","fd":3}`,
		},
		{
			name:    "send string",
			text:    `{"type":"send","payload":"a \"quoted\" word"}`,
			want:    Message{Type: MessageTypeSend},
			payload: `"a \"quoted\" word"`,
		},
		{
			name:    "send without payload",
			text:    `{"type":"send"}`,
			want:    Message{Type: MessageTypeSend},
			payload: ``,
		},
		{
			name:    "log",
			text:    `{"type":"log","level":"warning","payload":"low memory"}`,
			want:    Message{Type: MessageTypeLog, Level: "warning", Text: "low memory"},
			payload: `"low memory"`,
		},
		{
			name: "error",
			text: `{"type":"error","description":"ReferenceError: x is not defined","stack":"at main","fileName":"/agent.js","lineNumber":3,"columnNumber":7}`,
			want: Message{
				Type:         MessageTypeError,
				Description:  "ReferenceError: x is not defined",
				Stack:        "at main",
				FileName:     "/agent.js",
				LineNumber:   3,
				ColumnNumber: 7,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMessage(tt.text)
			if err != nil {
				t.Fatalf("ParseMessage: %v", err)
			}
			if string(m.Payload) != tt.payload {
				t.Errorf("Payload = %s, want %s", m.Payload, tt.payload)
			}
			m.Payload = nil
			if !reflect.DeepEqual(*m, tt.want) {
				t.Errorf("message = %+v, want %+v", *m, tt.want)
			}
		})
	}
}

func TestParseMessageInvalid(t *testing.T) {
	for _, text := range []string{
		``,
		`not json`,
		`{"payload":1}`,
		`{"type":"unknown"}`,
	} {
		if _, err := ParseMessage(text); err == nil {
			t.Errorf("ParseMessage(%q) succeeded", text)
		}
	}
}

func TestMessageDecode(t *testing.T) {
	m, err := ParseMessage(`{"type":"send","payload":{"event":"open","fd":3}}`)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	var v struct {
		Event string `json:"event"`
		FD    int    `json:"fd"`
	}
	if err := m.Decode(&v); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Event != "open" || v.FD != 3 {
		t.Errorf("decoded %+v", v)
	}

	empty := &Message{Type: MessageTypeSend}
	if err := empty.Decode(&v); err == nil {
		t.Error("Decode without payload succeeded")
	}
}
