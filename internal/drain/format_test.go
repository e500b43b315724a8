package drain

import (
	"errors"
	"testing"
)

func TestCompileFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
		headers []string
	}{
		{
			name:    "content only",
			format:  "<Content>",
			headers: []string{"Content"},
		},
		{
			name:    "hdfs style",
			format:  "<Date> <Time> <Pid> <Level> <Component>: <Content>",
			headers: []string{"Date", "Time", "Pid", "Level", "Component", "Content"},
		},
		{
			name:    "empty format",
			format:  "",
			wantErr: true,
		},
		{
			name:    "no content field",
			format:  "<Date> <Level>",
			wantErr: true,
		},
		{
			name:    "duplicate field",
			format:  "<Content> <Content>",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := compileFormat(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("compileFormat() expected error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("compileFormat() error = %v", err)
			}
			if len(m.headers) != len(tt.headers) {
				t.Fatalf("headers = %v, want %v", m.headers, tt.headers)
			}
			for i := range m.headers {
				if m.headers[i] != tt.headers[i] {
					t.Errorf("headers[%d] = %q, want %q", i, m.headers[i], tt.headers[i])
				}
			}
		})
	}
}

func TestFormatMatch(t *testing.T) {
	m, err := compileFormat("<Date> <Time> <Level>: <Content>")
	if err != nil {
		t.Fatalf("compileFormat() error = %v", err)
	}

	tests := []struct {
		name   string
		line   string
		ok     bool
		fields map[string]string
	}{
		{
			name: "plain match",
			line: "081109 203518 INFO: Received block blk_123",
			ok:   true,
			fields: map[string]string{
				"Date":    "081109",
				"Time":    "203518",
				"Level":   "INFO",
				"Content": "Received block blk_123",
			},
		},
		{
			name: "whitespace run between fields",
			line: "081109   203518\tINFO: payload",
			ok:   true,
			fields: map[string]string{
				"Date":    "081109",
				"Time":    "203518",
				"Level":   "INFO",
				"Content": "payload",
			},
		},
		{
			name: "missing literal separator",
			line: "081109 203518 INFO payload",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, ok := m.match(tt.line)
			if ok != tt.ok {
				t.Fatalf("match() ok = %v, want %v", ok, tt.ok)
			}
			for name, want := range tt.fields {
				if fields[name] != want {
					t.Errorf("field %s = %q, want %q", name, fields[name], want)
				}
			}
		})
	}
}
