package runtime

import (
	"strings"
	"testing"
)

func TestDefaultAutoEscapeConfig(t *testing.T) {
	config := DefaultAutoEscapeConfig()
	if config == nil {
		t.Fatal("DefaultAutoEscapeConfig returned nil")
	}
	if !config.Enabled {
		t.Error("Auto-escape should be enabled by default")
	}
	if config.Context != EscapeContextHTML {
		t.Error("Default context should be HTML")
	}
	if len(config.Extensions) == 0 {
		t.Error("Should have default extensions")
	}
}

func TestNewAutoEscaper(t *testing.T) {
	t.Run("WithConfig", func(t *testing.T) {
		config := &AutoEscapeConfig{Enabled: true, Context: EscapeContextJS}
		escaper := NewAutoEscaper(config)
		if escaper == nil {
			t.Fatal("NewAutoEscaper returned nil")
		}
	})

	t.Run("WithNilConfig", func(t *testing.T) {
		escaper := NewAutoEscaper(nil)
		if escaper == nil {
			t.Fatal("NewAutoEscaper returned nil")
		}
		if escaper.config == nil {
			t.Error("Should use default config when nil passed")
		}
	})
}

func TestDetectContext(t *testing.T) {
	config := DefaultAutoEscapeConfig()
	escaper := NewAutoEscaper(config)

	tests := []struct {
		name     string
		expected EscapeContext
	}{
		{"template.html", EscapeContextHTML},
		{"template.htm", EscapeContextHTML},
		{"template.xhtml", EscapeContextXHTML},
		{"template.xml", EscapeContextXML},
		{"template.js", EscapeContextJS},
		{"template.css", EscapeContextCSS},
		{"template.json", EscapeContextJSON},
		{"template.txt", EscapeContextHTML}, // falls back to default
	}

	for _, tt := range tests {
		result := escaper.DetectContext(tt.name)
		if result != tt.expected {
			t.Errorf("DetectContext(%q) = %v, want %v", tt.name, result, tt.expected)
		}
	}
}

func TestEscape(t *testing.T) {
	escaper := NewAutoEscaper(nil)

	t.Run("HTMLEscape", func(t *testing.T) {
		result := escaper.Escape("<script>alert('xss')</script>", EscapeContextHTML)
		if strings.Contains(result, "<script>") {
			t.Error("Should escape HTML tags")
		}
		if !strings.Contains(result, "&lt;") {
			t.Error("Should contain escaped characters")
		}
	})

	t.Run("XHTMLEscape", func(t *testing.T) {
		result := escaper.Escape("'single quotes'", EscapeContextXHTML)
		if strings.Contains(result, "'") {
			t.Error("XHTML should escape single quotes")
		}
	})

	t.Run("XMLEscape", func(t *testing.T) {
		result := escaper.Escape("<element>", EscapeContextXML)
		if strings.Contains(result, "<element>") {
			t.Error("Should escape XML tags")
		}
	})

	t.Run("JSEscape", func(t *testing.T) {
		result := escaper.Escape("line1\nline2", EscapeContextJS)
		if strings.Contains(result, "\n") {
			t.Error("Should escape newlines in JS")
		}
	})

	t.Run("URLEscape", func(t *testing.T) {
		result := escaper.Escape("hello world&foo=bar", EscapeContextURL)
		if strings.Contains(result, " ") {
			t.Error("Should URL-encode spaces")
		}
	})

	t.Run("NoEscape", func(t *testing.T) {
		original := "<script>test</script>"
		result := escaper.Escape(original, EscapeContextNone)
		if result != original {
			t.Error("No escape should return original")
		}
	})

	t.Run("DefaultEscape", func(t *testing.T) {
		result := escaper.Escape("<test>", EscapeContext("unknown"))
		if strings.Contains(result, "<test>") {
			t.Error("Unknown context should default to HTML escaping")
		}
	})
}

func TestEscapeWithSafeBypassesEscaping(t *testing.T) {
	escaper := NewAutoEscaper(nil)

	result := escaper.Escape(Safe("<b>bold</b>"), EscapeContextHTML)
	if result != "<b>bold</b>" {
		t.Errorf("Safe value should bypass escaping, got %q", result)
	}
}

func TestEscapeDisabledReturnsOriginal(t *testing.T) {
	config := DefaultAutoEscapeConfig()
	config.Enabled = false
	escaper := NewAutoEscaper(config)

	original := "<script>test</script>"
	result := escaper.Escape(original, EscapeContextHTML)
	if result != original {
		t.Error("Disabled escaper should return original")
	}
}

func TestEscapeHTMLDetails(t *testing.T) {
	escaper := NewAutoEscaper(nil)

	tests := []struct {
		input    string
		expected string
	}{
		{"<", "&lt;"},
		{">", "&gt;"},
		{"&", "&amp;"},
		{"\"", "&#34;"},
		{"normal text", "normal text"},
	}

	for _, tt := range tests {
		result := escaper.Escape(tt.input, EscapeContextHTML)
		if result != tt.expected {
			t.Errorf("escapeHTML(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestEscapeXMLDetails(t *testing.T) {
	escaper := NewAutoEscaper(nil)

	input := "<tag attr=\"value\">content & more</tag>"
	result := escaper.Escape(input, EscapeContextXML)

	if strings.Contains(result, "<tag") {
		t.Error("Should escape < in XML")
	}
	if strings.Contains(result, " & ") {
		t.Error("Should escape & in XML")
	}
}

func TestToStringWithVariousTypes(t *testing.T) {
	tests := []struct {
		input    interface{}
		expected string
	}{
		{"string", "string"},
		{int64(123), "123"},
		{45.67, "45.67"},
		{true, "true"},
		{false, "false"},
		{nil, ""},
	}

	for _, tt := range tests {
		result := ToString(tt.input)
		if result != tt.expected {
			t.Errorf("ToString(%v) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestSafeBypassesToString(t *testing.T) {
	if got := ToString(Safe("<b>bold</b>")); got != "<b>bold</b>" {
		t.Errorf("ToString(Safe(...)) = %q, want %q", got, "<b>bold</b>")
	}
}
