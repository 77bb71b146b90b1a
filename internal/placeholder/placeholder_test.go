package placeholder

import (
	"reflect"
	"testing"
)

func TestProtect(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantText string
		wantN    int
	}{
		{
			name:     "plain text",
			input:    "Hello, world",
			wantText: "Hello, world",
			wantN:    0,
		},
		{
			name:     "html tags",
			input:    "Press <b>Save</b> now",
			wantText: "Press [PH0]Save[PH1] now",
			wantN:    2,
		},
		{
			name:     "inline code",
			input:    "Run `make build` first",
			wantText: "Run [PH0] first",
			wantN:    1,
		},
		{
			name:     "fenced block swallows inline spans",
			input:    "See:\n```\nx := `raw`\n```\nDone",
			wantText: "See:\n[PH0]\nDone",
			wantN:    1,
		},
		{
			name:     "numbered in order of appearance",
			input:    "`a` then <i>b</i>",
			wantText: "[PH0] then [PH1]b[PH2]",
			wantN:    3,
		},
		{
			name:     "comparison is not a tag",
			input:    "if a < b and c > d",
			wantText: "if a < b and c > d",
			wantN:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Protect(tt.input)
			if p.Text != tt.wantText {
				t.Errorf("Protect(%q).Text = %q, want %q", tt.input, p.Text, tt.wantText)
			}
			if len(p.markers) != tt.wantN {
				t.Errorf("Protect(%q) captured %d markers, want %d", tt.input, len(p.markers), tt.wantN)
			}
			if p.Empty() != (tt.wantN == 0) {
				t.Errorf("Empty() = %v with %d markers", p.Empty(), tt.wantN)
			}
		})
	}
}

func TestRestore(t *testing.T) {
	p := Protect("Press <b>Save</b> and run `make`")

	got := p.Restore("[PH0]Speichern[PH1] drücken und [PH2] ausführen")
	want := "<b>Speichern</b> drücken und `make` ausführen"
	if got != want {
		t.Errorf("Restore = %q, want %q", got, want)
	}

	if got := p.Restore("kept [PH9]"); got != "kept [PH9]" {
		t.Errorf("unknown marker should be kept, got %q", got)
	}
}

func TestRestore_NoMarkers(t *testing.T) {
	p := Protect("plain")
	if got := p.Restore("[PH0] literal"); got != "[PH0] literal" {
		t.Errorf("text without markup must pass through, got %q", got)
	}
}

func TestMissing(t *testing.T) {
	p := Protect("<p>one</p> `two`")

	if got := p.Missing("[PH0]eins[PH1] [PH2]"); got != nil {
		t.Errorf("expected nothing missing, got %v", got)
	}
	if got := p.Missing("[PH0]eins [PH2]"); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("expected [1], got %v", got)
	}
}
