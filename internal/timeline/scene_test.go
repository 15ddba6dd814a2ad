package timeline

import "testing"

func TestNewScene_RejectsEmptyInterval(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		wantErr    bool
	}{
		{name: "valid", start: 0, end: 10, wantErr: false},
		{name: "zero width", start: 5, end: 5, wantErr: true},
		{name: "inverted", start: 8, end: 3, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewScene("s1", tc.start, tc.end)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewScene(%v, %v) error = %v, wantErr %v", tc.start, tc.end, err, tc.wantErr)
			}
		})
	}
}

func TestScene_SetSpeed(t *testing.T) {
	s, _ := NewScene("s1", 0, 10)

	if err := s.SetSpeed(2.0); err != nil {
		t.Fatalf("SetSpeed(2.0) error: %v", err)
	}
	if err := s.SetSpeed(0.1); err == nil {
		t.Fatal("SetSpeed(0.1): expected error")
	}
	if err := s.SetSpeed(5.0); err == nil {
		t.Fatal("SetSpeed(5.0): expected error")
	}
}

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 1.0, want: 1.0},
		{in: 0.1, want: MinSpeed},
		{in: 10.0, want: MaxSpeed},
		{in: 3.0, want: 3.0},
	}
	for _, tc := range tests {
		if got := ClampSpeed(tc.in); got != tc.want {
			t.Fatalf("ClampSpeed(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestScene_Duration(t *testing.T) {
	s, _ := NewScene("s1", 2, 12)
	if got := s.RawDuration(); got != 10 {
		t.Fatalf("RawDuration() = %v, want 10", got)
	}
	if err := s.SetSpeed(2.0); err != nil {
		t.Fatalf("SetSpeed error: %v", err)
	}
	if got := s.Duration(); got != 5 {
		t.Fatalf("Duration() at speed 2.0 = %v, want 5", got)
	}
}

func TestScene_AddWord(t *testing.T) {
	s, _ := NewScene("s1", 1, 5)

	if err := s.AddWord(Word{Text: "hello", Start: 1.2, End: 1.6}); err != nil {
		t.Fatalf("AddWord in range error: %v", err)
	}
	if err := s.AddWord(Word{Text: "early", Start: 0.5, End: 1.1}); err == nil {
		t.Fatal("AddWord before scene start: expected error")
	}
	if err := s.AddWord(Word{Text: "late", Start: 4.8, End: 5.3}); err == nil {
		t.Fatal("AddWord past scene end: expected error")
	}
	if got := s.TranscriptText(); got != "hello" {
		t.Fatalf("TranscriptText() = %q, want %q", got, "hello")
	}
}

func TestScene_Clone(t *testing.T) {
	s, _ := NewScene("s1", 0, 10)
	s.AddWord(Word{Text: "a", Start: 1, End: 2})
	s.Overlays = append(s.Overlays, DefaultOverlay("hi"))

	c := s.Clone()
	c.Transcript[0].Text = "b"
	c.Overlays[0].Text = "bye"

	if s.Transcript[0].Text != "a" {
		t.Fatal("Clone shares transcript backing array")
	}
	if s.Overlays[0].Text != "hi" {
		t.Fatal("Clone shares overlay backing array")
	}
}

func TestValidPosition(t *testing.T) {
	for _, p := range []string{"top", "center", "bottom", "top-left", "top-right", "bottom-left", "bottom-right"} {
		if !ValidPosition(p) {
			t.Fatalf("ValidPosition(%q) = false, want true", p)
		}
	}
	if ValidPosition("middle") {
		t.Fatal(`ValidPosition("middle") = true, want false`)
	}
}
