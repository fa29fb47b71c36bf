package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := MustNewSplitter(DefaultConfig())

	text := "No pets allowed in Lot 4. Owners must keep common areas clean."
	passages := s.Split(text)

	if len(passages) != 1 {
		t.Fatalf("Expected 1 passage, got %d", len(passages))
	}
	if passages[0].Ordinal != 0 {
		t.Errorf("Ordinal: expected 0, got %d", passages[0].Ordinal)
	}
	if passages[0].Text != text {
		t.Errorf("Text: expected full input, got %q", passages[0].Text)
	}
}

func TestSplit_EmptyText(t *testing.T) {
	s := MustNewSplitter(DefaultConfig())

	if got := s.Split(""); len(got) != 0 {
		t.Errorf("Expected no passages for empty text, got %d", len(got))
	}
	if got := s.Split("   \n\n  "); len(got) != 0 {
		t.Errorf("Expected no passages for whitespace text, got %d", len(got))
	}
}

func TestSplit_OrdinalsContiguous(t *testing.T) {
	s := MustNewSplitter(Config{Size: 200, Overlap: 40})

	text := strings.Repeat("The board meets on the first Tuesday of every month. ", 60)
	passages := s.Split(text)

	if len(passages) < 2 {
		t.Fatalf("Expected multiple passages, got %d", len(passages))
	}
	for i, p := range passages {
		if p.Ordinal != i {
			t.Errorf("Passage %d has ordinal %d", i, p.Ordinal)
		}
		if p.Text == "" {
			t.Errorf("Passage %d is empty", i)
		}
	}
}

func TestSplit_ConsecutivePassagesOverlap(t *testing.T) {
	s := MustNewSplitter(Config{Size: 200, Overlap: 40})

	text := strings.Repeat("Assessment notices are mailed thirty days in advance. ", 40)
	passages := s.Split(text)

	if len(passages) < 2 {
		t.Fatalf("Expected multiple passages, got %d", len(passages))
	}
	for i := 1; i < len(passages); i++ {
		// The tail of the previous passage must reappear at the head of
		// the next one.
		prev := passages[i-1].Text
		tail := prev[len(prev)-20:]
		if !strings.Contains(passages[i].Text, strings.TrimSpace(tail)) {
			t.Errorf("Passage %d does not overlap with passage %d", i, i-1)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s := MustNewSplitter(Config{Size: 300, Overlap: 60})

	text := strings.Repeat("Quiet hours run from ten at night until seven in the morning. ", 50)

	first := s.Split(text)
	second := s.Split(text)

	if len(first) != len(second) {
		t.Fatalf("Passage counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Passage %d differs between runs", i)
		}
	}
}

func TestSplit_TrailingPartialKept(t *testing.T) {
	s := MustNewSplitter(Config{Size: 200, Overlap: 40})

	sentence := "Parking permits are issued by the management office. "
	text := strings.Repeat(sentence, 30)
	passages := s.Split(text)

	last := passages[len(passages)-1]
	if last.Text == "" {
		t.Error("Trailing passage should be kept")
	}
	if !strings.HasSuffix(strings.TrimSpace(text), strings.TrimSpace(last.Text)) {
		t.Error("Trailing passage should end where the document ends")
	}
}

func TestSplit_MultibyteTextStaysValidUTF8(t *testing.T) {
	s := MustNewSplitter(Config{Size: 200, Overlap: 40})

	// No sentence or paragraph breaks, so every cut is a hard cut, and
	// every window edge lands near a multi-byte character.
	text := strings.Repeat("cláusula—régimen—propietarios—edificación ", 40)
	passages := s.Split(text)

	if len(passages) < 2 {
		t.Fatalf("Expected multiple passages, got %d", len(passages))
	}
	for i, p := range passages {
		if !utf8.ValidString(p.Text) {
			t.Errorf("Passage %d contains invalid UTF-8: %q", i, p.Text[:20])
		}
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	s := MustNewSplitter(Config{Size: 200, Overlap: 40})

	para1 := strings.Repeat("a", 150)
	para2 := strings.Repeat("b", 300)
	text := para1 + "\n\n" + para2

	passages := s.Split(text)
	if len(passages) < 2 {
		t.Fatalf("Expected multiple passages, got %d", len(passages))
	}
	if passages[0].Text != para1 {
		t.Errorf("First passage should end at the paragraph break, got %q", passages[0].Text)
	}
}

func TestSplit_SectionHeadings(t *testing.T) {
	text := `ARTICLE IV - USE RESTRICTIONS

4.1 Pets. No pets allowed in Lot 4 without board approval.

4.2 Noise. Quiet hours run from ten until seven.
`
	s := MustNewSplitter(DefaultConfig())
	passages := s.Split(text)

	if len(passages) != 1 {
		t.Fatalf("Expected 1 passage, got %d", len(passages))
	}
	if passages[0].Section != "ARTICLE IV - USE RESTRICTIONS" {
		t.Errorf("Section: expected article heading, got %q", passages[0].Section)
	}
}

func TestSplit_NoHeadingsStillChunks(t *testing.T) {
	s := MustNewSplitter(Config{Size: 200, Overlap: 40})

	text := strings.Repeat("plain lowercase prose with no headings at all. ", 30)
	passages := s.Split(text)

	if len(passages) == 0 {
		t.Fatal("Expected passages even without headings")
	}
	for i, p := range passages {
		if p.Section != "" {
			t.Errorf("Passage %d has unexpected section %q", i, p.Section)
		}
	}
}

func TestIsHeadingLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"ARTICLE IV - USE RESTRICTIONS", true},
		{"Section 2: Assessments", true},
		{"4.1 Pets and animals", true},
		{"12) Voting rights", true},
		{"BYLAWS OF THE ASSOCIATION", true},
		{"No pets allowed in Lot 4.", false},
		{"", false},
		{strings.Repeat("X", 100), false},
	}
	for _, tt := range tests {
		if got := isHeadingLine(tt.line); got != tt.want {
			t.Errorf("isHeadingLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero size", Config{Size: 0, Overlap: 0}, true},
		{"negative overlap", Config{Size: 1000, Overlap: -1}, true},
		{"overlap too large", Config{Size: 200, Overlap: 100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
