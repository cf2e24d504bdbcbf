package record

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSignal = `'Elapsed time','MLII','V5'
'hh:mm:ss.mmm','mV','mV'
'0:00.000',-0.145,-0.065
'0:00.003',-0.145,-0.065
'0:00.006',-0.145,-0.065
'0:00.008',-0.120,-0.080
`

const sampleAnnotations = `      Time   Sample #  Type  Sub Chan  Num	Aux
    0:00.050       18     +    0    0    0	(N
    0:00.214       77     N    0    0    0
    0:01.028      370     N    0    0    0

    0:01.839      662     V    0    0    0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestParseSignal(t *testing.T) {
	rec, err := ParseSignal("100", strings.NewReader(sampleSignal))
	if err != nil {
		t.Fatalf("ParseSignal failed: %v", err)
	}

	if rec.Name != "100" {
		t.Errorf("Expected name '100', got '%s'", rec.Name)
	}
	if rec.Len != 4 {
		t.Errorf("Expected 4 samples, got %d", rec.Len)
	}
	if len(rec.Channels) != 2 {
		t.Fatalf("Expected 2 channels, got %d", len(rec.Channels))
	}
	if got := rec.Channel(0)[3]; got != "-0.120" {
		t.Errorf("Expected text token '-0.120' preserved, got '%s'", got)
	}
	if got := rec.Channel(1)[3]; got != "-0.080" {
		t.Errorf("Expected second channel token '-0.080', got '%s'", got)
	}
	if rec.Channel(2) != nil {
		t.Error("Expected nil for out-of-range channel")
	}
}

func TestParseSignalHeaderOnly(t *testing.T) {
	rec, err := ParseSignal("empty", strings.NewReader("'a','b'\n'c','d'\n"))
	if err != nil {
		t.Fatalf("ParseSignal failed: %v", err)
	}
	if rec.Len != 0 {
		t.Errorf("Expected 0 samples, got %d", rec.Len)
	}
}

func TestParseSignalRaggedRows(t *testing.T) {
	input := "h1\nh2\n0,1,2\n1,3\n"
	_, err := ParseSignal("bad", strings.NewReader(input))
	if !errors.Is(err, ErrMalformedRow) {
		t.Errorf("Expected ErrMalformedRow, got %v", err)
	}
}

func TestParseAnnotations(t *testing.T) {
	events, err := ParseAnnotations(strings.NewReader(sampleAnnotations))
	if err != nil {
		t.Fatalf("ParseAnnotations failed: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}

	expected := []struct {
		pos  int
		code string
	}{
		{18, "+"},
		{77, "N"},
		{370, "N"},
		{662, "V"},
	}
	for i, e := range expected {
		if events[i].Position != e.pos || events[i].Code != e.code {
			t.Errorf("Event %d: expected (%d, %s), got (%d, %s)",
				i, e.pos, e.code, events[i].Position, events[i].Code)
		}
	}
}

func TestParseAnnotationsKeepsOrder(t *testing.T) {
	input := "header\n a 500 N\n b 100 V\n"
	events, err := ParseAnnotations(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAnnotations failed: %v", err)
	}
	if events[0].Position != 500 || events[1].Position != 100 {
		t.Errorf("Expected file order to be preserved, got %+v", events)
	}
}

func TestParseAnnotationsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few fields", "header\n0:00.214 77\n"},
		{"non-numeric position", "header\n0:00.214 abc N\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnnotations(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformedRow) {
				t.Errorf("Expected ErrMalformedRow, got %v", err)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "101.csv", sampleSignal)
	writeFile(t, dir, "100.csv", sampleSignal)
	writeFile(t, dir, "100.txt", sampleAnnotations)
	writeFile(t, dir, "notes.md", "ignored")

	sources, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sources))
	}
	if sources[0].Name != "100" || sources[1].Name != "101" {
		t.Errorf("Expected sorted names [100 101], got [%s %s]", sources[0].Name, sources[1].Name)
	}
	if !sources[0].HasAnnotations() {
		t.Error("Expected 100 to have annotations")
	}
	if sources[1].HasAnnotations() {
		t.Error("Expected 101 to have no annotations")
	}
}

func TestReadSignalAndAnnotations(t *testing.T) {
	dir := t.TempDir()
	sig := writeFile(t, dir, "207.csv", sampleSignal)
	ann := writeFile(t, dir, "207.txt", sampleAnnotations)

	rec, err := ReadSignal(sig)
	if err != nil {
		t.Fatalf("ReadSignal failed: %v", err)
	}
	if rec.Name != "207" {
		t.Errorf("Expected record name '207', got '%s'", rec.Name)
	}

	events, err := ReadAnnotations(ann)
	if err != nil {
		t.Fatalf("ReadAnnotations failed: %v", err)
	}
	if len(events) != 4 {
		t.Errorf("Expected 4 events, got %d", len(events))
	}
}

func TestReadSignalNonExistent(t *testing.T) {
	if _, err := ReadSignal("nonexistent.csv"); err == nil {
		t.Error("Expected error when reading non-existent file")
	}
}
