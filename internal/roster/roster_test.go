package roster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	input := "\ufeff001,Alice,研发部\n002,Bob\nbroken\n003,,销售部\n004,Charlie\n002,Bob again\n"
	participants, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if len(participants) != 4 {
		t.Fatalf("Expected 4 parsed rows, got %d: %+v", len(participants), participants)
	}
	if participants[0].ID != "001" || participants[0].Dept != "研发部" {
		t.Errorf("Expected BOM stripped and dept kept, got %+v", participants[0])
	}

	r := New(participants)
	if r.Len() != 3 {
		t.Errorf("Expected duplicates dropped, got %d", r.Len())
	}
}

func TestParseCSV_SkipsHeader(t *testing.T) {
	for _, input := range []string{
		"id,name,dept\n001,Alice,HR\n",
		"\ufeff编号,姓名\n001,Alice\n",
		"ID, Name\n001,Alice\n",
	} {
		participants, err := ParseCSV(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if len(participants) != 1 || participants[0].ID != "001" {
			t.Errorf("Expected only Alice from %q, got %+v", input, participants)
		}
	}

	// A header is only recognised on the first line.
	participants, _ := ParseCSV(strings.NewReader("001,Alice\nid,name\n"))
	if len(participants) != 2 {
		t.Errorf("Expected later rows kept as data, got %+v", participants)
	}
}

func TestLoad(t *testing.T) {
	t.Run("Test JSON roster", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "participants.json")
		content := `[{"id":"001","name":"Alice","dept":"HR"},{"id":"002","name":"Bob"}]`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		r := Load(path)
		if r.Len() != 2 {
			t.Fatalf("Expected 2 participants, got %d", r.Len())
		}
		if got := r.Participants()[0]; got.Dept != "HR" {
			t.Errorf("Unexpected participant: %+v", got)
		}
	})

	t.Run("Test missing file gives an empty roster", func(t *testing.T) {
		r := Load(filepath.Join(t.TempDir(), "nope.json"))
		if r.Len() != 0 {
			t.Errorf("Expected empty roster, got %d", r.Len())
		}
	})

	t.Run("Test malformed file gives an empty roster", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "participants.json")
		os.WriteFile(path, []byte("{not json"), 0644)
		if r := Load(path); r.Len() != 0 {
			t.Errorf("Expected empty roster, got %d", r.Len())
		}
	})

	t.Run("Test participants are copied", func(t *testing.T) {
		r, _ := ParseCSV(strings.NewReader("001,Alice\n"))
		roster := New(r)
		list := roster.Participants()
		list[0].Name = "Mallory"
		if roster.Participants()[0].Name != "Alice" {
			t.Error("Expected the roster to be unaffected by caller edits")
		}
	})
}
