package core

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "simple rows",
			input: "a,b,c\nd,e,f",
			want:  [][]string{{"a", "b", "c"}, {"d", "e", "f"}},
		},
		{
			name:  "trailing newline adds no row",
			input: "a,b\n",
			want:  [][]string{{"a", "b"}},
		},
		{
			name:  "quoted comma",
			input: `"Talk A","Desc, with comma"`,
			want:  [][]string{{"Talk A", "Desc, with comma"}},
		},
		{
			name:  "escaped quotes",
			input: `"say ""hi""",x`,
			want:  [][]string{{`say "hi"`, "x"}},
		},
		{
			name:  "newline inside quotes",
			input: "\"line one\nline two\",x\ny,z",
			want:  [][]string{{"line one\nline two", "x"}, {"y", "z"}},
		},
		{
			name:  "crlf line endings",
			input: "a,b\r\nc,d\r\n",
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "crlf after quoted field",
			input: "\"a\",\"b\"\r\n\"c\",\"d\"",
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "carriage return inside quotes is kept",
			input: "\"a\r\nb\",c",
			want:  [][]string{{"a\r\nb", "c"}},
		},
		{
			name:  "lone carriage return is data",
			input: "a\rb,c",
			want:  [][]string{{"a\rb", "c"}},
		},
		{
			name:  "empty fields",
			input: ",,\n",
			want:  [][]string{{"", "", ""}},
		},
		{
			name:  "blank line in the middle",
			input: "a\n\nb",
			want:  [][]string{{"a"}, {""}, {"b"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "unicode passes through",
			input: "Grüße,日本語",
			want:  [][]string{{"Grüße", "日本語"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCSV(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCSV(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestSerializeCSV(t *testing.T) {
	talks := []Talk{
		{Title: "Talk A", Description: "Desc", Duration: 30, Level: "Beginner"},
		{Title: `The "Best" Talk`, Description: "x, y", Duration: 0, Level: "Advanced"},
	}

	want := `"Title","Description","Duration","Level"` + "\n" +
		`"Talk A","Desc","30","Beginner"` + "\n" +
		`"The ""Best"" Talk","x, y","0","Advanced"`

	if got := SerializeCSV(talks); got != want {
		t.Errorf("SerializeCSV() =\n%s\nwant\n%s", got, want)
	}

	if got := SerializeCSV(nil); got != `"Title","Description","Duration","Level"` {
		t.Errorf("SerializeCSV(nil) = %q, want header only", got)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	talks := []Talk{
		{Title: "Commas, everywhere", Description: "a, b, c", Duration: 45, Level: "Intermediate"},
		{Title: `Quotes "inside"`, Description: `""`, Duration: 5, Level: "Beginner"},
		{Title: "Multi\nline", Description: "first\nsecond\r\nthird", Duration: 90, Level: "Advanced"},
		{Title: "Plain", Description: "", Duration: 0, Level: ""},
	}

	rows := ParseCSV(SerializeCSV(talks))
	if len(rows) != len(talks)+1 {
		t.Fatalf("got %d rows, want %d", len(rows), len(talks)+1)
	}
	if diff := cmp.Diff(CSVHeader, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	for i, talk := range talks {
		want := []string{talk.Title, talk.Description, strconv.Itoa(talk.Duration), talk.Level}
		if diff := cmp.Diff(want, rows[i+1]); diff != "" {
			t.Errorf("row %d mismatch (-want +got):\n%s", i+1, diff)
		}
	}
}
