package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/talkshelf/internal/core"
)

func TestPopup(t *testing.T) {
	talk := core.Talk{Title: "Go <Fast>", Description: "Speed", Duration: 30, Level: "Advanced", Pitch: "Why"}
	state := core.PopupState{
		Talks:    []core.Talk{talk, {Title: "Other", Level: "Beginner", Duration: 15}},
		Selected: talk.Title,
		Details: &core.TalkDetails{
			Talk: talk,
			Fields: []core.DetailField{
				{Label: "Title", Value: talk.Title},
				{Label: "Pitch", Value: talk.Pitch},
			},
		},
		CustomFields: []core.CustomField{{Name: "Bio", Value: "Gopher & friend"}},
		Level:        "Advanced",
		MaxDuration:  45,
	}

	var b strings.Builder
	if err := Popup(state).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := b.String()

	for _, want := range []string{
		`Go &lt;Fast&gt;`,
		`<form class="talk selected"`,
		`data-copy="Why"`,
		`Gopher &amp; friend`,
		`<option value="Advanced" selected>`,
		`<option value="45" selected>`,
		`<input type="hidden" name="maxDuration" value="45">`,
		`id="custom-fields"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("popup html missing %q", want)
		}
	}
	if strings.Contains(html, "<Fast>") {
		t.Error("talk title was not escaped")
	}
}

func TestPopup_Empty(t *testing.T) {
	var b strings.Builder
	if err := Popup(core.PopupState{}).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := b.String()
	if !strings.Contains(html, `id="empty"`) {
		t.Error("empty state message missing")
	}
	if strings.Contains(html, `id="details"`) || strings.Contains(html, `id="custom-fields"`) {
		t.Error("details or custom fields rendered without data")
	}
}

func TestErrorAlert(t *testing.T) {
	var b strings.Builder
	if err := ErrorAlert("Bad <file>", "Try again", "FILE002").Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := b.String()
	if !strings.Contains(got, "Bad &lt;file&gt;") || !strings.Contains(got, "(Code: FILE002)") {
		t.Errorf("ErrorAlert() = %q", got)
	}
}

func TestFilterQuery(t *testing.T) {
	tests := []struct {
		level string
		max   int
		want  string
	}{
		{"", 0, "/"},
		{"Beginner", 0, "/?level=Beginner"},
		{"", 30, "/?maxDuration=30"},
		{"Advanced", 60, "/?level=Advanced&maxDuration=60"},
	}
	for _, tt := range tests {
		if got := FilterQuery(tt.level, tt.max); got != tt.want {
			t.Errorf("FilterQuery(%q, %d) = %q, want %q", tt.level, tt.max, got, tt.want)
		}
	}
}
