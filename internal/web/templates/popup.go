// Package templates renders the talkshelf HTML pages as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/talkshelf/internal/core"
)

// Levels offered by the popup level filter.
var Levels = []string{"Beginner", "Intermediate", "Advanced"}

// DurationFilters are the popup "max duration" choices in minutes.
var DurationFilters = []int{15, 30, 45, 60, 90}

const style = `body{font-family:system-ui,sans-serif;margin:1rem;max-width:42rem}
.talk{display:flex;justify-content:space-between;padding:.25rem 0;border-bottom:1px solid #eee}
.selected{font-weight:600}
.field{display:flex;gap:.5rem;align-items:baseline;margin:.25rem 0}
.field .label{min-width:7rem;color:#555}
.field .value{flex:1;white-space:pre-wrap}
.alert{border:1px solid #c33;background:#fee;padding:.5rem;margin:.5rem 0}
button{cursor:pointer}`

const copyScript = `document.addEventListener("click",function(e){
var b=e.target.closest("[data-copy]");if(!b)return;
navigator.clipboard.writeText(b.getAttribute("data-copy")).then(function(){
var t=b.textContent;b.textContent="Copied";setTimeout(function(){b.textContent=t},1000)})});`

// Popup renders the talk picker: filters, the talk list, the selected
// talk's copyable details and the custom fields.
func Popup(state core.PopupState) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.printf(`<title>talkshelf</title><style>%s</style></head><body>`, style)
		p.printf(`<h1>Talks</h1>`)

		writeFilters(p, state)

		if len(state.Talks) == 0 {
			p.printf(`<p id="empty">No talks match. Import a CSV or JSON file, or fetch from Sessionize.</p>`)
		} else {
			p.printf(`<div id="talks">`)
			for _, t := range state.Talks {
				class := "talk"
				if t.Title == state.Selected {
					class += " selected"
				}
				p.printf(`<form class="%s" method="post" action="/select">`, class)
				p.printf(`<input type="hidden" name="title" value="%s">`, esc(t.Title))
				writeFilterInputs(p, state)
				p.printf(`<span>%s</span><span>%s &middot; %d min</span>`, esc(t.Title), esc(t.Level), t.Duration)
				p.printf(`<button type="submit">Select</button></form>`)
			}
			p.printf(`</div>`)
		}

		if state.Details != nil {
			p.printf(`<section id="details"><h2>%s</h2>`, esc(state.Details.Talk.Title))
			for _, f := range state.Details.Fields {
				writeField(p, f)
			}
			p.printf(`<form method="post" action="/clear">`)
			writeFilterInputs(p, state)
			p.printf(`<button type="submit">Clear selection</button></form>`)
			p.printf(`</section>`)
		}

		if len(state.CustomFields) > 0 {
			p.printf(`<section id="custom-fields"><h2>Custom fields</h2>`)
			for _, f := range state.CustomFields {
				writeField(p, core.DetailField{Label: f.Name, Value: f.Value})
			}
			p.printf(`</section>`)
		}

		p.printf(`<script>%s</script></body></html>`, copyScript)
		return p.err
	})
}

// ErrorAlert renders an error message box.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<div class="alert" role="alert"><strong>%s</strong>`, esc(message))
		if action != "" {
			p.printf(` <span>%s</span>`, esc(action))
		}
		if code != "" {
			p.printf(` <small>(Code: %s)</small>`, esc(code))
		}
		p.printf(`</div>`)
		return p.err
	})
}

// FilterQuery builds the popup query string for a level and duration filter.
func FilterQuery(level string, maxDuration int) string {
	v := url.Values{}
	if level != "" {
		v.Set("level", level)
	}
	if maxDuration > 0 {
		v.Set("maxDuration", strconv.Itoa(maxDuration))
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}

func writeFilters(p *printer, state core.PopupState) {
	p.printf(`<form id="filters" method="get" action="/">`)
	p.printf(`<select name="level"><option value="">All levels</option>`)
	for _, l := range Levels {
		p.printf(`<option value="%s"%s>%s</option>`, esc(l), selectedAttr(strings.EqualFold(l, state.Level)), esc(l))
	}
	p.printf(`</select> <select name="maxDuration"><option value="">Any length</option>`)
	for _, d := range DurationFilters {
		p.printf(`<option value="%d"%s>&le; %d min</option>`, d, selectedAttr(d == state.MaxDuration), d)
	}
	p.printf(`</select> <button type="submit">Filter</button></form>`)
}

// writeFilterInputs carries the active filters through a form post so the
// redirect lands on the same view.
func writeFilterInputs(p *printer, state core.PopupState) {
	if state.Level != "" {
		p.printf(`<input type="hidden" name="level" value="%s">`, esc(state.Level))
	}
	if state.MaxDuration > 0 {
		p.printf(`<input type="hidden" name="maxDuration" value="%d">`, state.MaxDuration)
	}
}

func writeField(p *printer, f core.DetailField) {
	p.printf(`<div class="field"><span class="label">%s</span><span class="value">%s</span>`, esc(f.Label), esc(f.Value))
	p.printf(`<button type="button" data-copy="%s">Copy</button></div>`, esc(f.Value))
}

func selectedAttr(on bool) string {
	if on {
		return " selected"
	}
	return ""
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// printer keeps the first write error so components can write freely and
// check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
