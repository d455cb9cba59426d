// Package export records the latest search cycle and writes it as a PDF.
package export

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/hyperifyio/goferret/internal/render"
	"github.com/hyperifyio/goferret/internal/search"
)

// Block is one provider's section of a search cycle.
type Block struct {
	Provider search.Provider
	Results  []search.Result
	// Failure is set instead of Results when the provider's search failed.
	Failure *search.ErrorInfo
}

// Recorder implements the UI calls that build result blocks and keeps the
// blocks of the current cycle. Other calls only track alert state.
type Recorder struct {
	mu      sync.Mutex
	keyword string
	alert   string
	blocks  []Block
}

func (r *Recorder) Critical(msg string) { r.setAlert(msg) }
func (r *Recorder) Warning(msg string)  { r.setAlert(msg) }
func (r *Recorder) Compact()            {}
func (r *Recorder) Focus()              {}

func (r *Recorder) setAlert(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alert = msg
}

// ClearResults starts a new cycle.
func (r *Recorder) ClearResults() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = nil
}

// SetKeyword labels the current cycle.
func (r *Recorder) SetKeyword(kw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyword = kw
}

func (r *Recorder) AppendResults(p search.Provider, results []search.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, Block{Provider: p, Results: append([]search.Result(nil), results...)})
}

func (r *Recorder) AppendFailure(p search.Provider, info search.ErrorInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, Block{Provider: p, Failure: &info})
}

// Snapshot returns the keyword, alert and blocks of the current cycle.
func (r *Recorder) Snapshot() (string, string, []Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keyword, r.alert, append([]Block(nil), r.blocks...)
}

// WritePDF writes the current cycle to path.
func (r *Recorder) WritePDF(path string) error {
	kw, alert, blocks := r.Snapshot()
	return WritePDF(path, kw, alert, blocks)
}

// WritePDF lays out blocks on A4 pages: a heading per provider, then each
// result title as a link with its description and date underneath.
func WritePDF(path, keyword, alert string, blocks []Block) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	enc := charmap.Windows1252.NewEncoder()
	txt := func(s string) string { return latin(enc, s) }

	pdf.SetTitle(txt("goferret: "+keyword), false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	title := "Search results"
	if keyword != "" {
		title += ": " + keyword
	}
	pdf.CellFormat(0, 10, txt(title), "", 1, "L", false, 0, "")
	if alert != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(160, 0, 0)
		pdf.MultiCell(0, 5, txt(alert), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	for _, b := range blocks {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, txt(b.Provider.DisplayTitle()), "B", 1, "L", false, 0, "")
		if b.Failure != nil {
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(160, 0, 0)
			pdf.MultiCell(0, 5, txt(b.Failure.Message), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
			continue
		}
		if len(b.Results) == 0 {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.CellFormat(0, 6, "No results", "", 1, "L", false, 0, "")
			continue
		}
		for _, res := range b.Results {
			pdf.Ln(1)
			pdf.SetFont("Helvetica", "U", 11)
			pdf.SetTextColor(0, 0, 180)
			pdf.WriteLinkString(5, txt(strings.TrimSpace(res.Title)), res.Link)
			pdf.SetTextColor(0, 0, 0)
			pdf.Ln(5)
			pdf.SetFont("Helvetica", "", 9)
			if d := strings.Join(strings.Fields(res.Description), " "); d != "" {
				pdf.MultiCell(0, 4, txt(d), "", "L", false)
			}
			if d, ok := render.Date(res.Date); ok {
				pdf.SetTextColor(110, 110, 110)
				pdf.CellFormat(0, 4, d, "", 1, "L", false, 0, "")
				pdf.SetTextColor(0, 0, 0)
			}
		}
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// latin converts s to Windows-1252, the encoding of the PDF core fonts.
// Runes the code page lacks become '?'.
func latin(enc *encoding.Encoder, s string) string {
	var b strings.Builder
	for _, r := range s {
		out, err := enc.String(string(r))
		if err != nil {
			b.WriteByte('?')
			continue
		}
		b.WriteString(out)
	}
	return b.String()
}
