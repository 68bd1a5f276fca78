package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/encoding/charmap"
)

// US Letter in points, measured from the top-left corner.
const (
	pageHeight   = 792.0
	marginLeft   = 50.0
	marginTop    = 50.0
	marginBottom = 50.0

	headerGap  = 30.0 // header baseline to first block
	linePitch  = 15.0
	blockGap   = 30.0 // last line of a block to the next block
	blockLines = 4

	documentTitle = "Task Time Spent Report"

	// Embedded for text Helvetica's cp1252 encoding cannot carry.
	unicodeFamily = "GoUnicode"
)

type fontFace int

const (
	faceBody fontFace = iota
	faceHeader
)

// line is a single string placed on a page, at baseline y from the top.
type line struct {
	y    float64
	face fontFace
	text string
}

type page struct {
	lines []line
}

// layoutDocument places the header and one block per row onto pages. A block
// moves to a fresh page when its last line would fall inside the bottom margin,
// so continuation pages hold nine blocks like the first.
func layoutDocument(rows []Row) []page {
	pages := []page{{lines: []line{{y: marginTop, face: faceHeader, text: documentTitle}}}}
	y := marginTop + headerGap
	limit := pageHeight - marginBottom
	blockHeight := linePitch * (blockLines - 1)

	for _, r := range rows {
		if y+blockHeight > limit {
			pages = append(pages, page{})
			y = marginTop
		}
		cur := &pages[len(pages)-1]
		for i, text := range blockText(r) {
			cur.lines = append(cur.lines, line{y: y + float64(i)*linePitch, face: faceBody, text: text})
		}
		y += blockHeight + blockGap
	}
	return pages
}

func blockText(r Row) []string {
	user := "none"
	if r.UserID != nil {
		user = strconv.FormatInt(*r.UserID, 10)
	}
	return []string{
		"Task ID: " + strconv.FormatInt(r.TaskID, 10),
		"Title: " + r.Title,
		"Time Spent: " + r.TimeSpent,
		"User ID: " + user,
	}
}

// RenderDocument lays rows out on US Letter pages and encodes them as PDF.
// No rows produce a single page carrying only the header. Lines are set in
// Helvetica; a line outside cp1252 switches to the embedded Go fonts. Those
// cover Latin, Greek and Cyrillic scripts but not CJK.
func RenderDocument(rows []Row) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(documentTitle, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	unicodeLoaded := false

	for _, p := range layoutDocument(rows) {
		pdf.AddPage()
		for _, l := range p.lines {
			style, size := "", 12.0
			if l.face == faceHeader {
				style, size = "B", 14.0
			}
			text := l.text
			if fitsCP1252(text) {
				pdf.SetFont("Helvetica", style, size)
				text = tr(text)
			} else {
				if !unicodeLoaded {
					pdf.AddUTF8FontFromBytes(unicodeFamily, "", goregular.TTF)
					pdf.AddUTF8FontFromBytes(unicodeFamily, "B", gobold.TTF)
					unicodeLoaded = true
				}
				pdf.SetFont(unicodeFamily, style, size)
			}
			pdf.Text(marginLeft, l.y, text)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

// fitsCP1252 reports whether s can be set in a core PDF font without loss.
func fitsCP1252(s string) bool {
	_, err := charmap.Windows1252.NewEncoder().String(s)
	return err == nil
}
