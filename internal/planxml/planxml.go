// Package planxml parses plan-definition XML exports into field flags.
//
// Two node shapes are recognized anywhere in the tree:
//
//	<LinkName value="Field" selected="0|1" insert="0|1">text</LinkName>
//	<PlanData FieldName="Field">text</PlanData>
//
// A LinkName node is an explicit flag record; a PlanData node's mere presence
// implies selection. When both shapes reference the same field the explicit
// record wins, backfilling free text from the PlanData node if it had none.
package planxml

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrMalformed is returned when a plan document cannot be parsed at all.
// Callers decide whether to skip the plan or abort; the parser never
// swallows structural failures.
var ErrMalformed = eris.New("planxml: malformed document")

// FieldFlag is one parsed indicator from a plan document. Immutable after
// parse; a field identifier maps to at most one FieldFlag per plan.
type FieldFlag struct {
	Selected bool
	Insert   bool
	Text     string
}

// FlagSet maps field identifier to its parsed flag.
type FlagSet map[string]FieldFlag

// Text returns the trimmed free text for a field, or "" when absent.
func (fs FlagSet) Text(name string) string {
	return strings.TrimSpace(fs[name].Text)
}

// IsSelected reports whether the named field was affirmatively chosen.
func (fs FlagSet) IsSelected(name string) bool {
	return fs[name].Selected
}

// Document is one parsed plan export.
type Document struct {
	Flags       FlagSet
	ProjectName string // <ProjectName> body, if present
}

// ClientID returns the plan's reporting identifier, or "" when the export
// carries none.
func (d *Document) ClientID() string {
	return d.Flags.Text("ReportingID")
}

// FriendlyName returns a label for the plan column: the first adopting
// employer name, falling back to the export's project name.
func (d *Document) FriendlyName() string {
	if n := d.Flags.Text("1stAdoptERName"); n != "" {
		return n
	}
	return strings.TrimSpace(d.ProjectName)
}

// Label composes the column header for this plan: "name [clientID]" when
// both are known, else whichever exists, else the given fallback.
func (d *Document) Label(fallback string) string {
	name, id := d.FriendlyName(), d.ClientID()
	switch {
	case name != "" && id != "":
		return name + " [" + id + "]"
	case name != "":
		return name
	case id != "":
		return id
	default:
		return fallback
	}
}

// ParseFile parses a plan XML export from disk.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "planxml: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	doc, err := Parse(f)
	if err != nil {
		return nil, eris.Wrapf(err, "planxml: parse %s", path)
	}
	return doc, nil
}

// Parse scans a plan document for flag nodes. Malformed indicator attributes
// default to unselected rather than failing; an unparsable document returns
// an error wrapping ErrMalformed.
func Parse(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "planxml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	doc := &Document{Flags: make(FlagSet)}
	sawRoot := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(ErrMalformed, err.Error())
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true

		switch se.Name.Local {
		case "LinkName":
			name, flag, ok := decodeLinkName(decoder, se)
			if ok {
				// Last explicit record wins outright.
				doc.Flags[name] = flag
			}
		case "PlanData":
			name, text, ok := decodePlanData(decoder, se)
			if !ok {
				continue
			}
			if prev, exists := doc.Flags[name]; exists {
				// Explicit flag record wins; backfill missing text only.
				if text != "" && strings.TrimSpace(prev.Text) == "" {
					prev.Text = text
					doc.Flags[name] = prev
				}
				continue
			}
			// Presence implies selection; insert unknown for this shape.
			doc.Flags[name] = FieldFlag{Selected: true, Text: text}
		case "ProjectName":
			if doc.ProjectName == "" {
				doc.ProjectName = elementText(decoder, se.Name.Local)
			}
		}
	}

	if !sawRoot {
		return nil, eris.Wrap(ErrMalformed, "no XML content")
	}
	return doc, nil
}

func decodeLinkName(decoder *xml.Decoder, se xml.StartElement) (string, FieldFlag, bool) {
	var name string
	flag := FieldFlag{}
	for _, attr := range se.Attr {
		switch attr.Name.Local {
		case "value":
			name = strings.TrimSpace(attr.Value)
		case "selected":
			flag.Selected = attrBool(attr.Value)
		case "insert":
			flag.Insert = attrBool(attr.Value)
		}
	}
	flag.Text = elementText(decoder, se.Name.Local)
	if name == "" {
		return "", FieldFlag{}, false
	}
	return name, flag, true
}

func decodePlanData(decoder *xml.Decoder, se xml.StartElement) (string, string, bool) {
	var name string
	for _, attr := range se.Attr {
		if attr.Name.Local == "FieldName" {
			name = strings.TrimSpace(attr.Value)
		}
	}
	text := elementText(decoder, se.Name.Local)
	if name == "" {
		return "", "", false
	}
	return name, text, true
}

// attrBool parses a 0/1 indicator attribute; non-numeric values default to 0.
func attrBool(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return n == 1
}

// elementText consumes tokens up to the matching end element, concatenating
// character data. Nested elements' text is included in document order.
func elementText(decoder *xml.Decoder, local string) string {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			_ = t
		case xml.CharData:
			b.Write(t)
		}
	}
	return strings.TrimSpace(b.String())
}
