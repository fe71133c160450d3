// Package descriptor parses validation task documents into TaskDescriptors.
//
// Task documents are markdown with loose conventions: a title heading, an
// optional purpose statement, numbered section headings, and bullet lines of
// the shape "category: description". Optional YAML frontmatter carries
// platform requirements. The parser is a tolerant grammar, not a schema
// validator: anything that does not match the expected bullet shape becomes
// a general validation point and a warning rather than an error.
package descriptor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/plugvet/plugvet/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Classifier maps a normalized category string onto a point type and weight.
// The scoring policy provides the production implementation so category
// tables stay configuration, not code.
type Classifier interface {
	ClassifyCategory(category string) (models.PointType, float64)
}

// Parser turns raw task documents into TaskDescriptors.
type Parser struct {
	classifier Classifier
}

// Option configures a Parser.
type Option func(*Parser)

// NewParser creates a Parser that classifies bullet categories with the
// given Classifier.
func NewParser(classifier Classifier, opts ...Option) *Parser {
	p := &Parser{classifier: classifier}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// numberedHeadingRe matches section headings like "1. Installation Checks"
// or "2) Runtime Behavior".
var numberedHeadingRe = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.+)$`)

// ParseFile reads and parses a task document from disk.
func (p *Parser) ParseFile(path string) (*models.TaskDescriptor, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading descriptor: %w", err)
	}
	d, warnings, err := p.Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, warnings, err
	}
	d.SourcePath = path
	return d, warnings, nil
}

// Parse parses a task document from raw bytes. The returned descriptor has
// no SourcePath; Checksum covers the raw input.
func (p *Parser) Parse(source []byte) (*models.TaskDescriptor, []Warning, error) {
	var warnings []Warning

	fm, body, err := splitFrontmatter(source)
	if err != nil {
		warnings = append(warnings, Warning{Message: "ignoring malformed frontmatter", Snippet: err.Error()})
		body = source
	}

	d := &models.TaskDescriptor{
		Requirements: fm,
	}
	sum := sha256.Sum256(source)
	d.Checksum = hex.EncodeToString(sum[:])

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(body))

	var (
		current        *models.Section
		purposeHeading bool
		sawPurpose     bool
	)

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *ast.Heading:
			txt := strings.TrimSpace(nodeText(v, body))
			if v.Level == 1 && d.Name == "" {
				d.Name = slugify(txt)
				continue
			}
			purposeHeading = false
			if m := numberedHeadingRe.FindStringSubmatch(txt); m != nil {
				d.Sections = append(d.Sections, models.Section{Title: strings.TrimSpace(m[2])})
				current = &d.Sections[len(d.Sections)-1]
				continue
			}
			current = nil
			if strings.Contains(strings.ToLower(txt), "purpose") {
				purposeHeading = true
			}

		case *ast.Paragraph:
			txt := strings.TrimSpace(nodeText(v, body))
			if txt == "" {
				continue
			}
			if purposeHeading {
				d.Purpose = joinProse(d.Purpose, txt)
				sawPurpose = true
				continue
			}
			// The first free paragraph doubles as the purpose statement when
			// no explicit Purpose heading exists.
			if !sawPurpose && d.Purpose == "" && current == nil {
				d.Purpose = txt
			}

		case *ast.List:
			if current == nil {
				// Bullets outside any numbered section are a formatting
				// irregularity, not a fatal error.
				if countListItems(v) > 0 {
					warnings = append(warnings, Warning{Message: "bullet list outside a numbered section ignored"})
				}
				continue
			}
			for li := v.FirstChild(); li != nil; li = li.NextSibling() {
				txt := strings.TrimSpace(listItemText(li, body))
				if txt == "" {
					continue
				}
				point, w := p.parsePoint(txt)
				if w != nil {
					warnings = append(warnings, *w)
				}
				current.Points = append(current.Points, point)
			}
		}
	}

	if d.Name == "" {
		return nil, warnings, &ParseError{Reason: "no title heading found"}
	}
	if len(d.Sections) == 0 {
		return nil, warnings, &ParseError{Reason: "no numbered sections found"}
	}

	for _, w := range warnings {
		slog.Debug("descriptor parse warning", "task", d.Name, "warning", w.String())
	}
	return d, warnings, nil
}

// parsePoint interprets a single bullet line. Lines shaped like
// "category: description" are classified through the rule table; anything
// else degrades to a general point carrying the whole line.
func (p *Parser) parsePoint(line string) (models.ValidationPoint, *Warning) {
	category, description, ok := splitPoint(line)
	if !ok {
		return models.ValidationPoint{
			Category:    string(models.PointGeneral),
			Description: line,
			Weight:      1,
			Type:        models.PointGeneral,
		}, &Warning{Message: "bullet does not match category: description", Snippet: line}
	}

	normalized := NormalizeCategory(category)
	ptype, weight := p.classifier.ClassifyCategory(normalized)
	return models.ValidationPoint{
		Category:    normalized,
		Description: description,
		Weight:      weight,
		Type:        ptype,
	}, nil
}

// splitFrontmatter strips a leading YAML frontmatter block and decodes it
// into Requirements.
func splitFrontmatter(content []byte) (models.Requirements, []byte, error) {
	var req models.Requirements

	s := string(content)
	if !strings.HasPrefix(s, "---") {
		return req, content, nil
	}
	rest := s[3:]
	if strings.HasPrefix(rest, "\r\n") {
		rest = rest[2:]
	} else if strings.HasPrefix(rest, "\n") {
		rest = rest[1:]
	} else {
		return req, content, nil
	}

	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return req, content, fmt.Errorf("closing frontmatter delimiter not found")
	}
	block := rest[:idx]
	body := rest[idx+4:]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}

	if err := yaml.Unmarshal([]byte(block), &req); err != nil {
		return models.Requirements{}, content, fmt.Errorf("unmarshalling frontmatter: %w", err)
	}
	return req, []byte(body), nil
}

// nodeText collects the plain text under a node, flattening soft breaks.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// listItemText returns the text of a list item's own line, excluding any
// nested sub-lists.
func listItemText(li ast.Node, source []byte) string {
	for c := li.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.TextBlock, *ast.Paragraph:
			return nodeText(c, source)
		}
	}
	return ""
}

func countListItems(list ast.Node) int {
	n := 0
	for c := list.FirstChild(); c != nil; c = c.NextSibling() {
		n++
	}
	return n
}

func joinProse(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + " " + next
}
