package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/stream"
	"github.com/kbukum/hollowfoot/version"
)

// ErrMalformed is returned for text that is not valid XDI.
var ErrMalformed = stderrors.New("xdi: malformed")

// Role classifies an XDI token.
type Role int

const (
	RoleVersion Role = iota
	RoleHeaderName
	RoleHeaderValue
	RoleUserComment
	RoleColumnLabel
	RoleDatum
)

func (r Role) String() string {
	switch r {
	case RoleVersion:
		return "VERSION"
	case RoleHeaderName:
		return "HEADER_NAME"
	case RoleHeaderValue:
		return "HEADER_VALUE"
	case RoleUserComment:
		return "USER_COMMENT"
	case RoleColumnLabel:
		return "COLUMN_LABEL"
	case RoleDatum:
		return "DATUM"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Token is one lexical unit of an XDI file.
type Token struct {
	Value string
	Role  Role
}

// Field is a name/value pair that keeps file order.
type Field struct {
	Name  string
	Value string
}

// Document is a parsed XDI file.
type Document struct {
	// Version is the XDI version, e.g. "1.0".
	Version string
	// Versions lists the other package/version specifiers.
	Versions []Field
	Headers  []Field
	Comment  string
	// Labels holds the column names; the first is the coordinate.
	Labels  []string
	Columns map[string][]float64
}

// Header returns the value of the named header field.
func (d *Document) Header(name string) (string, bool) {
	for _, f := range d.Headers {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// SetVersion adds or replaces a package version specifier.
func (d *Document) SetVersion(pkg, ver string) {
	for i, f := range d.Versions {
		if f.Name == pkg {
			d.Versions[i].Value = ver
			return
		}
	}
	d.Versions = append(d.Versions, Field{Name: pkg, Value: ver})
}

var (
	fieldEndPattern    = regexp.MustCompile(`^#\s*///+\s*`)
	headerEndPattern   = regexp.MustCompile(`^#\s*---+\s*`)
	versionPattern     = regexp.MustCompile(`^#\s*(XDI/[^ \t]+)((?:[ \t]+[^ \t/]+/[^ \t/]+)*)\s*`)
	headerPattern      = regexp.MustCompile(`^#\s*([^:]+):(.+)`)
	userCommentPattern = regexp.MustCompile(`^#\s*(.*)`)
	numberPattern      = regexp.MustCompile(`^[-+_0-9.eE]+$`)
)

type section int

const (
	sectionVersion section = iota
	sectionHeader
	sectionComments
	sectionData
)

// Tokenize lexes XDI text lazily. A line that does not fit the current
// section ends the stream with an ErrMalformed error.
func Tokenize(text string) *stream.Stream[Token] {
	lines := strings.Split(text, "\n")
	return stream.FromFunc(func(_ context.Context) stream.Iterator[Token] {
		return &tokenIter{lines: lines}
	})
}

type tokenIter struct {
	lines   []string
	pos     int
	section section
	pending []Token
}

func (it *tokenIter) Next(ctx context.Context) (Token, bool, error) {
	for len(it.pending) == 0 {
		if it.pos >= len(it.lines) {
			return Token{}, false, nil
		}
		if err := ctx.Err(); err != nil {
			return Token{}, false, err
		}
		line := strings.TrimRight(it.lines[it.pos], "\r")
		it.pos++
		toks, err := it.lex(line)
		if err != nil {
			return Token{}, false, fmt.Errorf("%w: line %d: %q", ErrMalformed, it.pos, line)
		}
		it.pending = toks
	}
	tok := it.pending[0]
	it.pending = it.pending[1:]
	return tok, true, nil
}

func (it *tokenIter) Close() error { return nil }

func (it *tokenIter) lex(line string) ([]Token, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	switch {
	case fieldEndPattern.MatchString(line):
		it.section = sectionComments
		return nil, nil
	case headerEndPattern.MatchString(line):
		it.section = sectionData
		return nil, nil
	}

	switch it.section {
	case sectionVersion:
		m := versionPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, ErrMalformed
		}
		it.section = sectionHeader
		toks := []Token{{Value: m[1], Role: RoleVersion}}
		for _, v := range strings.Fields(m[2]) {
			toks = append(toks, Token{Value: v, Role: RoleVersion})
		}
		return toks, nil
	case sectionHeader:
		m := headerPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, ErrMalformed
		}
		return []Token{
			{Value: strings.TrimSpace(m[1]), Role: RoleHeaderName},
			{Value: strings.TrimSpace(m[2]), Role: RoleHeaderValue},
		}, nil
	case sectionComments:
		m := userCommentPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, ErrMalformed
		}
		return []Token{{Value: m[1], Role: RoleUserComment}}, nil
	default:
		if strings.HasPrefix(line, "#") {
			return fieldTokens(strings.TrimLeft(line, "#"), RoleColumnLabel), nil
		}
		return fieldTokens(line, RoleDatum), nil
	}
}

func fieldTokens(s string, role Role) []Token {
	words := strings.Fields(s)
	toks := make([]Token, len(words))
	for i, w := range words {
		toks[i] = Token{Value: w, Role: role}
	}
	return toks
}

// Parse builds a Document from a token stream. The first token must be the
// XDI version. Data values are assigned to the labels round-robin; values
// that are not numbers become NaN.
func Parse(ctx context.Context, tokens *stream.Stream[Token]) (*Document, error) {
	it := tokens.Iter(ctx)
	defer it.Close()

	first, ok, err := it.Next(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || first.Role != RoleVersion || !strings.HasPrefix(first.Value, "XDI/") {
		return nil, fmt.Errorf("%w: invalid version token %q", ErrMalformed, first.Value)
	}
	doc := &Document{Version: strings.TrimPrefix(first.Value, "XDI/")}

	var (
		comments []string
		data     []float64
	)
	for {
		tok, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch tok.Role {
		case RoleVersion:
			pkg, ver, found := strings.Cut(tok.Value, "/")
			if !found {
				return nil, fmt.Errorf("%w: invalid version token %q", ErrMalformed, tok.Value)
			}
			doc.SetVersion(pkg, ver)
		case RoleHeaderName:
			val, ok, err := it.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !ok || val.Role != RoleHeaderValue {
				return nil, fmt.Errorf("%w: header %q has no value", ErrMalformed, tok.Value)
			}
			doc.Headers = append(doc.Headers, Field{Name: tok.Value, Value: val.Value})
		case RoleUserComment:
			comments = append(comments, tok.Value)
		case RoleColumnLabel:
			doc.Labels = append(doc.Labels, tok.Value)
		case RoleDatum:
			data = append(data, asNumber(tok.Value))
		default:
			return nil, fmt.Errorf("%w: unexpected %s token %q", ErrMalformed, tok.Role, tok.Value)
		}
	}
	doc.Comment = strings.Trim(strings.Join(comments, "\n"), "\n")

	n := len(doc.Labels)
	if n == 0 {
		if len(data) > 0 {
			return nil, fmt.Errorf("%w: %d values without column labels", ErrMalformed, len(data))
		}
		return doc, nil
	}
	if len(data)%n != 0 {
		return nil, fmt.Errorf("%w: %d values do not fill %d columns", ErrMalformed, len(data), n)
	}
	if hasDuplicates(doc.Labels) {
		return nil, fmt.Errorf("%w: duplicate column labels %v", ErrMalformed, doc.Labels)
	}
	rows := len(data) / n
	doc.Columns = make(map[string][]float64, n)
	for c, label := range doc.Labels {
		col := make([]float64, rows)
		for r := range col {
			col[r] = data[r*n+c]
		}
		doc.Columns[label] = col
	}
	return doc, nil
}

func asNumber(s string) float64 {
	if !numberPattern.MatchString(s) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// LoadXDI tokenizes and parses XDI text.
func LoadXDI(ctx context.Context, text string) (*Document, error) {
	return Parse(ctx, Tokenize(text))
}

// LoadXDIFile reads and parses the XDI file at path.
func LoadXDIFile(ctx context.Context, path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := LoadXDI(ctx, string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Dump renders doc as XDI text. The version line always carries a
// hollowfoot/<version> specifier. Columns must all have the same length.
func Dump(doc *Document) (string, error) {
	labels := doc.Labels
	if len(labels) == 0 {
		labels = make([]string, 0, len(doc.Columns))
		for name := range doc.Columns {
			labels = append(labels, name)
		}
		sort.Strings(labels)
	}
	rows := -1
	for _, label := range labels {
		col, ok := doc.Columns[label]
		if !ok {
			return "", fmt.Errorf("xdi: no data for column %q", label)
		}
		if rows >= 0 && len(col) != rows {
			return "", fmt.Errorf("xdi: column %q has %d values, expected %d", label, len(col), rows)
		}
		rows = len(col)
	}

	xdiVersion := doc.Version
	if xdiVersion == "" {
		xdiVersion = "1.0"
	}
	stamped := &Document{Versions: slices.Clone(doc.Versions)}
	pkg, ver, _ := strings.Cut(version.Specifier(), "/")
	stamped.SetVersion(pkg, ver)

	var b strings.Builder
	b.WriteString("# XDI/" + xdiVersion)
	for _, v := range stamped.Versions {
		b.WriteString(" " + v.Name + "/" + v.Value)
	}
	b.WriteString("\n")
	for _, h := range doc.Headers {
		fmt.Fprintf(&b, "# %s: %s\n", h.Name, h.Value)
	}
	if comment := strings.TrimSpace(doc.Comment); comment != "" {
		b.WriteString("# /////\n")
		for _, line := range strings.Split(comment, "\n") {
			b.WriteString("# " + line + "\n")
		}
	}
	b.WriteString("# -----\n")
	b.WriteString("# " + strings.Join(labels, " ") + "\n")
	row := make([]string, len(labels))
	for r := 0; r < rows; r++ {
		for c, label := range labels {
			row[c] = strconv.FormatFloat(doc.Columns[label][r], 'g', -1, 64)
		}
		b.WriteString("  " + strings.Join(row, "\t") + "\n")
	}
	return b.String(), nil
}

// Group attribute keys written by Document.Group.
const (
	AttrXDIVersion  = "xdi_version"
	AttrVersions    = "versions"
	AttrHeader      = "header"
	AttrUserComment = "user_comment"
	AttrColumns     = "columns"
	AttrCoordinate  = "coordinate"
)

// Group converts the document into a dataset Group. Header fields and
// versions become map attributes; column order is kept in AttrColumns.
func (d *Document) Group() dataset.Group {
	attrs := map[string]any{AttrXDIVersion: d.Version}
	if len(d.Versions) > 0 {
		attrs[AttrVersions] = fieldMap(d.Versions)
	}
	if len(d.Headers) > 0 {
		attrs[AttrHeader] = fieldMap(d.Headers)
	}
	if d.Comment != "" {
		attrs[AttrUserComment] = d.Comment
	}
	if len(d.Labels) > 0 {
		attrs[AttrColumns] = slices.Clone(d.Labels)
		attrs[AttrCoordinate] = d.Labels[0]
	}
	return dataset.NewGroup(d.Columns, attrs)
}

// DocumentFromGroup builds a Document from a Group. The coordinate column
// comes first; arrays whose length differs from it are left out.
func DocumentFromGroup(g dataset.Group) *Document {
	doc := &Document{Version: "1.0", Columns: make(map[string][]float64)}
	if v, ok := g.Attr(AttrXDIVersion); ok {
		if s, ok := v.(string); ok && s != "" {
			doc.Version = s
		}
	}
	if m, ok := attrFields(g, AttrVersions); ok {
		doc.Versions = m
	}
	if m, ok := attrFields(g, AttrHeader); ok {
		doc.Headers = m
	}
	if v, ok := g.Attr(AttrUserComment); ok {
		doc.Comment, _ = v.(string)
	}

	order := g.ArrayNames()
	if v, ok := g.Attr(AttrColumns); ok {
		if cols, ok := v.([]string); ok {
			order = append(slices.Clone(cols), order...)
		}
	}
	coord := coordinateOf(g, order)
	if coord == "" {
		return doc
	}
	n := g.Len(coord)
	for _, name := range append([]string{coord}, order...) {
		if slices.Contains(doc.Labels, name) || g.Len(name) != n {
			continue
		}
		arr, _ := g.Array(name)
		doc.Labels = append(doc.Labels, name)
		doc.Columns[name] = arr
	}
	return doc
}

func coordinateOf(g dataset.Group, order []string) string {
	if v, ok := g.Attr(AttrCoordinate); ok {
		if s, ok := v.(string); ok && g.Has(s) {
			return s
		}
	}
	if g.Has("energy") {
		return "energy"
	}
	for _, name := range order {
		if g.Has(name) {
			return name
		}
	}
	return ""
}

func fieldMap(fields []Field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}

func attrFields(g dataset.Group, key string) ([]Field, bool) {
	v, ok := g.Attr(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]string)
	if !ok {
		return nil, false
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	fields := make([]Field, len(names))
	for i, k := range names {
		fields[i] = Field{Name: k, Value: m[k]}
	}
	return fields, true
}
