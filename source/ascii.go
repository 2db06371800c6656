package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table is a set of equally long named columns read from a text file.
type Table struct {
	// Labels holds the column names in file order.
	Labels []string
	// Columns maps each label to its values.
	Columns map[string][]float64
	// Header holds the comment lines with their markers removed.
	Header []string
}

// Rows returns the number of values in each column.
func (t *Table) Rows() int {
	if len(t.Labels) == 0 {
		return 0
	}
	return len(t.Columns[t.Labels[0]])
}

const commentMarkers = "#;%"

// ReadASCII reads whitespace or comma separated numeric columns.
//
// Lines starting with '#', ';' or '%' are comments. The last comment line
// before the first data row names the columns when it has one word per
// column; otherwise columns are named col1, col2 and so on. A non-numeric
// line directly before the data is also accepted as the label line.
func ReadASCII(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var (
		header    []string
		candidate []string
		rows      [][]float64
		lineNo    int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.ContainsRune(commentMarkers, rune(line[0])) {
			text := strings.TrimSpace(strings.TrimLeft(line, commentMarkers))
			header = append(header, text)
			if len(rows) == 0 && !isSeparator(text) {
				candidate = splitFields(text)
			}
			continue
		}

		fields := splitFields(line)
		values, ok := parseRow(fields)
		if !ok {
			if len(rows) == 0 {
				candidate = fields
				continue
			}
			return nil, fmt.Errorf("line %d: non-numeric value in %q", lineNo, line)
		}
		if len(rows) > 0 && len(values) != len(rows[0]) {
			return nil, fmt.Errorf("line %d: expected %d columns, found %d", lineNo, len(rows[0]), len(values))
		}
		rows = append(rows, values)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	ncols := len(rows[0])
	labels := candidate
	if len(labels) != ncols || hasDuplicates(labels) {
		labels = make([]string, ncols)
		for i := range labels {
			labels[i] = "col" + strconv.Itoa(i+1)
		}
	}

	columns := make(map[string][]float64, ncols)
	for c, label := range labels {
		col := make([]float64, len(rows))
		for i, row := range rows {
			col[i] = row[c]
		}
		columns[label] = col
	}
	return &Table{Labels: labels, Columns: columns, Header: header}, nil
}

// ReadASCIIFile reads the ASCII column file at path.
func ReadASCIIFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadASCII(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func splitFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

func parseRow(fields []string) ([]float64, bool) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, len(values) > 0
}

// isSeparator reports lines such as "-----" or "/////".
func isSeparator(s string) bool {
	return s == "" || strings.Trim(s, "-/=*") == ""
}

func hasDuplicates(labels []string) bool {
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			return true
		}
		seen[l] = true
	}
	return false
}
