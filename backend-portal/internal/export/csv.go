package export

import (
	"strings"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Quote wraps field in double quotes, doubling embedded quotes.
// Line breaks become spaces so every record stays on one line.
func Quote(field string) string {
	field = lineBreaks.Replace(field)
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// Render joins the header and rows into a CSV document. Rows are separated by
// "\n" with no trailing newline, so N rows always produce N+1 lines.
func Render(header []string, rows [][]string) string {
	var b strings.Builder
	writeRow(&b, header)
	for _, row := range rows {
		b.WriteByte('\n')
		writeRow(&b, row)
	}
	return b.String()
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Quote(f))
	}
}
