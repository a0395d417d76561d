package main

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/go-encodings/encoding"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	specialStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98")).
			Padding(0, 1)

	paddingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Padding(0, 1)
)

var tableHeaders = []string{"#", "id", "token", "type", "offsets", "text", "word", "seq", "special", "attn"}

// renderEncoding renders e as a table, one row per token. texts are the input sequences, used to
// show the text covered by each token.
func renderEncoding(title string, e *encoding.Encoding, texts []string) string {
	ids, typeIDs, tokens := e.IDs(), e.TypeIDs(), e.Tokens()
	offsets, wordIDs, sequenceIDs := e.Offsets(), e.WordIDs(), e.SequenceIDs()
	special, attention := e.SpecialTokensMask(), e.AttentionMask()

	rows := make([][]string, len(ids))
	for i := range ids {
		rows[i] = []string{
			strconv.Itoa(i),
			strconv.Itoa(ids[i]),
			strconv.Quote(tokens[i]),
			strconv.Itoa(typeIDs[i]),
			"[" + strconv.Itoa(offsets[i].Start) + ", " + strconv.Itoa(offsets[i].End) + ")",
			strconv.Quote(covered(texts, sequenceIDs[i], offsets[i])),
			optional(wordIDs[i]),
			optional(sequenceIDs[i]),
			strconv.Itoa(special[i]),
			strconv.Itoa(attention[i]),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case attention[row] == 0:
				return paddingStyle
			case special[row] == 1:
				return specialStyle
			}
			return cellStyle
		})
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), t.String())
}

// covered returns the part of the input text of the given sequence covered by offsets, or "" if it
// has no origin in the text.
func covered(texts []string, sequenceID int, offsets encoding.Offsets) string {
	if sequenceID < 0 || sequenceID >= len(texts) {
		return ""
	}
	text := texts[sequenceID]
	if offsets.Start < 0 || offsets.End > len(text) || offsets.Start >= offsets.End {
		return ""
	}
	return text[offsets.Start:offsets.End]
}

func optional(value int) string {
	if value == encoding.None {
		return "-"
	}
	return strconv.Itoa(value)
}
