// Package keyboard builds reply and inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button. A non-empty URL makes it a link and the
// callback fields are ignored.
type Button struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

// Link returns a button opening url.
func Link(text, url string) Button { return Button{Text: text, URL: url} }

// Action returns a callback button routed by unique.
func Action(text, unique, data string) Button {
	return Button{Text: text, Unique: unique, Data: data}
}

func (b Button) inline() tele.InlineButton {
	if b.URL != "" {
		return tele.InlineButton{Text: b.Text, URL: b.URL}
	}
	return tele.InlineButton{Text: b.Text, Unique: b.Unique, Data: b.Data}
}

// Reply builds a resized reply keyboard, one row per slice of labels.
func Reply(rows ...[]string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{ResizeKeyboard: true}
	keys := make([][]tele.ReplyButton, len(rows))
	for i, row := range rows {
		keys[i] = make([]tele.ReplyButton, len(row))
		for j, label := range row {
			keys[i][j] = tele.ReplyButton{Text: label}
		}
	}
	m.ReplyKeyboard = keys
	return m
}

// Grid lays buttons out perRow to a row. perRow below 1 puts each button
// on its own row.
func Grid(perRow int, buttons ...Button) *tele.ReplyMarkup {
	perRow = max(perRow, 1)
	rows := make([][]tele.InlineButton, 0, (len(buttons)+perRow-1)/perRow)
	for start := 0; start < len(buttons); start += perRow {
		row := make([]tele.InlineButton, 0, perRow)
		for _, b := range buttons[start:min(start+perRow, len(buttons))] {
			row = append(row, b.inline())
		}
		rows = append(rows, row)
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

// Column puts every button on its own row.
func Column(buttons ...Button) *tele.ReplyMarkup { return Grid(1, buttons...) }

// Cancel is a single "❌ Cancel" button routed by unique.
func Cancel(unique string) *tele.ReplyMarkup {
	return Column(Action("❌ Cancel", unique, "cancel"))
}
