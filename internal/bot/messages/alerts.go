package messages

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var clientLine = regexp.MustCompile(`(?m)^Client: .*\((\d+)\)\s*$`)

// ClientLine names the customer an operator alert is about. Operators reply
// to the alert and ClientIDFromAlert recovers who to answer.
func ClientLine(username *string, telegramID int64) string {
	handle := "sans pseudo"
	if username != nil && strings.TrimSpace(*username) != "" {
		handle = "@" + html.EscapeString(*username)
	}
	return fmt.Sprintf("Client: %s (%d)", handle, telegramID)
}

// ClientIDFromAlert reads the customer id back from an alert's plain text.
func ClientIDFromAlert(text string) (int64, bool) {
	m := clientLine.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
