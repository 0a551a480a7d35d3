// Package cli holds shared terminal output helpers for the non-TUI
// commands.
package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/buger/goterm"
	"github.com/fatih/color"
)

var (
	userInputColor = color.New(color.FgWhite)
	aiOutputColor  = color.New(color.FgCyan)
	titleColor     = color.New(color.FgMagenta, color.Bold)
	separatorColor = color.New(color.FgHiBlack)
	noticeColor    = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)

	width = goterm.Width()
)

// Separator printed to cli.
func Separator() {
	separator := strings.Repeat("-", width)
	separatorColor.Println(separator)
}

// Title printed to cli.
func Title(text string, args ...any) {
	title := "      " + fmt.Sprintf(text, args...) + "      "
	leftWidth := (width - len(title)) / 2
	if leftWidth < 0 {
		leftWidth = 0
	}
	separator1 := strings.Repeat("-", leftWidth)
	rightWidth := width - len(title) - len(separator1)
	if rightWidth < 0 {
		rightWidth = 0
	}
	separator2 := strings.Repeat("-", rightWidth)
	titleColor.Println(separator1 + title + separator2)
}

// UserInput printed to cli.
func UserInput(text string, args ...any) {
	userInputColor.Printf(text, args...)
}

// AIOutput printed to cli.
func AIOutput(text string, args ...any) {
	text = strings.ReplaceAll(text, "%", "%%")
	aiOutputColor.Printf(text, args...)
}

// Notice printed to cli.
func Notice(text string, args ...any) {
	noticeColor.Printf(text+"\n", args...)
}

// Error printed to cli.
func Error(text string, args ...any) {
	errorColor.Printf(text+"\n", args...)
}

// PromptConfirmation asks a yes/no question, defaulting to no.
func PromptConfirmation(message string) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{Message: message}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
