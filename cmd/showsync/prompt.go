package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mmcdole/showsync/internal/tui/styles"
)

// prompter reads answers from stdin, remembering the first error
type prompter struct {
	reader *bufio.Reader
	err    error
}

func newPrompter() *prompter {
	return &prompter{reader: bufio.NewReader(os.Stdin)}
}

// ask prompts for a value, keeping current on empty input
func (p *prompter) ask(label, current string) string {
	if p.err != nil {
		return current
	}
	if current != "" {
		fmt.Printf("%s [%s]: ", label, styles.DimStyle.Render("keep"))
	} else {
		fmt.Printf("%s: ", label)
	}
	input, err := p.reader.ReadString('\n')
	if err != nil {
		p.err = fmt.Errorf("failed to read input: %w", err)
		return current
	}
	if v := strings.TrimSpace(input); v != "" {
		return v
	}
	return current
}
