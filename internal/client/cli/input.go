package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// GetSimpleText prints prompt to stdout and reads a single line from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string) (string, error) {
	if _, err := fmt.Fprint(os.Stdout, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetMultiline prints prompt and reads lines until an empty line is
// entered, joining them with '\n'. Useful for note bodies.
func GetMultiline(reader *bufio.Reader, prompt string) (string, error) {
	if _, err := fmt.Fprint(os.Stdout, prompt+"\n(press Enter on an empty line to finish)\n"); err != nil {
		return "", err
	}

	var lines []string
	for {
		line, _ := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// GetTagList prompts for a comma-separated list of tag titles, splitting
// and trimming each entry. An empty line yields no tags.
func GetTagList(reader *bufio.Reader, prompt string) ([]string, error) {
	line, err := GetSimpleText(reader, prompt)
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, nil
	}
	parts := strings.Split(line, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags, nil
}
