package tokens

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/alimgiray/gitemails/internal/models"
)

// LoadFile reads newline-delimited tokens. Blank lines and lines starting
// with '#' are ignored.
func LoadFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &models.ValidationError{Field: "token-file", Message: err.Error()}
	}
	defer file.Close()

	var tokens []string
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.ContainsAny(line, " \t") {
			return nil, &models.ValidationError{
				Field:   "token-file",
				Message: fmt.Sprintf("line %d: token must not contain whitespace", lineNo),
			}
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &models.ValidationError{Field: "token-file", Message: err.Error()}
	}

	if len(tokens) == 0 {
		return nil, &models.ValidationError{Field: "token-file", Message: fmt.Sprintf("no tokens found in %s", path)}
	}
	return tokens, nil
}
