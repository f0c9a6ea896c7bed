package shell

import (
	"fmt"
	"strings"
)

// promptLine prints label and reads one trimmed line. It reports false at end of input.
func (s *Shell) promptLine(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// confirm asks a yes/no question. Only y or yes confirms.
func (s *Shell) confirm(question string) bool {
	answer, ok := s.promptLine(question + " [y/N]: ")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}
