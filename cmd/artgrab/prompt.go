package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"
)

// savePrompter asks for each file name on the terminal. Workers share one
// terminal, so prompts are serialized.
type savePrompter struct {
	mu sync.Mutex
}

func (p *savePrompter) SaveAs(suggested string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prompt := promptui.Prompt{
		Label:     "Save as",
		Default:   suggested,
		AllowEdit: true,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("file name cannot be empty")
			}
			return nil
		},
	}
	name, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("save as prompt: %w", err)
	}
	return strings.TrimSpace(name), nil
}
