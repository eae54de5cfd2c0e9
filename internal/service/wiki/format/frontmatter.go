package format

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter is the YAML header of imported and exported page files.
type FrontMatter struct {
	Path     string   `yaml:"path,omitempty"`
	Revision string   `yaml:"revision,omitempty"`
	Author   string   `yaml:"author,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

var delimiter = []byte("---")

// ParseFrontMatter splits an optional YAML header from body. Content that
// does not start with "---" has no front matter and is returned unchanged.
//
// Expected format:
//
//	---
//	path: /projects/alpha
//	tags: [plan]
//	---
//	# Markdown content here
func ParseFrontMatter(content []byte) (*FrontMatter, string, error) {
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return nil, string(content), nil
	}

	lines := bytes.Split(content, []byte("\n"))
	closing := 0
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), delimiter) {
			closing = i
			break
		}
	}
	if closing == 0 {
		return nil, "", fmt.Errorf("missing closing front matter delimiter '---'")
	}

	var fm FrontMatter
	if err := yaml.Unmarshal(bytes.Join(lines[1:closing], []byte("\n")), &fm); err != nil {
		return nil, "", fmt.Errorf("parse YAML front matter: %w", err)
	}
	fm.Path = strings.TrimSpace(fm.Path)

	return &fm, string(bytes.Join(lines[closing+1:], []byte("\n"))), nil
}

// RenderFrontMatter prefixes body with fm as a YAML header.
func RenderFrontMatter(fm FrontMatter, body string) (string, error) {
	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("render front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n")
	b.WriteString(body)
	return b.String(), nil
}
