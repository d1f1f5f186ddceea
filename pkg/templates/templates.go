package templates

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

// Template names
const (
	Configuration     = "configuration.py"
	Gunicorn          = "gunicorn.py"
	LocalRequirements = "local_requirements.txt"
	NetBoxService     = "netbox.service"
	NetBoxRQService   = "netbox-rq.service"
)

//go:embed files/*.tmpl
var embedded embed.FS

// Set renders the built-in templates, preferring override files found in
// its directories.
type Set struct {
	overrideDirs []string
}

// New creates a template set. Each override directory is searched in order
// for <name>.tmpl before falling back to the embedded copy.
func New(overrideDirs ...string) *Set {
	return &Set{overrideDirs: overrideDirs}
}

// GetTemplatePaths returns the override search paths for a template.
func GetTemplatePaths(dirs []string, templateName string) []string {
	filename := templateName + ".tmpl"
	paths := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		paths = append(paths, filepath.Join(dir, filename))
	}
	return paths
}

// GetTemplate returns the raw template content by name.
func (s *Set) GetTemplate(name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	for _, path := range GetTemplatePaths(s.overrideDirs, name) {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	content, err := embedded.ReadFile("files/" + name + ".tmpl")
	if err != nil {
		return "", fmt.Errorf("template file not found: %s: %w", name, err)
	}
	return string(content), nil
}

// Render executes a template with text/template semantics.
// Missing keys are errors so a typo in an override cannot render silently.
func (s *Set) Render(templateName string, data interface{}) (string, error) {
	tmplContent, err := s.GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(templateName).
		Option("missingkey=error").
		Funcs(Funcs()).
		Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

// ListTemplates returns all template names in render order.
func ListTemplates() []string {
	return []string{
		Configuration,
		Gunicorn,
		LocalRequirements,
		NetBoxService,
		NetBoxRQService,
	}
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	for _, known := range ListTemplates() {
		if name == known {
			return true
		}
	}
	return false
}

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"pystr":  PyString,
		"pybool": PyBool,
		"pylist": PyStringList,
		"pyint":  strconv.Itoa,
	}
}

// PyString renders s as a single-quoted Python string literal.
func PyString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// PyBool renders a Python boolean.
func PyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// PyStringList renders a Python list of string literals, keeping order.
func PyStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = PyString(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
