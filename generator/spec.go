package generator

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// DefaultModule is the import path prefix of the client and transport packages.
const DefaultModule = "mini-jsonrpc"

// Spec describes one generated client.
type Spec struct {
	Package string   `yaml:"package"`
	Client  string   `yaml:"client"`
	Module  string   `yaml:"module,omitempty"`
	Imports []string `yaml:"imports,omitempty"` // extra imports needed by param or return types
	Methods []Method `yaml:"methods"`
}

// Method describes one remote method. Wire defaults to Name with a lower-case first letter.
// An empty Returns generates an error-only method.
type Method struct {
	Name    string  `yaml:"name"`
	Wire    string  `yaml:"wire,omitempty"`
	Doc     string  `yaml:"doc,omitempty"`
	Params  []Param `yaml:"params,omitempty"`
	Returns string  `yaml:"returns,omitempty"`
}

type Param struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Names used by the generated method bodies.
var reservedParams = map[string]bool{
	"ctx":       true,
	"c":         true,
	"client":    true,
	"transport": true,
	"context":   true,
}

// LoadSpec reads a YAML client specification.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSpec(data)
}

func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// WireName returns the name sent in the request's "method" member.
func (m Method) WireName() string {
	if m.Wire != "" {
		return m.Wire
	}
	r, size := utf8.DecodeRuneInString(m.Name)
	return string(unicode.ToLower(r)) + m.Name[size:]
}

func (s *Spec) Validate() error {
	if !token.IsIdentifier(s.Package) {
		return fmt.Errorf("spec: invalid package name %q", s.Package)
	}
	if !token.IsIdentifier(s.Client) || !token.IsExported(s.Client) {
		return fmt.Errorf("spec: client name %q must be an exported identifier", s.Client)
	}

	seen := make(map[string]bool, len(s.Methods))
	for _, m := range s.Methods {
		if !token.IsIdentifier(m.Name) || !token.IsExported(m.Name) {
			return fmt.Errorf("spec: method name %q must be an exported identifier", m.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("spec: duplicate method %s", m.Name)
		}
		seen[m.Name] = true
		switch m.Name {
		case "Close", "Transport", "LastID", "Client":
			return fmt.Errorf("spec: method name %s collides with the embedded client", m.Name)
		}

		params := make(map[string]bool, len(m.Params))
		for _, p := range m.Params {
			if !token.IsIdentifier(p.Name) || p.Name == "_" {
				return fmt.Errorf("spec: %s: invalid param name %q", m.Name, p.Name)
			}
			if reservedParams[p.Name] {
				return fmt.Errorf("spec: %s: param name %q is reserved", m.Name, p.Name)
			}
			if params[p.Name] {
				return fmt.Errorf("spec: %s: duplicate param %s", m.Name, p.Name)
			}
			params[p.Name] = true
			if err := validType(p.Type); err != nil {
				return fmt.Errorf("spec: %s: param %s: %w", m.Name, p.Name, err)
			}
		}
		if m.Returns != "" {
			if err := validType(m.Returns); err != nil {
				return fmt.Errorf("spec: %s: return type: %w", m.Name, err)
			}
		}
	}
	return nil
}

func validType(expr string) error {
	if expr == "" {
		return fmt.Errorf("missing type")
	}
	if _, err := parser.ParseExpr(expr); err != nil {
		return fmt.Errorf("invalid type %q: %w", expr, err)
	}
	return nil
}
