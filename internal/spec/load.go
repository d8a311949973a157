package spec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/bowtie/internal/smt"
)

var validate = validator.New()

// Load reads a model from a YAML file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec %s: %w", path, err)
	}
	m, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("spec %s: %w", path, err)
	}
	return m, nil
}

// Decode reads and validates a model.
func Decode(r io.Reader) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	if _, err := smt.ParseAll(m.Theory); err != nil {
		return nil, fmt.Errorf("theory: %w", err)
	}
	for _, p := range m.Predicates {
		if _, err := smt.Parse(p); err != nil {
			return nil, fmt.Errorf("predicate %q: %w", p, err)
		}
	}
	return &m, nil
}

// LoadPredicates reads one predicate per line. Blank lines and lines
// starting with ';' are skipped.
func LoadPredicates(path string) ([]smt.Expr, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read predicates %s: %w", path, err)
	}
	defer f.Close()

	var out []smt.Expr
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}
		e, err := smt.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read predicates %s: %w", path, err)
	}
	return out, nil
}
