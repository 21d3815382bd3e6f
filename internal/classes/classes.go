package classes

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed classes.yaml
var defaultTable []byte

// Class is the runtime category of a registry object. ID is the sequential
// unique identity of a readable class (1-based); 0 means the class was never
// registered, which the registry treats as fatal.
type Class struct {
	Name string
	ID   int
}

func (c *Class) String() string {
	if c == nil {
		return "object"
	}
	return c.Name
}

// Entry is one class in the YAML table.
type Entry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Table provides lookup of registered classes by name or alias.
type Table struct {
	list   []*Class
	byName map[string]*Class
}

// Default returns the built-in class table.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded class table: %v", err))
	}
	return t
}

// Load reads a class table from a YAML file.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class table: %w", err)
	}
	t, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse class table %s: %w", path, err)
	}
	return t, nil
}

// Parse builds a table from YAML. Class IDs follow list order.
func Parse(raw []byte) (*Table, error) {
	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	t := &Table{
		list:   make([]*Class, 0, len(entries)),
		byName: make(map[string]*Class, len(entries)),
	}
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("entry %d: empty class name", i+1)
		}
		c := &Class{Name: e.Name, ID: len(t.list) + 1}
		if err := t.bind(e.Name, c); err != nil {
			return nil, err
		}
		for _, alias := range e.Aliases {
			if err := t.bind(alias, c); err != nil {
				return nil, err
			}
		}
		t.list = append(t.list, c)
	}
	return t, nil
}

func (t *Table) bind(name string, c *Class) error {
	if _, dup := t.byName[name]; dup {
		return fmt.Errorf("duplicate class name %q", name)
	}
	t.byName[name] = c
	return nil
}

// Lookup returns the class registered under name (or one of its aliases).
func (t *Table) Lookup(name string) (*Class, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// MustLookup is Lookup for names known at compile time.
func (t *Table) MustLookup(name string) *Class {
	c, ok := t.byName[name]
	if !ok {
		panic(fmt.Sprintf("class %q not registered", name))
	}
	return c
}

// Len returns the number of registered classes.
func (t *Table) Len() int {
	return len(t.list)
}

// All returns the registered classes in ID order.
func (t *Table) All() []*Class {
	return t.list
}
