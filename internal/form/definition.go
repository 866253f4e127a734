// internal/form/definition.go
//
// Lead forms: YAML definition loader.
//
// Context
//   Each lead form (contact, buyer, seller) is declared in a YAML file under
//   defs/, embedded into the binary.  A definition names the form, the table
//   its rows land in, every field with its validation kind, and the actions
//   to run once a lead is stored.  Validation, the submitter, and the
//   GET /api/forms/{id} endpoint all read from the same Registry so the
//   front end, the validator, and the database agree on one field list.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → FieldDef / OptionDef /
//      ActionDef.
//   •  ParseFormDef decodes one document and checks structural rules.
//   •  Builtin returns the registry of embedded forms, parsed once.
//   •  LoadDir layers override files from disk on top, same precedence as
//      the built-ins but later wins.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/leadsite/internal/transform"
)

//go:embed defs/*.yaml
var defsFS embed.FS

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Field kinds.  Each maps to one validator in fields.go.
const (
	KindName        = "name"
	KindEmail       = "email"
	KindPhone       = "phone"
	KindMessage     = "message"
	KindCompany     = "company"
	KindSelect      = "select"
	KindMultiSelect = "multiselect"
	KindText        = "text"
)

var knownKinds = map[string]bool{
	KindName: true, KindEmail: true, KindPhone: true, KindMessage: true,
	KindCompany: true, KindSelect: true, KindMultiSelect: true, KindText: true,
}

// FormDef represents one lead form.
type FormDef struct {
	ID      string      `yaml:"id" json:"id"`
	Title   string      `yaml:"title" json:"title"`
	Table   string      `yaml:"table" json:"-"`
	Fields  []FieldDef  `yaml:"fields" json:"fields"`
	Actions []ActionDef `yaml:"actions" json:"-"`
}

// FieldDef describes a single input.  Name is the camelCase key the front
// end posts; Column is the snake_case column it is stored under and defaults
// to the converted Name.
type FieldDef struct {
	Name     string      `yaml:"name" json:"name"`
	Column   string      `yaml:"column" json:"-"`
	Label    string      `yaml:"label" json:"label"`
	Kind     string      `yaml:"kind" json:"kind"`
	Required bool        `yaml:"required" json:"required"`
	Max      int         `yaml:"max" json:"max,omitempty"` // text kinds only; 0 → kind default
	Default  string      `yaml:"default" json:"default,omitempty"`
	Options  []OptionDef `yaml:"options" json:"options,omitempty"`
}

// OptionDef is one allowed value of a select field.
type OptionDef struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// ActionDef configures a post-submit action.  Params hold provider fields
// inline (to, subject, url).
type ActionDef struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:",inline"`
}

// Allowed returns the option values of f.
func (f *FieldDef) Allowed() []string {
	out := make([]string, len(f.Options))
	for i, o := range f.Options {
		out[i] = o.Value
	}
	return out
}

// Field returns the named field, or nil.
func (fd *FormDef) Field(name string) *FieldDef {
	for i := range fd.Fields {
		if fd.Fields[i].Name == name {
			return &fd.Fields[i]
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry maps form ID → *FormDef.  Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	forms map[string]*FormDef
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{forms: make(map[string]*FormDef)} }

// Get returns a definition by ID.
func (r *Registry) Get(id string) (*FormDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fd, ok := r.forms[id]
	return fd, ok
}

// IDs lists registered form IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.forms))
	for id := range r.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tables returns the distinct tables the registered forms write to.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(r.forms))
	var out []string
	for _, fd := range r.forms {
		if !seen[fd.Table] {
			seen[fd.Table] = true
			out = append(out, fd.Table)
		}
	}
	sort.Strings(out)
	return out
}

// Register inserts or replaces fd.  fd must have passed ParseFormDef.
func (r *Registry) Register(fd *FormDef) {
	r.mu.Lock()
	r.forms[fd.ID] = fd
	r.mu.Unlock()
}

var (
	builtinOnce sync.Once
	builtin     *Registry
	builtinErr  error
)

// Builtin returns the registry of embedded definitions.  Parsed once.
func Builtin() (*Registry, error) {
	builtinOnce.Do(func() {
		builtin = NewRegistry()
		builtinErr = loadFS(builtin, defsFS, "defs")
	})
	return builtin, builtinErr
}

// MustBuiltin is Builtin for package-level use.  The embedded files are
// covered by tests, so a failure here is a build defect.
func MustBuiltin() *Registry {
	r, err := Builtin()
	if err != nil {
		panic(err)
	}
	return r
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// ParseFormDef decodes one YAML document.  name is used in error messages.
func ParseFormDef(raw []byte, name string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", name, err)
	}
	if err := validateFormDef(&fd, name); err != nil {
		return nil, err
	}
	return &fd, nil
}

// LoadDir registers every "*.yaml" under dir into r, replacing built-ins
// with the same ID.  A missing dir is not an error.
func LoadDir(r *Registry, dir string) error {
	err := loadFS(r, os.DirFS(dir), ".")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load returns a fresh registry holding the embedded definitions plus any
// overrides found in dir.  An empty dir means built-ins only.
func Load(dir string) (*Registry, error) {
	r := NewRegistry()
	if err := loadFS(r, defsFS, "defs"); err != nil {
		return nil, err
	}
	if dir == "" {
		return r, nil
	}
	if err := LoadDir(r, dir); err != nil {
		return nil, err
	}
	return r, nil
}

func loadFS(r *Registry, fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", path, err)
		}
		fd, err := ParseFormDef(raw, filepath.Base(path))
		if err != nil {
			return err
		}
		r.Register(fd)
		return nil
	})
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// validateFormDef enforces rules YAML tags cannot express and fills defaults.
func validateFormDef(fd *FormDef, name string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", name)
	}
	if fd.Table == "" {
		return fmt.Errorf("form definition %s: missing required 'table'", name)
	}
	if len(fd.Fields) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields'", name)
	}

	seen := make(map[string]struct{}, len(fd.Fields))
	for i := range fd.Fields {
		f := &fd.Fields[i]
		if err := validateField(f, name); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	for _, ac := range fd.Actions {
		if ac.Type != "email" && ac.Type != "webhook" {
			return fmt.Errorf("form %s: unknown action type '%s'", name, ac.Type)
		}
	}
	return nil
}

// validateField confirms that essential attributes are present and sane.
func validateField(f *FieldDef, name string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", name)
	}
	if f.Label == "" {
		return fmt.Errorf("form %s: field '%s' missing 'label'", name, f.Name)
	}
	if !knownKinds[f.Kind] {
		return fmt.Errorf("form %s: field '%s' has unknown kind '%s'", name, f.Name, f.Kind)
	}
	if f.Column == "" {
		f.Column = transform.SnakeKey(f.Name)
	}
	if f.Max < 0 {
		return fmt.Errorf("form %s: field '%s' max cannot be negative", name, f.Name)
	}

	isSelect := f.Kind == KindSelect || f.Kind == KindMultiSelect
	if isSelect && len(f.Options) == 0 {
		return fmt.Errorf("form %s: field '%s' needs 'options'", name, f.Name)
	}
	if !isSelect && len(f.Options) > 0 {
		return fmt.Errorf("form %s: field '%s' has options but kind '%s'", name, f.Name, f.Kind)
	}
	if f.Default != "" && isSelect && !contains(f.Allowed(), f.Default) {
		return fmt.Errorf("form %s: field '%s' default %q is not an option", name, f.Name, f.Default)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
