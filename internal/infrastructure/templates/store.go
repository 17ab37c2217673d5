package templates

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/pkg/filesystem"
	"github.com/doeshing/nlsh/internal/ports"
)

// FileStore keeps templates as a JSON object of name -> {command, description}.
type FileStore struct {
	path   string
	logger ports.Logger

	mu     sync.Mutex
	loaded bool
	items  map[string]domain.Template
}

// NewFileStore uses ~/.config/nlsh/templates.json when path is empty.
func NewFileStore(path string, logger ports.Logger) *FileStore {
	if path == "" {
		path = filesystem.StatePath(domain.TemplatesFileName)
	}
	return &FileStore{path: path, logger: logger}
}

// Save creates or overwrites a template.
func (s *FileStore) Save(tmpl domain.Template) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	s.items[tmpl.Name] = tmpl
	return s.flush()
}

// Get returns the named template or domain.ErrTemplateNotFound.
func (s *FileStore) Get(name string) (domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return domain.Template{}, err
	}
	tmpl, ok := s.items[name]
	if !ok {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
	}
	return tmpl, nil
}

// List returns templates sorted by name.
func (s *FileStore) List() ([]domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]domain.Template, 0, len(s.items))
	for _, tmpl := range s.items {
		out = append(out, tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the named template.
func (s *FileStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	if _, ok := s.items[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
	}
	delete(s.items, name)
	return s.flush()
}

// Exists reports whether name is stored.
func (s *FileStore) Exists(name string) bool {
	_, err := s.Get(name)
	return err == nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}
	raw := map[string]domain.Template{}
	if _, err := filesystem.ReadJSON(s.path, &raw); err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	s.items = make(map[string]domain.Template, len(raw))
	for name, tmpl := range raw {
		tmpl.Name = name
		s.items[name] = tmpl
	}
	s.loaded = true
	return nil
}

func (s *FileStore) flush() error {
	if err := filesystem.WriteJSON(s.path, s.items); err != nil {
		return fmt.Errorf("save templates: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("templates saved", map[string]interface{}{"count": len(s.items)})
	}
	return nil
}

var _ ports.TemplateRepository = (*FileStore)(nil)
