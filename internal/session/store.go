// Package session persists pipeline sessions as one directory per session
// holding a session_data.json file.
package session

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/forPelevin/clipper/internal/types"
)

const FileName = "session_data.json"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyHighlights = errors.New("highlights_found session has no highlights")
)

//go:embed schema.json
var schemaJSON string

var sessionSchema = mustCompileSchema(schemaJSON, "session.schema.json")

func mustCompileSchema(raw, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("parse embedded %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("add %s resource: %v", name, err))
	}
	sch, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return sch
}

type Store struct {
	root string
	now  func() time.Time
}

func NewStore(root string) *Store {
	return &Store{root: root, now: time.Now}
}

func (s *Store) Root() string { return s.root }

func (s *Store) Dir(id string) string { return filepath.Join(s.root, id) }

// Create allocates a new session directory. Nothing is listable until the
// first Save.
func (s *Store) Create(info types.VideoInfo) (*types.Session, error) {
	now := s.now().UTC()
	id := now.Format("20060102-150405") + "-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	dir := s.Dir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &types.Session{
		ID:         id,
		VideoInfo:  info,
		SessionDir: dir,
		Status:     types.StatusDiscovering,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Save writes the session file atomically: readers see either the previous
// or the new content. A highlights_found session must carry highlights.
func (s *Store) Save(sess *types.Session) error {
	if sess == nil {
		return errors.New("save session: nil session")
	}
	if err := validateID(sess.ID); err != nil {
		return err
	}
	if sess.Status == types.StatusHighlightsFound && len(sess.Highlights) == 0 {
		return fmt.Errorf("save session %s: %w", sess.ID, ErrEmptyHighlights)
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now().UTC()
	}
	sess.UpdatedAt = s.now().UTC()

	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	dir := s.Dir(sess.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, FileName), b)
}

func writeFileAtomic(path string, b []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync session file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// List returns all readable sessions, newest first. Directories without a
// valid session file are skipped.
func (s *Store) List() ([]types.Session, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && validateID(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	out := make([]types.Session, 0, len(names))
	for _, n := range names {
		sess, err := s.Load(n)
		if err != nil {
			continue
		}
		out = append(out, *sess)
	}
	return out, nil
}

// Load reads one session. Missing and corrupt files both report
// ErrSessionNotFound.
func (s *Store) Load(id string) (*types.Session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.Dir(id), FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	sess, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSessionNotFound, id, err)
	}
	return sess, nil
}

func (s *Store) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	dir := s.Dir(id)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func decode(b []byte) (*types.Session, error) {
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("corrupt session file: %w", err)
	}
	if err := sessionSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid session file: %w", err)
	}
	var sess types.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("corrupt session file: %w", err)
	}
	return &sess, nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}
