package credentials

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/slotwatch/internal/repository"
	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// FileSource reads credentials from a YAML map of id -> {username, password}.
// The file is re-read on every lookup so edits take effect without a restart.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Read(_ context.Context, id string) (repository.Credentials, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return repository.Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}

	entries := map[string]fileEntry{}
	if err := yaml.Unmarshal(content, &entries); err != nil {
		return repository.Credentials{}, fmt.Errorf("parse credentials file: %w", err)
	}
	e, ok := entries[id]
	if !ok || e.Username == "" {
		return repository.Credentials{}, fmt.Errorf("%w: %q in %s", repository.ErrCredentialsNotFound, id, s.path)
	}
	return repository.Credentials{Username: e.Username, Password: e.Password}, nil
}

// DirSource reads <dir>/<id>.creds files holding the username on the first
// line and the password on the second.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Read(_ context.Context, id string) (repository.Credentials, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return repository.Credentials{}, fmt.Errorf("invalid credentials id %q", id)
	}
	path := filepath.Join(s.dir, id+".creds")
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return repository.Credentials{}, fmt.Errorf("%w: %s", repository.ErrCredentialsNotFound, path)
	}
	if err != nil {
		return repository.Credentials{}, fmt.Errorf("read %s: %w", path, err)
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() && len(lines) < 2 {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if len(lines) < 2 {
		return repository.Credentials{}, fmt.Errorf("%s does not have enough lines", path)
	}
	return repository.Credentials{Username: lines[0], Password: lines[1]}, nil
}
