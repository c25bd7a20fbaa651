package host

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"gopkg.in/yaml.v3"
)

// Registry is the source of truth for the host list.
type Registry interface {
	// List returns every host, highest Top first.
	List(ctx context.Context) ([]Host, error)

	// Get returns a single host, or an ErrInput error when it is unknown.
	Get(ctx context.Context, id string) (Host, error)
}

// NotFound builds the error registries return for unknown ids.
func NotFound(id string) error {
	return errors.New(errors.ErrInput,
		fmt.Sprintf("Host '%s' not found", id),
		"List known hosts with: nekowatch hosts")
}

// Sort orders hosts by Top descending, then by name.
func Sort(hosts []Host) {
	sort.SliceStable(hosts, func(i, j int) bool {
		if hosts[i].Top != hosts[j].Top {
			return hosts[i].Top > hosts[j].Top
		}
		return hosts[i].Name < hosts[j].Name
	})
}

// fileFormat is the on-disk layout of a hosts file.
type fileFormat struct {
	Hosts []Host `yaml:"hosts"`
}

// FileRegistry reads hosts from a YAML file. The file is re-read whenever its
// modification time changes, so edits take effect on the next poll.
type FileRegistry struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	hosts   []Host
}

// NewFileRegistry creates a registry backed by path.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

// List implements Registry.
func (r *FileRegistry) List(ctx context.Context) ([]Host, error) {
	hosts, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]Host, len(hosts))
	copy(out, hosts)
	return out, nil
}

// Get implements Registry.
func (r *FileRegistry) Get(ctx context.Context, id string) (Host, error) {
	hosts, err := r.load()
	if err != nil {
		return Host{}, err
	}
	for _, h := range hosts {
		if h.ID == id {
			return h, nil
		}
	}
	return Host{}, NotFound(id)
}

func (r *FileRegistry) load() ([]Host, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(r.path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't read hosts file "+r.path,
			"Create it or set 'hosts_file' in nekowatch.yaml.")
	}
	if r.hosts != nil && info.ModTime().Equal(r.modTime) {
		return r.hosts, nil
	}

	hosts, err := ParseHosts(r.path)
	if err != nil {
		return nil, err
	}
	r.hosts = hosts
	r.modTime = info.ModTime()
	return r.hosts, nil
}

// ParseHosts reads and validates a hosts file. Missing ids are generated from
// the host name; duplicate ids are rejected.
func ParseHosts(path string) ([]Host, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't read hosts file "+path,
			"Check the file exists and is readable.")
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid hosts file "+path,
			"Check the YAML syntax.")
	}

	hosts := make([]Host, 0, len(f.Hosts))
	seen := make(map[string]bool, len(f.Hosts))
	for _, h := range f.Hosts {
		if h.ID == "" {
			h.ID = GenerateID(h.Name)
		}
		if seen[h.ID] {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Duplicate host id '%s' in %s", h.ID, path),
				"Give each host a unique 'sid' (or a unique name).")
		}
		seen[h.ID] = true

		if err := Validate(h); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid host in %s: %s", path, errors.Brief(err)),
				"Every host needs a name, an ssh.host and an api port and key.")
		}
		hosts = append(hosts, h)
	}

	Sort(hosts)
	return hosts, nil
}
