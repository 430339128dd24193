// Package routing resolves gateway paths to upstream services.
package routing

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var defaultRoutes []byte

// Rewrite replaces a leading path prefix before dispatch.
type Rewrite struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Endpoint is a method and exact path pair.
type Endpoint struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
}

// Route maps a public path prefix onto one upstream.
type Route struct {
	Name      string     `yaml:"name"`
	Prefix    string     `yaml:"prefix"`
	Upstream  string     `yaml:"upstream"`
	Rewrite   Rewrite    `yaml:"rewrite"`
	Protected bool       `yaml:"protected"`
	Sensitive []Endpoint `yaml:"sensitive"`
}

// Table is an immutable, validated set of routes.
type Table struct {
	routes []Route
}

type document struct {
	Routes []Route `yaml:"routes"`
}

// Load reads the route table from path, or the embedded default when path is empty.
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultRoutes)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table %s: %w", path, err)
	}
	return Parse(raw)
}

// Default returns the embedded route table.
func Default() *Table {
	t, err := Parse(defaultRoutes)
	if err != nil {
		panic(fmt.Sprintf("embedded route table: %v", err))
	}
	return t
}

// Parse decodes and validates a YAML route table.
func Parse(raw []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode route table: %w", err)
	}
	if len(doc.Routes) == 0 {
		return nil, fmt.Errorf("route table has no routes")
	}

	seen := make(map[string]struct{}, len(doc.Routes))
	for i := range doc.Routes {
		r := &doc.Routes[i]
		r.Prefix = strings.TrimRight(strings.TrimSpace(r.Prefix), "/")
		if r.Name == "" || r.Upstream == "" {
			return nil, fmt.Errorf("route %d: name and upstream are required", i)
		}
		if !strings.HasPrefix(r.Prefix, "/v1/") {
			return nil, fmt.Errorf("route %s: prefix %q must be under /v1/", r.Name, r.Prefix)
		}
		if strings.Contains(r.Prefix, "..") {
			return nil, fmt.Errorf("route %s: prefix %q contains a dot segment", r.Name, r.Prefix)
		}
		if _, dup := seen[r.Prefix]; dup {
			return nil, fmt.Errorf("route %s: duplicate prefix %q", r.Name, r.Prefix)
		}
		seen[r.Prefix] = struct{}{}
		if r.Rewrite.From != "" && !strings.HasPrefix(r.Prefix, r.Rewrite.From) {
			return nil, fmt.Errorf("route %s: rewrite %q does not match prefix %q", r.Name, r.Rewrite.From, r.Prefix)
		}
		for j := range r.Sensitive {
			r.Sensitive[j].Method = strings.ToUpper(strings.TrimSpace(r.Sensitive[j].Method))
			if r.Sensitive[j].Method == "" {
				r.Sensitive[j].Method = http.MethodPost
			}
		}
	}

	sort.SliceStable(doc.Routes, func(i, j int) bool {
		return len(doc.Routes[i].Prefix) > len(doc.Routes[j].Prefix)
	})
	return &Table{routes: doc.Routes}, nil
}

// Match returns the longest route whose prefix covers path on a segment boundary.
func (t *Table) Match(path string) (*Route, bool) {
	for i := range t.routes {
		r := &t.routes[i]
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r, true
		}
	}
	return nil, false
}

// Routes returns a copy of the table ordered by match priority.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Upstreams lists the distinct upstream names the table references.
func (t *Table) Upstreams() []string {
	set := map[string]struct{}{}
	for _, r := range t.routes {
		set[r.Upstream] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSensitive reports whether method and path hit one of the route's sensitive endpoints.
func (r *Route) IsSensitive(method, path string) bool {
	path = strings.TrimRight(path, "/")
	for _, e := range r.Sensitive {
		if e.Method == method && e.Path == path {
			return true
		}
	}
	return false
}

// UpstreamPath applies the route's rewrite to path.
func (r *Route) UpstreamPath(path string) string {
	if r.Rewrite.From == "" {
		return path
	}
	if rest, ok := strings.CutPrefix(path, r.Rewrite.From); ok {
		return r.Rewrite.To + rest
	}
	return path
}
