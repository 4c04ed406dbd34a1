package templates

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/chemlayout/pkg/errors"
)

// Tolerance bounds the normalization checks applied by [Load].
const Tolerance = 1e-3

//go:embed templates.toml
var builtin []byte

// Template is one normalized cage layout.
type Template struct {
	Name        string
	Description string
	Edges       [][2]int
	Coords      []r2.Vec

	degrees []int // sorted ascending
	deg     []int // per vertex
	adj     [][]bool
}

// Size returns the vertex count.
func (t *Template) Size() int { return len(t.Coords) }

// Degrees returns the sorted degree sequence.
func (t *Template) Degrees() []int { return slices.Clone(t.degrees) }

// Library is an immutable, ordered set of templates. It is safe for
// concurrent use.
type Library struct {
	templates []*Template
	digest    string
}

// Digest identifies the catalog contents. Two libraries loaded from the same
// bytes share a digest.
func (l *Library) Digest() string {
	if l == nil {
		return ""
	}
	return l.digest
}

// Templates returns the catalog entries in file order.
func (l *Library) Templates() []*Template {
	if l == nil {
		return nil
	}
	return slices.Clone(l.templates)
}

// Names returns the template names in file order.
func (l *Library) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, len(l.templates))
	for i, t := range l.templates {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of templates.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.templates)
}

type catalogFile struct {
	Templates []catalogEntry `toml:"template"`
}

type catalogEntry struct {
	Name        string      `toml:"name"`
	Description string      `toml:"description"`
	Edges       [][]int     `toml:"edges"`
	Coords      [][]float64 `toml:"coords"`
}

// Load parses and validates a TOML catalog. Any defect in any entry fails
// the whole load with an ErrCodeTemplateCorrupt error naming the entry.
func Load(data []byte) (*Library, error) {
	var f catalogFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTemplateCorrupt, err, "decode template catalog")
	}
	sum := sha256.Sum256(data)
	lib := &Library{digest: hex.EncodeToString(sum[:8])}
	seen := make(map[string]bool)
	for i, e := range f.Templates {
		t, err := build(e)
		if err != nil {
			name := e.Name
			if name == "" {
				name = "#" + strconv.Itoa(i)
			}
			return nil, errors.Wrap(errors.ErrCodeTemplateCorrupt, err, "template %s", name)
		}
		if seen[t.Name] {
			return nil, errors.New(errors.ErrCodeTemplateCorrupt, "template %s: duplicate name", t.Name)
		}
		seen[t.Name] = true
		lib.templates = append(lib.templates, t)
	}
	return lib, nil
}

var (
	defaultLib  *Library
	defaultOnce sync.Once
)

// Default returns the embedded catalog, loading it on first use.
// It panics if the embedded catalog is corrupt.
func Default() *Library {
	defaultOnce.Do(func() {
		lib, err := Load(builtin)
		if err != nil {
			panic(err)
		}
		defaultLib = lib
	})
	return defaultLib
}

func build(e catalogEntry) (*Template, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	n := len(e.Coords)
	if n < 3 {
		return nil, fmt.Errorf("need at least 3 vertices, have %d", n)
	}
	t := &Template{
		Name:        e.Name,
		Description: e.Description,
		Coords:      make([]r2.Vec, n),
		deg:         make([]int, n),
		adj:         make([][]bool, n),
	}
	for i, c := range e.Coords {
		if len(c) != 2 {
			return nil, fmt.Errorf("vertex %d: want 2 coordinates, have %d", i, len(c))
		}
		if math.IsNaN(c[0]) || math.IsInf(c[0], 0) || math.IsNaN(c[1]) || math.IsInf(c[1], 0) {
			return nil, fmt.Errorf("vertex %d: non-finite coordinate", i)
		}
		t.Coords[i] = r2.Vec{X: c[0], Y: c[1]}
		t.adj[i] = make([]bool, n)
	}
	for i, ed := range e.Edges {
		if len(ed) != 2 {
			return nil, fmt.Errorf("edge %d: want 2 endpoints, have %d", i, len(ed))
		}
		a, b := ed[0], ed[1]
		switch {
		case a < 0 || a >= n || b < 0 || b >= n:
			return nil, fmt.Errorf("edge %d: endpoint out of range [0,%d)", i, n)
		case a == b:
			return nil, fmt.Errorf("edge %d: self-loop on vertex %d", i, a)
		case t.adj[a][b]:
			return nil, fmt.Errorf("edge %d: duplicate edge %d-%d", i, a, b)
		}
		t.adj[a][b], t.adj[b][a] = true, true
		t.deg[a]++
		t.deg[b]++
		t.Edges = append(t.Edges, [2]int{a, b})
	}
	if len(t.Edges) == 0 {
		return nil, fmt.Errorf("no edges")
	}
	if !connected(t.adj) {
		return nil, fmt.Errorf("graph is disconnected")
	}

	var centroid r2.Vec
	for _, p := range t.Coords {
		centroid = r2.Add(centroid, p)
	}
	centroid = r2.Scale(1/float64(n), centroid)
	if r2.Norm(centroid) > Tolerance {
		return nil, fmt.Errorf("centroid (%.4f, %.4f) is not at the origin", centroid.X, centroid.Y)
	}
	var total float64
	for _, ed := range t.Edges {
		total += r2.Norm(r2.Sub(t.Coords[ed[0]], t.Coords[ed[1]]))
	}
	if mean := total / float64(len(t.Edges)); math.Abs(mean-1) > Tolerance {
		return nil, fmt.Errorf("mean bond length %.4f is not 1.0", mean)
	}

	t.degrees = slices.Clone(t.deg)
	slices.Sort(t.degrees)
	return t, nil
}

func connected(adj [][]bool) bool {
	seen := make([]bool, len(adj))
	stack := []int{0}
	seen[0] = true
	count := 1
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for w, ok := range adj[v] {
			if ok && !seen[w] {
				seen[w] = true
				count++
				stack = append(stack, w)
			}
		}
	}
	return count == len(adj)
}
