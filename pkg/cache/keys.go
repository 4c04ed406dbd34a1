package cache

// Keyer builds cache keys for the pipeline stages.
type Keyer interface {
	// LayoutKey addresses the layout of a molecule, identified by the hash
	// of its canonical JSON, under the given options.
	LayoutKey(moleculeHash string, opts LayoutKeyOpts) string

	// ArtifactKey addresses a rendered artifact of a laid-out molecule.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the options that change a layout result.
type LayoutKeyOpts struct {
	BondLength          float64 `json:"bond_length"`
	Force               bool    `json:"force"`
	MaxCollisionPasses  int     `json:"max_collision_passes"`
	MaxRefineIterations int     `json:"max_refine_iterations"`
	// Catalog is the hash of the template catalog in use.
	Catalog string `json:"catalog,omitempty"`
}

// ArtifactKeyOpts holds the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Scale       float64 `json:"scale"`
	ShowCarbons bool    `json:"show_carbons"`
	ShowIndices bool    `json:"show_indices"`
}

// DefaultKeyer hashes the key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey returns "layout:<hash>".
func (DefaultKeyer) LayoutKey(moleculeHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", moleculeHash, opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
