package cache

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey identifies the raw (uncentered) layout of a display tree.
	LayoutKey(treeHash string, opts LayoutKeyOpts) string
	// ArtifactKey identifies one rendered output format of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
	// CollectionKey identifies a fetched AST collection by source URI.
	CollectionKey(uri string) string
}

// LayoutKeyOpts lists the options that change a layout.
type LayoutKeyOpts struct {
	Engine  string  `json:"engine"`
	Breadth float64 `json:"breadth"`
	Depth   float64 `json:"depth"`
}

// ArtifactKeyOpts lists the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format string     `json:"format"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Margin [4]float64 `json:"margin"`
	Labels bool       `json:"labels"`
	Scale  float64    `json:"scale,omitempty"`
	View   [3]float64 `json:"view"` // pan x, pan y, zoom
}

// DefaultKeyer hashes key options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(treeHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", treeHash, opts)
}

// ArtifactKey returns "artifact:<sha256>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

// CollectionKey returns "collection:<uri>".
func (DefaultKeyer) CollectionKey(uri string) string {
	return "collection:" + uri
}

var _ Keyer = DefaultKeyer{}
