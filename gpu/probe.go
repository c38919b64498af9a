package gpu

// Prober checks required instance extensions and layers against what the
// host advertises. Every call re-queries the host.
type Prober struct {
	loader Loader
}

func NewProber(loader Loader) *Prober {
	return &Prober{loader: loader}
}

// SupportsExtensions reports whether every name in required is an
// available instance extension.
func (p *Prober) SupportsExtensions(required []string) (bool, error) {
	missing, err := p.MissingExtensions(required)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// SupportsLayers reports whether every name in required is an available
// instance layer.
func (p *Prober) SupportsLayers(required []string) (bool, error) {
	missing, err := p.MissingLayers(required)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// MissingExtensions returns the names in required the host does not
// advertise, in the order they were required.
func (p *Prober) MissingExtensions(required []string) ([]string, error) {
	available, err := p.loader.AvailableExtensions()
	if err != nil {
		return nil, err
	}
	return missing(required, available), nil
}

// MissingLayers is MissingExtensions for layers.
func (p *Prober) MissingLayers(required []string) ([]string, error) {
	available, err := p.loader.AvailableLayers()
	if err != nil {
		return nil, err
	}
	return missing(required, available), nil
}

// HasExtension reports whether a single optional extension is available.
func (p *Prober) HasExtension(name string) (bool, error) {
	return p.SupportsExtensions([]string{name})
}

func missing(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[name] = struct{}{}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, name := range required {
		if _, ok := have[name]; ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
