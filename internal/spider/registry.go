package spider

import "sort"

// registry holds every known site keyed by canonical name.
var registry = buildRegistry(
	newMotodelta(),
	newGaonamotos(),
	newMotoscba(),
	newMasxmoto(),
	newMotomercado(),
	newMotojose(),
	newMotosport(),
	newFasmotos(),
	newRodo(),
	newGrupomarquez(),
)

func buildRegistry(sites ...*Site) map[string]*Site {
	m := make(map[string]*Site, len(sites))
	for _, s := range sites {
		m[s.Name] = s
	}
	return m
}

// Lookup returns the site configuration for name.
func Lookup(name string) (*Site, bool) {
	s, ok := registry[name]
	return s, ok
}

// All returns every registered site sorted by name.
func All() []*Site {
	out := make([]*Site, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted names of every registered site.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
