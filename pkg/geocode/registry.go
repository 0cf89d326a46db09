package geocode

import (
	"sort"

	"github.com/rotisserie/eris"
)

// builders maps provider names to constructors. The set is closed: each
// entry corresponds to one CLI subcommand, resolved once at startup.
var builders = map[string]func(Config) (Provider, error){
	"generic":       NewGeneric,
	"nominatim":     NewNominatim,
	"google":        NewGoogle,
	"bing":          NewBing,
	"mapquest":      NewMapQuest,
	"open-mapquest": NewOpenMapQuest,
	"mapbox":        NewMapbox,
}

// New builds the named provider from the run configuration. Construction
// validates provider preconditions (API key, user agent, URL template) so
// misconfiguration surfaces before any row is touched.
func New(name string, cfg Config) (Provider, error) {
	build, ok := builders[name]
	if !ok {
		return nil, eris.Errorf("geocode: unknown provider %q", name)
	}
	return build(cfg)
}

// Names returns all registered provider names, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
