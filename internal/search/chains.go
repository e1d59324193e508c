package search

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed chains.yaml
var defaultChainsYAML []byte

type chainsFile struct {
	Chains []string `yaml:"chains"`
}

// DefaultChains returns the built-in chain keyword list.
func DefaultChains() []string {
	chains, err := parseChains(defaultChainsYAML)
	if err != nil {
		// The embedded file is validated by tests; this cannot happen at runtime.
		panic(err)
	}
	return chains
}

// LoadChains reads a chain keyword list from a YAML file.
func LoadChains(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "search: read chains file %s", path)
	}
	return parseChains(data)
}

func parseChains(data []byte) ([]string, error) {
	var f chainsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "search: parse chains file")
	}

	chains := make([]string, 0, len(f.Chains))
	for _, c := range f.Chains {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			chains = append(chains, c)
		}
	}
	if len(chains) == 0 {
		return nil, eris.New("search: chains file has no entries")
	}
	return chains, nil
}

// isChain reports whether a business name contains any chain keyword,
// case-insensitively.
func isChain(name string, chains []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range chains {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
