package normalizer

import (
	"fmt"
	"strings"

	"github.com/aretw0/animgate/pkg/domain"
)

// ResolveGateParameter finds the Boolean parameter called name, appending it
// with a false default when the controller does not declare it.
// A parameter of any other type is a *domain.ValidationError and the
// controller is left untouched.
func ResolveGateParameter(c *domain.Controller, name string) (domain.Parameter, bool, error) {
	if p, ok := c.Parameter(name); ok {
		if p.Type != domain.ParameterBool {
			return p, false, &domain.ValidationError{
				Field: name,
				Msg:   fmt.Sprintf("gate parameter must be %s, found %s", domain.ParameterBool, p.Type),
			}
		}
		return p, false, nil
	}

	p := domain.Parameter{Name: name, Type: domain.ParameterBool, DefaultBool: false}
	c.AddParameter(p)
	return p, true, nil
}

// FindFirstByNameSubstring returns the first state, in stored order, whose
// name contains one of the hints (case-insensitive).
func FindFirstByNameSubstring(states []*domain.State, hints []string) (*domain.State, bool) {
	lowered := make([]string, 0, len(hints))
	for _, h := range hints {
		if h != "" {
			lowered = append(lowered, strings.ToLower(h))
		}
	}

	for _, s := range states {
		if s == nil {
			continue
		}
		name := strings.ToLower(s.Name)
		for _, h := range lowered {
			if strings.Contains(name, h) {
				return s, true
			}
		}
	}
	return nil, false
}

func without(states []*domain.State, skip *domain.State) []*domain.State {
	out := make([]*domain.State, 0, len(states))
	for _, s := range states {
		if s != skip {
			out = append(out, s)
		}
	}
	return out
}
