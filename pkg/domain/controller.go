package domain

// ParameterType is the value kind of a controller parameter.
type ParameterType string

const (
	ParameterBool    ParameterType = "bool"
	ParameterInt     ParameterType = "int"
	ParameterFloat   ParameterType = "float"
	ParameterTrigger ParameterType = "trigger"
)

// Valid reports whether t is one of the known parameter types.
func (t ParameterType) Valid() bool {
	switch t {
	case ParameterBool, ParameterInt, ParameterFloat, ParameterTrigger:
		return true
	}
	return false
}

// Parameter is a shared signal that conditions read from.
// Only the default matching Type is meaningful.
type Parameter struct {
	Name         string        `json:"name" yaml:"name" mapstructure:"name"`
	Type         ParameterType `json:"type" yaml:"type" mapstructure:"type"`
	DefaultBool  bool          `json:"default_bool,omitempty" yaml:"default_bool,omitempty" mapstructure:"default_bool"`
	DefaultInt   int           `json:"default_int,omitempty" yaml:"default_int,omitempty" mapstructure:"default_int"`
	DefaultFloat float64       `json:"default_float,omitempty" yaml:"default_float,omitempty" mapstructure:"default_float"`
}

// Layer pairs a name with the state machine it owns.
type Layer struct {
	Name         string        `json:"name" yaml:"name" mapstructure:"name"`
	StateMachine *StateMachine `json:"state_machine" yaml:"state_machine" mapstructure:"state_machine"`
}

// Controller is an animation controller: shared parameters plus ordered layers.
type Controller struct {
	Name       string      `json:"name" yaml:"name" mapstructure:"name"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
	Layers     []Layer     `json:"layers" yaml:"layers" mapstructure:"layers"`
}

// Parameter returns the parameter with the given name.
func (c *Controller) Parameter(name string) (Parameter, bool) {
	for _, p := range c.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// AddParameter appends a parameter. Callers are responsible for name uniqueness.
func (c *Controller) AddParameter(p Parameter) {
	c.Parameters = append(c.Parameters, p)
}

// Layer returns the layer with the given name.
func (c *Controller) Layer(name string) (*Layer, bool) {
	for i := range c.Layers {
		if c.Layers[i].Name == name {
			return &c.Layers[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the controller.
// Stores hand out clones so callers cannot mutate stored graphs by pointer.
func (c *Controller) Clone() *Controller {
	if c == nil {
		return nil
	}
	out := &Controller{Name: c.Name}
	if c.Parameters != nil {
		out.Parameters = make([]Parameter, len(c.Parameters))
		copy(out.Parameters, c.Parameters)
	}
	if c.Layers != nil {
		out.Layers = make([]Layer, len(c.Layers))
		for i, l := range c.Layers {
			out.Layers[i] = Layer{Name: l.Name, StateMachine: l.StateMachine.Clone()}
		}
	}
	return out
}
