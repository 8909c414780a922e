package s2sloss

import (
	"errors"
	"fmt"
	"io"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/essentials"
	"gopkg.in/yaml.v3"
)

// DType is a numeric precision for loss computations.
type DType int

const (
	Float32 DType = iota
	Float16
	Float64
	Mixed
)

var dtypeNames = map[DType]string{
	Float32: "float32",
	Float16: "float16",
	Float64: "float64",
	Mixed:   "mixed",
}

// ParseDType parses a name like "float32".
func ParseDType(name string) (DType, error) {
	for d, n := range dtypeNames {
		if n == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype: %q", name)
}

// String returns the configuration name of the type.
func (d DType) String() string {
	if n, ok := dtypeNames[d]; ok {
		return n
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// Creator returns a creator which stores numbers with
// the precision, or nil if there is no such creator.
func (d DType) Creator() anyvec.Creator {
	switch d {
	case Float32:
		return anyvec32.CurrentCreator()
	case Float64:
		return anyvec64.DefaultCreator{}
	default:
		return nil
	}
}

// MarshalYAML encodes the type by name.
func (d DType) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML decodes a type name.
func (d *DType) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseDType(name)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Params configures a loss.
type Params struct {
	Name  string `yaml:"name"`
	DType DType  `yaml:"dtype"`

	// MaskNaN indicates whether non-finite per-example
	// losses should be zeroed before averaging.
	// If nil, masking is enabled.
	MaskNaN *bool `yaml:"mask_nan"`
}

// LoadParams decodes YAML parameters.
// Unknown keys are rejected.
func LoadParams(r io.Reader) (*Params, error) {
	var res Params
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&res); err != nil && err != io.EOF {
		return nil, essentials.AddCtx("load params", err)
	}
	return &res, nil
}

// MaskNaNEnabled returns the effective mask_nan value.
func (p *Params) MaskNaNEnabled() bool {
	return p.MaskNaN == nil || *p.MaskNaN
}

// Validate checks that the parameters are usable.
func (p *Params) Validate() error {
	if p.Name == "" {
		return errors.New("validate params: missing name")
	}
	if _, ok := dtypeNames[p.DType]; !ok {
		return fmt.Errorf("validate params: invalid dtype %v", p.DType)
	}
	return nil
}
