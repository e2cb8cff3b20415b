package main

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/encoder"
)

// Profile is the YAML shape for a -profile file: encoder defaults an
// operator wants to reuse across many encode runs rather than repeat as
// flags every time.
type Profile struct {
	Encoding struct {
		// Name is one of "iris", "jpeg", "avif".
		Name        string `yaml:"name"`
		Quality     int    `yaml:"quality"`
		Subsampling string `yaml:"subsampling"`
	} `yaml:"encoding"`

	Pyramid struct {
		// Factor is 2 or 4.
		Factor int    `yaml:"factor"`
		Method string `yaml:"method"`
	} `yaml:"pyramid"`

	Concurrency int `yaml:"concurrency"`
}

// DefaultProfile mirrors codec.DefaultOptions / encoder.Derive2xLayers.
func DefaultProfile() *Profile {
	p := &Profile{}
	p.Encoding.Name = "jpeg"
	p.Encoding.Quality = int(codec.QualityDefault)
	p.Encoding.Subsampling = "422"
	p.Pyramid.Factor = 2
	p.Pyramid.Method = "average"
	p.Concurrency = runtime.NumCPU()
	return p
}

// LoadProfile reads path as YAML over DefaultProfile's values. A missing
// path is not an error: it returns the defaults.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	return p, nil
}

// ResolveEncoding resolves the profile's encoding name to a codec.Encoding tag.
func (p *Profile) ResolveEncoding() (codec.Encoding, error) {
	switch p.Encoding.Name {
	case "iris", "":
		return codec.IRIS, nil
	case "jpeg":
		return codec.JPEG, nil
	case "avif":
		return codec.AVIF, nil
	default:
		return codec.Undefined, fmt.Errorf("profile: unknown encoding %q", p.Encoding.Name)
	}
}

// subsampling resolves the profile's subsampling string to a codec.Subsampling.
func (p *Profile) subsampling() codec.Subsampling {
	switch p.Encoding.Subsampling {
	case "444":
		return codec.Subsampling444
	case "420":
		return codec.Subsampling420
	default:
		return codec.Subsampling422
	}
}

// Options builds codec.Options from the profile's quality/subsampling.
func (p *Profile) Options() codec.Options {
	q := p.Encoding.Quality
	if q <= 0 {
		q = int(codec.QualityDefault)
	}
	return codec.Options{Quality: codec.Quality(q), Subsampling: p.subsampling()}
}

// DerivationFactor resolves the profile's pyramid factor.
func (p *Profile) DerivationFactor() encoder.DerivationFactor {
	if p.Pyramid.Factor == 4 {
		return encoder.Derive4xLayers
	}
	return encoder.Derive2xLayers
}

// DerivationMethod resolves the profile's downsample method name.
func (p *Profile) DerivationMethod() encoder.DerivationMethod {
	if p.Pyramid.Method == "sharpen" {
		return encoder.DownsampleSharpen
	}
	return encoder.DownsampleAverage
}
