package aur

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// field binds one wire key of the catalog JSON to a Package attribute.
//
// decode returns false when the value is null, of the wrong type or falsy;
// the attribute is then left at its zero value. encode returns false when
// the attribute is unset and should be omitted from the wire form.
type field struct {
	wire   string
	decode func(p *Package, raw json.RawMessage) bool
	encode func(p *Package) (any, bool)
}

// fields is the static wire-name to attribute mapping, in wire order.
var fields = []field{
	int64Field("ID", func(p *Package) *int64 { return &p.ID }),
	stringField("Name", func(p *Package) *string { return &p.Name }),
	int64Field("PackageBaseID", func(p *Package) *int64 { return &p.PackageBaseID }),
	stringField("PackageBase", func(p *Package) *string { return &p.PackageBase }),
	stringField("Version", func(p *Package) *string { return &p.Version }),
	stringField("Description", func(p *Package) *string { return &p.Description }),
	stringField("URL", func(p *Package) *string { return &p.URL }),
	int64Field("NumVotes", func(p *Package) *int64 { return &p.NumVotes }),
	float64Field("Popularity", func(p *Package) *float64 { return &p.Popularity }),
	int64Field("OutOfDate", func(p *Package) *int64 { return &p.OutOfDate }),
	stringField("Maintainer", func(p *Package) *string { return &p.Maintainer }),
	stringField("Submitter", func(p *Package) *string { return &p.Submitter }),
	int64Field("FirstSubmitted", func(p *Package) *int64 { return &p.FirstSubmitted }),
	int64Field("LastModified", func(p *Package) *int64 { return &p.LastModified }),
	stringField("URLPath", func(p *Package) *string { return &p.URLPath }),
	listField("Depends", func(p *Package) *[]string { return &p.Depends }),
	listField("MakeDepends", func(p *Package) *[]string { return &p.MakeDepends }),
	listField("OptDepends", func(p *Package) *[]string { return &p.OptDepends }),
	listField("CheckDepends", func(p *Package) *[]string { return &p.CheckDepends }),
	listField("Conflicts", func(p *Package) *[]string { return &p.Conflicts }),
	listField("Provides", func(p *Package) *[]string { return &p.Provides }),
	listField("Replaces", func(p *Package) *[]string { return &p.Replaces }),
	listField("Groups", func(p *Package) *[]string { return &p.Groups }),
	listField("License", func(p *Package) *[]string { return &p.License }),
	listField("Keywords", func(p *Package) *[]string { return &p.Keywords }),
	listField("CoMaintainers", func(p *Package) *[]string { return &p.CoMaintainers }),
}

func stringField(wire string, attr func(*Package) *string) field {
	return field{
		wire: wire,
		decode: func(p *Package, raw json.RawMessage) bool {
			var v string
			if err := json.Unmarshal(raw, &v); err != nil || v == "" {
				return false
			}
			*attr(p) = v
			return true
		},
		encode: func(p *Package) (any, bool) {
			v := *attr(p)
			return v, v != ""
		},
	}
}

func int64Field(wire string, attr func(*Package) *int64) field {
	return field{
		wire: wire,
		decode: func(p *Package, raw json.RawMessage) bool {
			v, ok := decodeInt(raw)
			if !ok || v == 0 {
				return false
			}
			*attr(p) = v
			return true
		},
		encode: func(p *Package) (any, bool) {
			v := *attr(p)
			return v, v != 0
		},
	}
}

func float64Field(wire string, attr func(*Package) *float64) field {
	return field{
		wire: wire,
		decode: func(p *Package, raw json.RawMessage) bool {
			var v float64
			if err := json.Unmarshal(raw, &v); err != nil || v == 0 {
				return false
			}
			*attr(p) = v
			return true
		},
		encode: func(p *Package) (any, bool) {
			v := *attr(p)
			return v, v != 0
		},
	}
}

func listField(wire string, attr func(*Package) *[]string) field {
	return field{
		wire: wire,
		decode: func(p *Package, raw json.RawMessage) bool {
			var v []string
			if err := json.Unmarshal(raw, &v); err != nil || len(v) == 0 {
				return false
			}
			*attr(p) = v
			return true
		},
		encode: func(p *Package) (any, bool) {
			v := *attr(p)
			return v, len(v) > 0
		},
	}
}

// decodeInt accepts integral JSON numbers, including ones written with an
// exponent or a zero fraction.
func decodeInt(raw json.RawMessage) (int64, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, false
	}
	if v, err := n.Int64(); err == nil {
		return v, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// ParsePackage builds a Package from one catalog JSON object. Fields that
// are absent, null, falsy or of the wrong type are left unset. A record
// without a name is rejected.
func ParsePackage(data []byte) (*Package, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &ParseError{Kind: MalformedLine, Err: err}
	}
	if obj == nil {
		return nil, &ParseError{Kind: MalformedLine, Err: fmt.Errorf("record is null")}
	}

	p := &Package{}
	p.populate(obj)

	if p.Name == "" {
		return nil, &ParseError{Kind: MissingRequiredField, Err: fmt.Errorf("field %q is missing or empty", "Name")}
	}
	return p, nil
}

func (p *Package) populate(obj map[string]json.RawMessage) {
	for _, f := range fields {
		if raw, ok := obj[f.wire]; ok {
			f.decode(p, raw)
		}
	}

	if p.PackageBase != "" && p.PackageBase == p.Name {
		p.PackageBase = ""
		p.baseIsName = true
	}
	p.SetLocalVersion(p.LocalVersion)
}

// Wire returns the set attributes keyed by their catalog wire names.
// Parsing the JSON encoding of the result yields an equal Package.
func (p *Package) Wire() map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := f.encode(p); ok {
			out[f.wire] = v
		}
	}
	if p.baseIsName && p.PackageBase == "" {
		out["PackageBase"] = p.Name
	}
	return out
}

// MarshalJSON encodes the package in catalog wire form.
func (p *Package) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Wire())
}
