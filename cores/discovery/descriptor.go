package discovery

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/hulining/consul-balancer/cores/errors"

	"gopkg.in/yaml.v3"
)

// Descriptor 需要watch的服务
// Name 为本地注册表的key, Service 为consul中的服务名 缺省时等于Name
type Descriptor struct {
	Name       string            `json:"name" yaml:"name" xml:"name"`
	Service    string            `json:"service,omitempty" yaml:"service,omitempty" xml:"service,omitempty"`
	Tag        string            `json:"tag,omitempty" yaml:"tag,omitempty" xml:"tag,omitempty"`
	Datacenter string            `json:"datacenter,omitempty" yaml:"datacenter,omitempty" xml:"datacenter,omitempty"`
	Near       string            `json:"near,omitempty" yaml:"near,omitempty" xml:"near,omitempty"`
	NodeMeta   map[string]string `json:"nodeMeta,omitempty" yaml:"nodeMeta,omitempty" xml:"-"`
	Token      string            `json:"token,omitempty" yaml:"token,omitempty" xml:"token,omitempty"`
}

func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.Wrapf(errors.ErrInvalidDescriptor, "name is required")
	}
	return nil
}

// Normalize 支持服务名字符串, Descriptor 以及配置解析出来的map
func Normalize(v interface{}) (Descriptor, error) {
	var d Descriptor
	switch t := v.(type) {
	case string:
		d.Name = t
	case Descriptor:
		d = t
	case *Descriptor:
		if t == nil {
			return Descriptor{}, errors.Wrapf(errors.ErrInvalidDescriptor, "nil descriptor")
		}
		d = *t
	case map[string]interface{}:
		bs, err := json.Marshal(t)
		if err != nil {
			return Descriptor{}, errors.Wrap(errors.ErrInvalidDescriptor, err)
		}
		if err = json.Unmarshal(bs, &d); err != nil {
			return Descriptor{}, errors.Wrap(errors.ErrInvalidDescriptor, err)
		}
	default:
		return Descriptor{}, errors.Wrapf(errors.ErrInvalidDescriptor, "unsupported descriptor type %T", v)
	}
	d.Name = strings.TrimSpace(d.Name)
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	if d.Service == "" {
		d.Service = d.Name
	}
	if d.NodeMeta != nil {
		meta := make(map[string]string, len(d.NodeMeta))
		for k, v := range d.NodeMeta {
			meta[k] = v
		}
		d.NodeMeta = meta
	}
	return d, nil
}

type plainDescriptor Descriptor

// UnmarshalJSON "name" 或 {"name": ...} 均可
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*d = Descriptor{Name: name}
		return nil
	}
	var p plainDescriptor
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Descriptor(p)
	return nil
}

func (d *Descriptor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*d = Descriptor{Name: value.Value}
		return nil
	}
	var p plainDescriptor
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = Descriptor(p)
	return nil
}
