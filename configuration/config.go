package configuration

import (
	"encoding/json"
	"encoding/xml"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FormatYaml = "yaml"
	FormatJson = "json"
	FormatXml  = "xml"
)

// IConfig 配置来源 name为文件路径/etcd key/nacos dataId
type IConfig interface {
	GetConfig(name string, v interface{}) error
}

// Unmarshal 按格式解析 未知格式按json处理
func Unmarshal(format string, bs []byte, v interface{}) error {
	if len(bs) == 0 {
		return errors.New("config content is empty")
	}
	var err error
	switch strings.ToLower(format) {
	case FormatYaml, "yml":
		err = yaml.Unmarshal(bs, v)
	case FormatXml:
		err = xml.Unmarshal(bs, v)
	default:
		err = json.Unmarshal(bs, v)
	}
	return errors.WithMessagef(err, "unmarshal %s config", format)
}
