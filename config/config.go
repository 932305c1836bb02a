// Package config 基于 viper 加载配置文件.
//
// 配置类型若实现 Defaulter，解析后先填充默认值；若实现 Validatable，随后进行验证.
// 环境变量优先于文件，例如前缀 TELEMETRY 会将 TELEMETRY_MESSAGING_TOPIC 映射到 messaging.topic.
package config

import (
	"errors"
	"path/filepath"
	"strings"
)

// 预定义错误.
var (
	// ErrFileNotFound 配置文件不存在.
	ErrFileNotFound = errors.New("config: 配置文件不存在")

	// ErrInvalidType 不支持的配置文件类型.
	ErrInvalidType = errors.New("config: 不支持的配置文件类型")

	// ErrReadConfig 读取配置失败.
	ErrReadConfig = errors.New("config: 读取配置失败")

	// ErrUnmarshal 解析配置失败.
	ErrUnmarshal = errors.New("config: 解析配置失败")

	// ErrValidation 配置验证失败.
	ErrValidation = errors.New("config: 配置验证失败")
)

// Validatable 可验证的配置.
type Validatable interface {
	Validate() error
}

// Defaulter 可填充默认值的配置.
type Defaulter interface {
	ApplyDefaults()
}

// GetConfigType 根据文件扩展名获取配置类型，无法识别时返回空串.
func GetConfigType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	case ".env":
		return "env"
	default:
		return ""
	}
}
