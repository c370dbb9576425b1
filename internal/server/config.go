package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// FileConfig is the optional HCL configuration file. Environment
// variables take precedence over file values; the file covers
// deployments where env plumbing is awkward.
type FileConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Cache  *CacheSettings  `hcl:"cache,block"`
}

// ServerSettings is the server block
type ServerSettings struct {
	Port                 int    `hcl:"port,optional"`
	LogLevel             string `hcl:"log_level,optional"`
	Mode                 string `hcl:"mode,optional"`
	DirectoryURL         string `hcl:"directory_url,optional"`
	AuthTokenSecret      string `hcl:"auth_token_secret,optional"`
	ReconnectGraceMs     int    `hcl:"reconnect_grace_ms,optional"`
	ActionTimeoutSeconds int    `hcl:"action_timeout_seconds,optional"`
}

// CacheSettings is the cache block
type CacheSettings struct {
	Host string `hcl:"host,optional"`
	Port int    `hcl:"port,optional"`
	DB   int    `hcl:"db,optional"`
}

// LoadConfigFile parses an HCL config file. A missing file is not an
// error; it yields an empty config.
func LoadConfigFile(filename string) (*FileConfig, error) {
	if filename == "" {
		return &FileConfig{}, nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return &FileConfig{}, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}

	var config FileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
	}
	return &config, nil
}
