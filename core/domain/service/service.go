// Package service defines the domain model for backend services a path can be routed to.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Protocol constants accepted by ServiceConfig.
const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

var validate = validator.New()

// ServiceConfig describes a named backend process reachable by host and port.
// Values are immutable once placed in a registry.
type ServiceConfig struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Host     string `json:"host" yaml:"host" validate:"required"`
	Port     int    `json:"port" yaml:"port" validate:"min=1,max=65535"`
	Protocol string `json:"protocol" yaml:"protocol" validate:"oneof=http https"`
}

// NewServiceConfig creates a service config with the default "http" protocol.
func NewServiceConfig(name, host string, port int) ServiceConfig {
	return ServiceConfig{
		Name:     name,
		Host:     host,
		Port:     port,
		Protocol: ProtocolHTTP,
	}
}

// BaseURL returns the scheme, host and port of the service.
// Example: "http://localhost:3004"
func (s ServiceConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", s.Protocol, s.Host, s.Port)
}

// URLFor appends path to the base URL without any normalization.
func (s ServiceConfig) URLFor(path string) string {
	return s.BaseURL() + path
}

// Validate checks name, host, port range and protocol.
func (s ServiceConfig) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid service %q: %w", s.Name, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid service %q: %s", s.Name, strings.Join(fields, ", "))
}
