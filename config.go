package schemareflect

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config is the bootstrap configuration of an Instance.
// It can come from a JSON or YAML file; environment variables override the file.
type Config struct {
	ConnString    string                `json:"conn_string" yaml:"conn_string" env:"SCHEMAREFLECT_CONN_STRING"`
	Debug         bool                  `json:"debug" yaml:"debug" env:"SCHEMAREFLECT_DEBUG"`
	DefaultSchema bool                  `json:"default_schema" yaml:"default_schema"`
	Tables        map[string]SchemaSpec `json:"tables" yaml:"tables"`
}

// SchemaSpec is the value of one tables entry: true to reflect the whole schema
// without entities, or a table map whose entries become entities.
type SchemaSpec struct {
	All    bool
	Tables map[string]*MapperArgs
}

// MapperArgs configures how an entity's key is derived
type MapperArgs struct {
	PrimaryKey []string `json:"primary_key" yaml:"primary_key"`
}

// WholeSchema returns a spec that reflects every table of the schema
func WholeSchema() SchemaSpec {
	return SchemaSpec{All: true}
}

// TablesOf returns a spec for the given tables, none with key overrides
func TablesOf(names ...string) SchemaSpec {
	tables := make(map[string]*MapperArgs, len(names))
	for _, n := range names {
		tables[n] = nil
	}
	return SchemaSpec{Tables: tables}
}

// TableNames returns the configured table names, sorted
func (s SchemaSpec) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for n := range s.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// KeyOverride returns the configured primary key of a table, if any
func (s SchemaSpec) KeyOverride(table string) []string {
	if args := s.Tables[table]; args != nil {
		return args.PrimaryKey
	}
	return nil
}

// UnmarshalJSON accepts true/false or a table map with null or {"primary_key": [...]} values
func (s *SchemaSpec) UnmarshalJSON(data []byte) error {
	var all bool
	if err := json.Unmarshal(data, &all); err == nil {
		*s = SchemaSpec{All: all}
		return nil
	}

	var tables map[string]*MapperArgs
	if err := json.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("schema entry must be true or a table map: %w", err)
	}
	*s = SchemaSpec{Tables: tables}
	return nil
}

// MarshalJSON writes the same shapes UnmarshalJSON reads
func (s SchemaSpec) MarshalJSON() ([]byte, error) {
	if s.All {
		return []byte("true"), nil
	}
	if s.Tables == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.Tables)
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON
func (s *SchemaSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var all bool
		if err := value.Decode(&all); err != nil {
			return fmt.Errorf("schema entry must be true or a table map: %w", err)
		}
		*s = SchemaSpec{All: all}
		return nil
	case yaml.MappingNode:
		var tables map[string]*MapperArgs
		if err := value.Decode(&tables); err != nil {
			return err
		}
		*s = SchemaSpec{Tables: tables}
		return nil
	default:
		return fmt.Errorf("schema entry must be true or a table map (line %d)", value.Line)
	}
}

// LoadConfig reads a JSON or YAML config file (by extension) with environment overrides
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ParseConfig reads a JSON document with environment overrides
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.ConnString == "" {
		return errors.New("conn_string is required")
	}
	return nil
}

// SchemaNames returns the configured schema names, sorted
func (c *Config) SchemaNames() []string {
	names := make([]string, 0, len(c.Tables))
	for n := range c.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
