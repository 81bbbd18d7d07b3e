package repository

import (
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultScroll is the scroll keep-alive used when none is configured.
const DefaultScroll = "1m"

// OperationType selects the index an operation runs against.
type OperationType int

const (
	OperationRead OperationType = iota
	OperationWrite
)

func (o OperationType) String() string {
	if o == OperationWrite {
		return "write"
	}
	return "read"
}

// Configuration options recognised by NewConfiguration.
const (
	OptionIndex               = "index"
	OptionIndexRead           = "index_read"
	OptionIndexWrite          = "index_write"
	OptionType                = "type"
	OptionScroll              = "scroll"
	OptionEntityClass         = "entity_class"
	OptionEntityFactory       = "entity_factory"
	OptionEntitySerializer    = "entity_serializer"
	OptionForceRefreshOnWrite = "force_refresh_on_write"
	OptionTrackTotalHits      = "track_total_hits"
)

// Configuration is the immutable setup of a Repository.
type Configuration struct {
	indexRead           string
	indexWrite          string
	docType             string
	scroll              string
	entityType          reflect.Type
	factory             EntityFactory
	serializer          EntitySerializer
	forceRefreshOnWrite bool
	trackTotalHits      bool
}

// NewConfiguration validates options. index_read and index_write override
// index; both resolved indices must be non-empty.
//
// entity_class is a prototype value or a reflect.Type; documents are then
// decoded into new values of that type unless entity_factory is set.
// entity_factory and entity_serializer accept the interfaces or plain funcs.
func NewConfiguration(options map[string]any) (*Configuration, error) {
	for _, key := range sortedKeys(options) {
		if !knownOption(key) {
			return nil, fmt.Errorf("%w: unknown option %q", ErrConfiguration, key)
		}
	}

	c := &Configuration{scroll: DefaultScroll}

	index, err := stringOption(options, OptionIndex)
	if err != nil {
		return nil, err
	}
	if c.indexRead, err = stringOption(options, OptionIndexRead); err != nil {
		return nil, err
	}
	if c.indexWrite, err = stringOption(options, OptionIndexWrite); err != nil {
		return nil, err
	}
	if c.indexRead == "" {
		c.indexRead = index
	}
	if c.indexWrite == "" {
		c.indexWrite = index
	}
	if c.indexRead == "" {
		return nil, fmt.Errorf("%w: neither %q nor %q is set", ErrConfiguration, OptionIndexRead, OptionIndex)
	}
	if c.indexWrite == "" {
		return nil, fmt.Errorf("%w: neither %q nor %q is set", ErrConfiguration, OptionIndexWrite, OptionIndex)
	}

	if c.docType, err = stringOption(options, OptionType); err != nil {
		return nil, err
	}
	scroll, err := stringOption(options, OptionScroll)
	if err != nil {
		return nil, err
	}
	if scroll != "" {
		c.scroll = scroll
	}

	if c.forceRefreshOnWrite, err = boolOption(options, OptionForceRefreshOnWrite); err != nil {
		return nil, err
	}
	if c.trackTotalHits, err = boolOption(options, OptionTrackTotalHits); err != nil {
		return nil, err
	}

	if err := c.setEntityOptions(options); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) setEntityOptions(options map[string]any) error {
	switch v := options[OptionEntityClass].(type) {
	case nil:
	case reflect.Type:
		c.entityType = v
	default:
		c.entityType = reflect.TypeOf(v)
	}
	if c.entityType != nil {
		for c.entityType.Kind() == reflect.Pointer {
			c.entityType = c.entityType.Elem()
		}
		if c.entityType.Kind() != reflect.Struct {
			return fmt.Errorf("%w: %q must be a struct type, got %s", ErrConfiguration, OptionEntityClass, c.entityType)
		}
	}

	switch v := options[OptionEntityFactory].(type) {
	case nil:
	case EntityFactory:
		c.factory = v
	case func(id string, source map[string]any) (any, error):
		c.factory = EntityFactoryFunc(v)
	default:
		return fmt.Errorf("%w: %q has unsupported type %T", ErrConfiguration, OptionEntityFactory, v)
	}
	if c.factory == nil && c.entityType != nil {
		c.factory = typeFactory{typ: c.entityType}
	}

	switch v := options[OptionEntitySerializer].(type) {
	case nil:
	case EntitySerializer:
		c.serializer = v
	case func(entity any) (map[string]any, error):
		c.serializer = EntitySerializerFunc(v)
	default:
		return fmt.Errorf("%w: %q has unsupported type %T", ErrConfiguration, OptionEntitySerializer, v)
	}
	return nil
}

// Index returns the index for op.
func (c *Configuration) Index(op OperationType) (string, error) {
	index := c.indexRead
	if op == OperationWrite {
		index = c.indexWrite
	}
	if index == "" {
		return "", fmt.Errorf("%w: no %s index configured", ErrConfiguration, op)
	}
	return index, nil
}

func (c *Configuration) Type() string { return c.docType }
func (c *Configuration) Scroll() string { return c.scroll }
func (c *Configuration) EntityType() reflect.Type { return c.entityType }
func (c *Configuration) EntityFactory() EntityFactory { return c.factory }
func (c *Configuration) EntitySerializer() EntitySerializer { return c.serializer }
func (c *Configuration) ForceRefreshOnWrite() bool { return c.forceRefreshOnWrite }
func (c *Configuration) TrackTotalHits() bool { return c.trackTotalHits }

// fileConfiguration is the YAML form of the scalar options.
type fileConfiguration struct {
	Index               string `yaml:"index"`
	IndexRead           string `yaml:"index_read"`
	IndexWrite          string `yaml:"index_write"`
	Type                string `yaml:"type"`
	Scroll              string `yaml:"scroll"`
	ForceRefreshOnWrite bool   `yaml:"force_refresh_on_write"`
	TrackTotalHits      bool   `yaml:"track_total_hits"`
}

// LoadConfiguration reads the scalar options from a YAML file. Entity hooks
// cannot be expressed in YAML and are passed in extra, which also overrides
// file values.
func LoadConfiguration(path string, extra map[string]any) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfiguration, path, err)
	}
	return ParseConfiguration(data, extra)
}

// ParseConfiguration is LoadConfiguration for YAML already in memory.
func ParseConfiguration(data []byte, extra map[string]any) (*Configuration, error) {
	var fc fileConfiguration
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %w", ErrConfiguration, err)
	}

	options := map[string]any{
		OptionIndex:               fc.Index,
		OptionIndexRead:           fc.IndexRead,
		OptionIndexWrite:          fc.IndexWrite,
		OptionType:                fc.Type,
		OptionScroll:              fc.Scroll,
		OptionForceRefreshOnWrite: fc.ForceRefreshOnWrite,
		OptionTrackTotalHits:      fc.TrackTotalHits,
	}
	for k, v := range extra {
		options[k] = v
	}
	return NewConfiguration(options)
}

func knownOption(key string) bool {
	switch key {
	case OptionIndex, OptionIndexRead, OptionIndexWrite, OptionType, OptionScroll,
		OptionEntityClass, OptionEntityFactory, OptionEntitySerializer,
		OptionForceRefreshOnWrite, OptionTrackTotalHits:
		return true
	}
	return false
}

func stringOption(options map[string]any, key string) (string, error) {
	switch v := options[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrConfiguration, key, v)
	}
}

func boolOption(options map[string]any, key string) (bool, error) {
	switch v := options[key].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("%w: %q must be a bool, got %T", ErrConfiguration, key, v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
