package repository

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfiguration(t *testing.T) {
	cfg, err := NewConfiguration(map[string]any{
		OptionIndex:      "products",
		OptionIndexWrite: "products-write",
	})
	require.NoError(t, err)

	read, err := cfg.Index(OperationRead)
	require.NoError(t, err)
	write, err := cfg.Index(OperationWrite)
	require.NoError(t, err)

	assert.Equal(t, "products", read)
	assert.Equal(t, "products-write", write)
	assert.Equal(t, DefaultScroll, cfg.Scroll())
	assert.False(t, cfg.ForceRefreshOnWrite())
	assert.Nil(t, cfg.EntityFactory())
}

func TestNewConfiguration_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
	}{
		{"no index", map[string]any{}},
		{"only read index", map[string]any{OptionIndexRead: "r"}},
		{"unknown key", map[string]any{OptionIndex: "i", "indx": "i"}},
		{"index not a string", map[string]any{OptionIndex: 1}},
		{"refresh not a bool", map[string]any{OptionIndex: "i", OptionForceRefreshOnWrite: "yes"}},
		{"entity class not a struct", map[string]any{OptionIndex: "i", OptionEntityClass: 3}},
		{"bad factory", map[string]any{OptionIndex: "i", OptionEntityFactory: "factory"}},
		{"bad serializer", map[string]any{OptionIndex: "i", OptionEntitySerializer: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfiguration(tt.options)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNewConfiguration_EntityClass(t *testing.T) {
	for _, class := range []any{product{}, &product{}, reflect.TypeOf(product{})} {
		cfg, err := NewConfiguration(map[string]any{OptionIndex: "i", OptionEntityClass: class})
		require.NoError(t, err)
		assert.Equal(t, reflect.TypeOf(product{}), cfg.EntityType())
		assert.NotNil(t, cfg.EntityFactory())
	}
}

func TestConfiguration_EntityFactoryWinsOverClass(t *testing.T) {
	cfg, err := NewConfiguration(map[string]any{
		OptionIndex:         "i",
		OptionEntityClass:   product{},
		OptionEntityFactory: func(id string, source map[string]any) (any, error) {
			return &product{ID: id, Name: source["name"].(string)}, nil
		},
	})
	require.NoError(t, err)

	got, err := cfg.entity("7", map[string]any{"name": "hat"})

	require.NoError(t, err)
	assert.Equal(t, &product{ID: "7", Name: "hat"}, got)
}

type selfDocumenting struct {
	Name string
}

func (s selfDocumenting) ToDocument() (map[string]any, error) {
	return map[string]any{"name": s.Name}, nil
}

func TestConfiguration_Normalize(t *testing.T) {
	plain, err := NewConfiguration(map[string]any{OptionIndex: "i"})
	require.NoError(t, err)

	doc, err := plain.normalize(selfDocumenting{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "a"}, doc)

	serialized, err := NewConfiguration(map[string]any{
		OptionIndex:            "i",
		OptionEntitySerializer: EntitySerializerFunc(func(entity any) (map[string]any, error) {
			p, ok := entity.(*product)
			if !ok {
				return nil, errors.New("not a product")
			}
			return map[string]any{"name": p.Name, "price": p.Price}, nil
		}),
	})
	require.NoError(t, err)

	doc, err = serialized.normalize(&product{Name: "b", Price: 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "b", "price": 2.0}, doc)
}

func TestParseConfiguration(t *testing.T) {
	data := []byte(`
index: products
index_write: products-write
scroll: 2m
force_refresh_on_write: true
track_total_hits: true
`)
	cfg, err := ParseConfiguration(data, map[string]any{OptionEntityClass: product{}})
	require.NoError(t, err)

	write, err := cfg.Index(OperationWrite)
	require.NoError(t, err)
	assert.Equal(t, "products-write", write)
	assert.Equal(t, "2m", cfg.Scroll())
	assert.True(t, cfg.ForceRefreshOnWrite())
	assert.True(t, cfg.TrackTotalHits())
	assert.Equal(t, reflect.TypeOf(product{}), cfg.EntityType())
}

func TestLoadConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repository.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: logs\ntype: _doc\n"), 0o600))

	cfg, err := LoadConfiguration(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "_doc", cfg.Type())

	_, err = LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = ParseConfiguration([]byte("index: [unclosed"), nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}
