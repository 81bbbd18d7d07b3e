package repository

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/pteich/elastic-repository/query"
)

// EntityFactory turns a stored document into an application value.
type EntityFactory interface {
	FromDocument(id string, source map[string]any) (any, error)
}

type EntityFactoryFunc func(id string, source map[string]any) (any, error)

func (f EntityFactoryFunc) FromDocument(id string, source map[string]any) (any, error) {
	return f(id, source)
}

// EntitySerializer turns an application value into a storable document.
type EntitySerializer interface {
	ToDocument(entity any) (map[string]any, error)
}

type EntitySerializerFunc func(entity any) (map[string]any, error)

func (f EntitySerializerFunc) ToDocument(entity any) (map[string]any, error) {
	return f(entity)
}

// Documenter is implemented by entities that serialize themselves. It is used
// when no EntitySerializer is configured.
type Documenter interface {
	ToDocument() (map[string]any, error)
}

// typeFactory decodes documents into new values of typ through their JSON
// form, so the entity's json tags apply.
type typeFactory struct {
	typ reflect.Type
}

func (f typeFactory) FromDocument(_ string, source map[string]any) (any, error) {
	data, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}
	v := reflect.New(f.typ)
	if err := json.Unmarshal(data, v.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.typ, err)
	}
	return v.Interface(), nil
}

// normalize returns the document to persist. Plain maps are used as they are;
// structs go through the serializer or their own ToDocument.
func (c *Configuration) normalize(document any) (map[string]any, error) {
	if m, ok := document.(map[string]any); ok {
		if m == nil {
			return nil, fmt.Errorf("%w: document is nil", query.ErrInvalidArgument)
		}
		return m, nil
	}
	if document == nil {
		return nil, fmt.Errorf("%w: document is nil", query.ErrInvalidArgument)
	}

	t := reflect.TypeOf(document)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: document must be a map or a struct, got %T", query.ErrInvalidArgument, document)
	}

	if c.serializer != nil {
		return c.serializer.ToDocument(document)
	}
	if d, ok := document.(Documenter); ok {
		return d.ToDocument()
	}
	return nil, fmt.Errorf("%w: no entity serializer configured for %T", ErrConfiguration, document)
}

// entity converts a stored document into what callers receive.
func (c *Configuration) entity(id string, source map[string]any) (any, error) {
	if c.factory == nil {
		return source, nil
	}
	return c.factory.FromDocument(id, source)
}
