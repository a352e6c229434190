package sink

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mitchellh/mapstructure"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/value"
)

// Fields writes into the exported fields of struct pointer targets. A
// property names a field by its mapstructure tag or, failing that, its name
// compared case insensitively. Numeric fields take the number, string fields
// the composed text and colorful.Color fields the colour.
type Fields struct {
	OnError func(target anim.Target, property string, err error)
}

// NewFields creates a Fields sink that drops values it cannot store.
func NewFields() *Fields {
	return new(Fields)
}

func (f *Fields) Read(target anim.Target, property string) (any, bool) {
	fv, ok := field(target, property)
	if !ok {
		return nil, false
	}
	if numeric(fv.Kind()) || fv.Kind() == reflect.String {
		return fv.Interface(), true
	}
	if c, ok := fv.Interface().(colorful.Color); ok {
		return c, true
	}
	return nil, false
}

func (f *Fields) Write(target anim.Target, property string, v value.Value) {
	fv, ok := field(target, property)
	if !ok {
		f.fail(target, property, fmt.Errorf("no field %q on %T", property, target))
		return
	}

	var in any = v.String()
	if numeric(fv.Kind()) {
		in = v.Float()
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       colorHook,
		WeaklyTypedInput: true,
		Result:           fv.Addr().Interface(),
	})
	if err == nil {
		err = dec.Decode(in)
	}
	if err != nil {
		f.fail(target, property, err)
	}
}

func (f *Fields) fail(target anim.Target, property string, err error) {
	if f.OnError != nil {
		f.OnError(target, property, err)
	}
}

var colorType = reflect.TypeOf(colorful.Color{})

// colorHook decodes any colour text into a colorful.Color.
func colorHook(from, to reflect.Type, data any) (any, error) {
	if to != colorType || from.Kind() != reflect.String {
		return data, nil
	}
	v, err := value.Decompose(data)
	if err != nil {
		return nil, err
	}
	c, _ := v.Colorful()
	return c, nil
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func field(target anim.Target, property string) (reflect.Value, bool) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.Split(sf.Tag.Get("mapstructure"), ",")[0]
		if name == property || name == "" && strings.EqualFold(sf.Name, property) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}
