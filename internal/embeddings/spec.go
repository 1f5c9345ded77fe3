package embeddings

import (
	"fmt"
	"reflect"
	"strings"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
)

// DefaultLocalModel is used for "local" specs without a model name and as
// the fallback when the default remote provider is unavailable.
const DefaultLocalModel = "BAAI/bge-small-en"

// localTag is the only provider tag accepted in spec strings.
const localTag = "local"

// Spec describes which embedding backend to use. A nil Spec means no
// preference was given. The concrete types are LocalSpec, ExternalSpec and
// LegacySpec.
type Spec interface {
	isSpec()
}

// LocalSpec selects a locally computed embedding model.
type LocalSpec struct {
	// ModelName is empty for DefaultLocalModel.
	ModelName string
}

// ExternalSpec passes an already constructed Model through unchanged.
type ExternalSpec struct {
	Model Model
}

// LegacySpec wraps a langchaingo embedder in LangchainEmbedding.
type LegacySpec struct {
	Embedder lcembeddings.Embedder
}

func (LocalSpec) isSpec()    {}
func (ExternalSpec) isSpec() {}
func (LegacySpec) isSpec()   {}

// String renders the spec string form ("local" or "local:<model>").
func (s LocalSpec) String() string {
	if s.ModelName == "" {
		return localTag
	}
	return localTag + ":" + s.ModelName
}

// Model returns the effective model name.
func (s LocalSpec) Model() string {
	if s.ModelName == "" {
		return DefaultLocalModel
	}
	return s.ModelName
}

// ParseSpec parses "local" or "local:<model>". Only the first colon separates
// the tag; later colons stay in the model name.
func ParseSpec(s string) (Spec, error) {
	tag, model, _ := strings.Cut(s, ":")
	if tag != localTag {
		return nil, fmt.Errorf("%w: embed_model must start with 'local' or be an embeddings.Model, got %q", ErrInvalidConfig, s)
	}
	return LocalSpec{ModelName: model}, nil
}

// SpecOf converts a loosely typed value into a Spec:
//
//	nil                    -> nil (absent)
//	Spec                   -> itself
//	string                 -> ParseSpec
//	Model                  -> ExternalSpec
//	lcembeddings.Embedder  -> LegacySpec
//
// A value satisfying both Model and lcembeddings.Embedder is treated as a Model.
// Typed nils, such as a nil *OpenAIEmbedding, are rejected.
func SpecOf(v any) (Spec, error) {
	if v != nil && isNilValue(v) {
		return nil, fmt.Errorf("%w: embed_model is a nil %T", ErrInvalidConfig, v)
	}
	switch v := v.(type) {
	case nil:
		return nil, nil
	case Spec:
		return v, nil
	case string:
		return ParseSpec(v)
	case Model:
		return ExternalSpec{Model: v}, nil
	case lcembeddings.Embedder:
		return LegacySpec{Embedder: v}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported embed_model type %T", ErrInvalidConfig, v)
	}
}

// isNilValue reports whether v is nil or an interface holding a nil pointer,
// map, slice, func or channel.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// specKind labels a spec for logs and metrics.
func specKind(spec Spec) string {
	switch spec.(type) {
	case nil:
		return "absent"
	case LocalSpec:
		return "local"
	case ExternalSpec:
		return "external"
	case LegacySpec:
		return "legacy"
	default:
		return "unknown"
	}
}
