// Package embeddings resolves embedding model specs into a canonical Model.
//
// A Spec is one of: absent (nil), LocalSpec ("local" or "local:<model>"),
// ExternalSpec (a ready Model, returned as-is) or LegacySpec (a langchaingo
// embeddings.Embedder, wrapped in LangchainEmbedding). Absent specs try the
// OpenAI provider first and fall back to a local FastEmbed model when it
// cannot be constructed.
//
// Local models run on ONNX through fastembed-go and need a CGO build plus the
// ONNX runtime; see EnsureONNXRuntime.
package embeddings
