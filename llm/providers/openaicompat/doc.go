// Package openaicompat provides the shared codec for all OpenAI-compatible
// providers.
//
// OpenAI, Mistral and custom endpoints share the same wire format (OpenAI
// Chat Completions and the /models listing). Instead of duplicating the
// request shape, response decoding and error mapping per vendor, the gateway
// calls these pure functions with the vendor's URLs:
//
//   - BuildChatRequest / DecodeChat: POST {chat URL}, choices[0].message.content
//   - BuildModelsRequest / DecodeModels: GET {models URL}, data[].id
//   - DeriveChatURL / DeriveModelsURL: custom endpoint resolution
//
// Usage:
//
//	chatURL, err := openaicompat.DeriveChatURL("https://host/v1/chat/completions")
//	w, err := openaicompat.BuildChatRequest(chatURL, credential, "my-model", turns)
package openaicompat
