package openaicompat

import (
	"errors"
	"net/url"
	"strings"

	"github.com/BaSui01/chatgate/types"
)

const chatCompletionsPath = "/chat/completions"

// ParseEndpoint trims raw and requires an absolute URL with a scheme and a host.
func ParseEndpoint(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, types.NewInvalidCustomEndpointError(raw, errors.New("endpoint is empty"))
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, types.NewInvalidCustomEndpointError(raw, err)
	}
	if u.Scheme == "" || !u.IsAbs() {
		return nil, types.NewInvalidCustomEndpointError(raw, errors.New("endpoint has no scheme"))
	}
	if u.Host == "" {
		return nil, types.NewInvalidCustomEndpointError(raw, errors.New("endpoint has no host"))
	}
	return u, nil
}

// DeriveModelsURL derives the model listing URL from a chat-style endpoint.
//
// If "/v1" occurs in the URL string, everything after the first occurrence is
// replaced with "/models". Otherwise "models" is appended as a new final path
// segment:
//
//	https://host/v1/chat/completions -> https://host/v1/models
//	https://host/api                 -> https://host/api/models
func DeriveModelsURL(raw string) (string, error) {
	u, err := ParseEndpoint(raw)
	if err != nil {
		return "", err
	}
	s := u.String()
	if i := strings.Index(s, "/v1"); i >= 0 {
		return validate(raw, s[:i+len("/v1")]+"/models")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/models"
	u.RawPath = ""
	return validate(raw, u.String())
}

// DeriveChatURL resolves the chat completions URL of a custom endpoint.
// An endpoint already ending in /chat/completions is used verbatim.
func DeriveChatURL(raw string) (string, error) {
	u, err := ParseEndpoint(raw)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(strings.TrimRight(u.Path, "/"), chatCompletionsPath) {
		return u.String(), nil
	}
	u.Path = strings.TrimRight(u.Path, "/") + chatCompletionsPath
	u.RawPath = ""
	return validate(raw, u.String())
}

func validate(raw, derived string) (string, error) {
	if _, err := ParseEndpoint(derived); err != nil {
		return "", types.NewInvalidCustomEndpointError(raw, errors.New("derived URL is not valid"))
	}
	return derived, nil
}
