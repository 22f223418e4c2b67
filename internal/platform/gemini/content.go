package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phrazzld/scry-analyzer/internal/generation"
	"google.golang.org/genai"
)

// defaultImageMIME is used for file URIs whose extension is unknown.
const defaultImageMIME = "image/jpeg"

// ErrImageUnavailable is returned when an image reference cannot be resolved.
var ErrImageUnavailable = errors.New("image unavailable")

// imageLoader resolves image references into genai parts.
type imageLoader struct {
	client   *http.Client
	maxBytes int64
}

// part resolves ref. data: URIs are decoded inline, http(s) URLs are
// downloaded and sent inline, anything else is passed as file data.
func (l *imageLoader) part(ctx context.Context, ref string) (*genai.Part, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, mimeType, err := decodeDataURI(ref)
		if err != nil {
			return nil, err
		}
		return genai.NewPartFromBytes(data, mimeType), nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, mimeType, err := l.fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		return genai.NewPartFromBytes(data, mimeType), nil
	default:
		return genai.NewPartFromURI(ref, mimeFromPath(ref)), nil
	}
}

func (l *imageLoader) fetch(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrImageUnavailable, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrImageUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: %s returned status %d", ErrImageUnavailable, redactQuery(ref), resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading %s: %w", ErrImageUnavailable, redactQuery(ref), err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, "", fmt.Errorf("%w: %s exceeds %d bytes", ErrImageUnavailable, redactQuery(ref), l.maxBytes)
	}

	mimeType, err := imageMIME(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrImageUnavailable, redactQuery(ref), err)
	}
	return data, mimeType, nil
}

// decodeDataURI parses "data:[<mediatype>][;base64],<data>".
func decodeDataURI(ref string) ([]byte, string, error) {
	header, body, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed data URI", ErrImageUnavailable)
	}

	var data []byte
	if strings.HasSuffix(header, ";base64") {
		header = strings.TrimSuffix(header, ";base64")
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, "", fmt.Errorf("%w: data URI: %w", ErrImageUnavailable, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(body)
		if err != nil {
			return nil, "", fmt.Errorf("%w: data URI: %w", ErrImageUnavailable, err)
		}
		data = []byte(unescaped)
	}

	if mediaType, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mediaType, "image/") {
		return data, mediaType, nil
	}

	mimeType, err := imageMIME(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: data URI: %w", ErrImageUnavailable, err)
	}
	return data, mimeType, nil
}

// imageMIME sniffs the content type of data and rejects non-images.
func imageMIME(data []byte) (string, error) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return m.String(), nil
		}
	}
	return "", fmt.Errorf("content is %s, not an image", detected.String())
}

func mimeFromPath(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(p))); strings.HasPrefix(t, "image/") {
		return t
	}
	return defaultImageMIME
}

// redactQuery strips query strings, which often carry signed-URL tokens.
func redactQuery(ref string) string {
	if i := strings.IndexByte(ref, '?'); i >= 0 {
		return ref[:i] + "?REDACTED"
	}
	return ref
}

// toContents maps a request to the system instruction and user contents.
func (l *imageLoader) toContents(ctx context.Context, req generation.Request) (*genai.Content, []*genai.Content, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	var system *genai.Content
	if text := req.SystemText(); text != "" {
		system = genai.NewContentFromText(text, genai.RoleUser)
	}

	userTurn := req.User()
	parts := make([]*genai.Part, 0, len(userTurn.Parts))
	for i, p := range userTurn.Parts {
		switch p.Kind {
		case generation.PartText:
			parts = append(parts, genai.NewPartFromText(p.Text))
		case generation.PartImage:
			part, err := l.part(ctx, p.Image)
			if err != nil {
				return nil, nil, fmt.Errorf("user part %d: %w", i, err)
			}
			parts = append(parts, part)
		default:
			return nil, nil, fmt.Errorf("%w: unsupported part kind %q", generation.ErrInvalidRequest, p.Kind)
		}
	}

	return system, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}
