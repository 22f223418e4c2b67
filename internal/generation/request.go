package generation

import "fmt"

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// PartKind is the type of a content part.
type PartKind string

// Content part kinds.
const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// Part is one typed piece of turn content. Text holds the text for PartText,
// Image holds an image reference (URL, data URI or storage URI) for PartImage.
type Part struct {
	Kind  PartKind `json:"type"`
	Text  string   `json:"text,omitempty"`
	Image string   `json:"image,omitempty"`
}

// TextPart returns a text content part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// ImagePart returns an image content part.
func ImagePart(ref string) Part {
	return Part{Kind: PartImage, Image: ref}
}

// Turn is one conversation turn.
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"content"`
}

// Request is an ordered conversation: exactly one system turn followed by
// exactly one user turn.
type Request struct {
	Turns []Turn `json:"messages"`
}

// NewRequest builds a Request from a system instruction and user parts.
func NewRequest(system string, user ...Part) Request {
	parts := make([]Part, len(user))
	copy(parts, user)
	return Request{
		Turns: []Turn{
			{Role: RoleSystem, Parts: []Part{TextPart(system)}},
			{Role: RoleUser, Parts: parts},
		},
	}
}

// Validate checks the system-then-user shape.
func (r Request) Validate() error {
	if len(r.Turns) != 2 {
		return fmt.Errorf("%w: expected 2 turns, got %d", ErrInvalidRequest, len(r.Turns))
	}
	if r.Turns[0].Role != RoleSystem {
		return fmt.Errorf("%w: first turn must be %s, got %q", ErrInvalidRequest, RoleSystem, r.Turns[0].Role)
	}
	if r.Turns[1].Role != RoleUser {
		return fmt.Errorf("%w: second turn must be %s, got %q", ErrInvalidRequest, RoleUser, r.Turns[1].Role)
	}
	return nil
}

// System returns the system turn. The request must be valid.
func (r Request) System() Turn {
	return r.Turns[0]
}

// User returns the user turn. The request must be valid.
func (r Request) User() Turn {
	return r.Turns[1]
}

// SystemText concatenates the text parts of the system turn.
func (r Request) SystemText() string {
	var text string
	for _, p := range r.System().Parts {
		if p.Kind == PartText {
			text += p.Text
		}
	}
	return text
}
