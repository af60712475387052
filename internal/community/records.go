// Package community defines the records exchanged with the forum and chat document store.
// Every record is validated when it crosses into the service.
package community

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"kora-games/internal/domain"
)

// Record is implemented by every boundary type.
type Record interface {
	Validate() error
}

// Post is a forum thread opener.
type Post struct {
	ID        string    `json:"id" validate:"required"`
	AuthorID  string    `json:"authorId" validate:"required"`
	Title     string    `json:"title" validate:"required,max=200"`
	Body      string    `json:"body" validate:"required,max=10000"`
	Tags      []string  `json:"tags,omitempty" validate:"max=10,dive,required,max=40"`
	Likes     int       `json:"likes" validate:"gte=0"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

// Comment replies to a Post.
type Comment struct {
	ID        string    `json:"id" validate:"required"`
	PostID    string    `json:"postId" validate:"required"`
	AuthorID  string    `json:"authorId" validate:"required"`
	Body      string    `json:"body" validate:"required,max=4000"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

// Profile describes a caregiver account.
type Profile struct {
	ID          string `json:"id" validate:"required"`
	DisplayName string `json:"displayName" validate:"required,max=80"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Bio         string `json:"bio,omitempty" validate:"max=1000"`
}

// ChatRole names the speaker of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	ID        string    `json:"id" validate:"required"`
	SessionID string    `json:"sessionId" validate:"required"`
	Role      ChatRole  `json:"role" validate:"required,oneof=user assistant"`
	Text      string    `json:"text" validate:"required"`
	SentAt    time.Time `json:"sentAt" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (p Post) Validate() error        { return check(p) }
func (c Comment) Validate() error     { return check(c) }
func (p Profile) Validate() error     { return check(p) }
func (m ChatMessage) Validate() error { return check(m) }

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidRecord, describe(err))
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// Decode parses data into T, rejecting unknown fields, trailing data and records that fail validation.
func Decode[T Record](data []byte) (T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	if dec.More() {
		return out, fmt.Errorf("%w: trailing data", domain.ErrInvalidRecord)
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeAll parses a JSON array of T with the same rules as Decode.
func DecodeAll[T Record](data []byte) ([]T, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		rec, err := Decode[T](r)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
