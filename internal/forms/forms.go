// Package forms holds the request payloads behind the site's data-entry
// forms and their validation rules.
package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PreOrder reserves a title ahead of release.
type PreOrder struct {
	Name      string `json:"name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	BookTitle string `json:"book_title" validate:"required,max=200"`
}

func (p *PreOrder) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.BookTitle = strings.TrimSpace(p.BookTitle)
}

func (p *PreOrder) Validate() error {
	return validate.Struct(p)
}

// Contact is a message sent through the contact section.
type Contact struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Message string `json:"message" validate:"required,max=1000"`
}

func (c *Contact) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Message = strings.TrimSpace(c.Message)
}

func (c *Contact) Validate() error {
	return validate.Struct(c)
}

// SavedBook adds or removes a wishlist entry.
type SavedBook struct {
	BookTitle string `json:"book_title" validate:"required,max=200"`
}

func (s *SavedBook) Normalize() {
	s.BookTitle = strings.TrimSpace(s.BookTitle)
}

func (s *SavedBook) Validate() error {
	return validate.Struct(s)
}

// Subscription picks a pricing tier by id.
type Subscription struct {
	Tier string `json:"tier" validate:"required,oneof=pdf_digest book_box coaching_bundle"`
}

func (s *Subscription) Normalize() {
	s.Tier = strings.TrimSpace(s.Tier)
}

func (s *Subscription) Validate() error {
	return validate.Struct(s)
}

// FieldErrors flattens a validation error into json field name -> message.
// Errors that did not come from the validator map to the "_" key.
func FieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[jsonName(fe.Field())] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

var jsonNames = map[string]string{
	"Name":      "name",
	"Email":     "email",
	"BookTitle": "book_title",
	"Message":   "message",
	"Tier":      "tier",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}
