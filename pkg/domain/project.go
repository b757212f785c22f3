package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxCarNameLen mirrors the server-side column limit.
const MaxCarNameLen = 120

// DefaultProjectPrice is the price the server assigns when none is given.
const DefaultProjectPrice = 10000

// Project is a car project listed on the site.
type Project struct {
	ID          int       `json:"id"`
	CarName     string    `json:"car_name"`
	Description string    `json:"description"`
	Price       int       `json:"price"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectInput is the payload for creating a project.
type ProjectInput struct {
	CarName     string `json:"car_name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	IsActive    bool   `json:"is_active"`
}

// ProjectPatch is a partial update. Nil fields are left untouched by the server.
type ProjectPatch struct {
	CarName     *string `json:"car_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *int    `json:"price,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Validation errors for project input.
var (
	ErrCarNameRequired = errors.New("car name is required")
	ErrCarNameTooLong  = errors.New("car name must be at most 120 characters")
	ErrNegativePrice   = errors.New("price cannot be negative")
)

// Validate checks the input against the server's field rules.
func (in ProjectInput) Validate() error {
	name := strings.TrimSpace(in.CarName)
	if name == "" {
		return ErrCarNameRequired
	}
	if utf8.RuneCountInString(name) > MaxCarNameLen {
		return ErrCarNameTooLong
	}
	if in.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

// Diff returns the patch that turns p into in. Unchanged fields stay nil.
func (p Project) Diff(in ProjectInput) ProjectPatch {
	var patch ProjectPatch
	if in.CarName != p.CarName {
		patch.CarName = &in.CarName
	}
	if in.Description != p.Description {
		patch.Description = &in.Description
	}
	if in.Price != p.Price {
		patch.Price = &in.Price
	}
	if in.IsActive != p.IsActive {
		patch.IsActive = &in.IsActive
	}
	return patch
}

// Empty reports whether the patch changes nothing.
func (p ProjectPatch) Empty() bool {
	return p.CarName == nil && p.Description == nil && p.Price == nil && p.IsActive == nil
}

// FormatPrice renders whole kroner with space-grouped thousands, e.g. "45 000 kr".
func FormatPrice(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.Itoa(n)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + " kr"
}
