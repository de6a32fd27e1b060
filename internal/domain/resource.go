// Package domain contains core business types and interfaces.
//
// This file defines educational resources, the central content type of the
// platform. Resources are uploaded by teachers (subject to the monthly
// quota) and searched and rated by students.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// Resource is an educational material uploaded by a teacher.
type Resource struct {
	ID           uuid.UUID
	TeacherID    uuid.UUID
	Title        string
	Description  string
	Subject      string
	Grade        string
	Country      string
	Language     string // BCP 47 tag, e.g. "en", "sw", "fr"
	Tags         []string
	FileURL      string // Empty for link-less (text only) resources
	ThumbnailURL string // Set for image resources only
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Aggregates, populated on read paths that join ratings.
	AverageRating float64
	RatingCount   int
}

// ResourceCreateParams contains validated input for creating a resource.
type ResourceCreateParams struct {
	TeacherID   uuid.UUID
	Title       string
	Description string
	Subject     string
	Grade       string
	Country     string
	Language    string
	Tags        []string
}

// ResourceFilter narrows a resource search. Zero values mean "any".
type ResourceFilter struct {
	Subject  string
	Grade    string
	Country  string
	Language string
	Query    string // Free-text match on title and description
	Limit    int
	Offset   int
}

// MaxResourceTitleLen bounds titles; anything longer is rejected, not truncated.
const MaxResourceTitleLen = 200

// MaxResourceTags bounds the tag list per resource.
const MaxResourceTags = 10

// ValidateResourceParams checks create parameters and returns field-level
// validation errors. The language tag, when present, must parse as BCP 47;
// it is stored canonicalized.
func ValidateResourceParams(p *ResourceCreateParams) error {
	var err error

	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		err = AddFieldError(err, "title", "title is required")
	} else if len(p.Title) > MaxResourceTitleLen {
		err = AddFieldError(err, "title", "title is too long")
	}

	if len(p.Tags) > MaxResourceTags {
		err = AddFieldError(err, "tags", "too many tags")
	}

	if p.Language != "" {
		tag, parseErr := language.Parse(p.Language)
		if parseErr != nil {
			err = AddFieldError(err, "language", "not a valid language tag")
		} else {
			p.Language = tag.String()
		}
	}

	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			ve.Op = "resource.validate"
		}
		return err
	}
	return nil
}

// MatchesLanguage reports whether the resource's language satisfies the
// requested tag (an exact or parent match, so "en" matches "en-GB").
func (r *Resource) MatchesLanguage(requested string) bool {
	if requested == "" {
		return true
	}
	want, err := language.Parse(requested)
	if err != nil {
		return false
	}
	have, err := language.Parse(r.Language)
	if err != nil {
		return false
	}
	matcher := language.NewMatcher([]language.Tag{want})
	_, _, confidence := matcher.Match(have)
	return confidence >= language.High
}
