// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and related types for authentication.
// These types are separate from the repository models to allow for business
// logic enrichment and to decouple the domain layer from the database layer.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes the two kinds of platform accounts.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ValidRole reports whether the given string is a known role.
func ValidRole(s string) bool {
	return Role(s) == RoleTeacher || Role(s) == RoleStudent
}

// User represents a registered user of the platform.
type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string // Never expose this in API responses
	FullName      string
	Role          Role
	Phone         string
	Country       string
	PlanName      string     // Raw plan name as written by the payment layer
	PlanExpiresAt *time.Time // nil for free accounts
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EffectivePlan returns the plan that currently governs the user's quota.
// A paid plan that has lapsed degrades to free; the ledger row created for
// the next period will snapshot the free limit.
func (u *User) EffectivePlan() Plan {
	plan := ParsePlan(u.PlanName)
	if plan == PlanFree {
		return PlanFree
	}
	if u.PlanExpiresAt != nil && u.PlanExpiresAt.Before(time.Now()) {
		return PlanFree
	}
	return plan
}

// IsTeacher reports whether the user may upload resources.
func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// Session represents an authenticated session.
//
// Sessions are stored in the database with a hashed token.
// The raw token is only given to the client once (at login).
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 hash of the session token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the validated parameters for user registration.
type RegisterParams struct {
	Email    string
	Password string // Raw password, will be hashed by service
	FullName string
	Role     string
	Phone    string // Optional, required for USSD/SMS features
	Country  string // Optional
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User  *User
	Token string // Raw session token (not hashed) - only returned once
}
