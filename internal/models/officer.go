package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type OfficerRole string

const (
	RoleMandalOfficer   OfficerRole = "mandal_officer"
	RoleDistrictOfficer OfficerRole = "district_officer"
	RoleHOD             OfficerRole = "hod"
)

// Officer is an authenticated staff member acting on grievances.
type Officer struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Role        OfficerRole `json:"role"`
	Level       Level       `json:"level"`
	Designation string      `json:"designation"`
	DistrictID  string      `json:"district_id"`
	MandalID    *string     `json:"mandal_id,omitempty"`
	SchemeIDs   []string    `json:"scheme_ids"`
	IsActive    bool        `json:"is_active"`
}

// HandlesScheme reports whether schemeID is assigned to the officer.
func (o *Officer) HandlesScheme(schemeID string) bool {
	for _, id := range o.SchemeIDs {
		if id == schemeID {
			return true
		}
	}
	return false
}

// Scope derives the officer's jurisdiction: mandal for level 1, district for
// level 2 and assigned schemes for HODs. Levels 1 and 2 are also bound to schemes.
func (o *Officer) Scope() Scope {
	s := Scope{SchemeIDs: make([]string, len(o.SchemeIDs))}
	copy(s.SchemeIDs, o.SchemeIDs)
	switch o.Level {
	case LevelMandal:
		if o.MandalID != nil {
			s.MandalID = *o.MandalID
		} else {
			// unassigned mandal officers match nothing
			s.MandalID = "-"
		}
	case LevelDistrict:
		s.DistrictID = o.DistrictID
	}
	return s
}

// Scope restricts a query to a jurisdiction. Empty string fields and a nil
// SchemeIDs do not constrain; a non-nil empty SchemeIDs matches nothing.
type Scope struct {
	DistrictID string
	MandalID   string
	SchemeIDs  []string
}

// Matches is the in-memory form of the scope predicate.
func (s Scope) Matches(g *Grievance) bool {
	if s.DistrictID != "" && g.DistrictID != s.DistrictID {
		return false
	}
	if s.MandalID != "" && g.MandalID != s.MandalID {
		return false
	}
	if s.SchemeIDs != nil {
		for _, id := range s.SchemeIDs {
			if id == g.SchemeID {
				return true
			}
		}
		return false
	}
	return true
}

// OfficerCredential maps a login name to an officer.
type OfficerCredential struct {
	OfficerID    string
	Username     string
	PasswordHash string
}

// OfficerClaims is the JWT payload issued at login.
type OfficerClaims struct {
	OfficerID string      `json:"officer_id"`
	Level     Level       `json:"level"`
	Role      OfficerRole `json:"role"`
	Name      string      `json:"name"`
	jwt.RegisteredClaims
}

// LoginResult mirrors the officer portal login contract.
type LoginResult struct {
	Success   bool     `json:"success"`
	Token     string   `json:"token,omitempty"`
	ExpiresIn int64    `json:"expires_in,omitempty"`
	Error     string   `json:"error,omitempty"`
	Officer   *Officer `json:"officer,omitempty"`
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
