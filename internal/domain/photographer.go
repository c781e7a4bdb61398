// Package domain holds the photographer entity and its read projections.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// BirthDateLayout is the storage format of DateOfBirth.
const BirthDateLayout = "2006-01-02"

var ErrInvalidBirthDate = errors.New("invalid date of birth")

// Photographer is the stored entity. Values handed out by the read paths may be
// shared with the cache and must be treated as read-only.
type Photographer struct {
	ID          int64    `json:"id" validate:"gte=0"`
	UID         string   `json:"uid" validate:"omitempty,max=64"`
	FirstName   string   `json:"first_name" validate:"required,max=100"`
	LastName    string   `json:"last_name" validate:"required,max=100"`
	Username    string   `json:"username" validate:"omitempty,max=100"`
	Email       string   `json:"email" validate:"required,email"`
	Avatar      string   `json:"avatar" validate:"omitempty,url"`
	Gender      string   `json:"gender" validate:"omitempty,max=32"`
	PhoneNumber string   `json:"phone_number" validate:"omitempty,max=32"`
	DateOfBirth string   `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Latitude    float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64  `json:"longitude" validate:"gte=-180,lte=180"`
	EventTypes  []string `json:"eventType" validate:"dive,alpha"`
}

// Summary is the listing projection with the age derived from DateOfBirth.
type Summary struct {
	ID         int64    `json:"id"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Email      string   `json:"email"`
	EventTypes []string `json:"eventType"`
	Age        int      `json:"age"`
}

// BirthDate parses DateOfBirth.
func (p *Photographer) BirthDate() (time.Time, error) {
	t, err := time.Parse(BirthDateLayout, p.DateOfBirth)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q for photographer %d", ErrInvalidBirthDate, p.DateOfBirth, p.ID)
	}
	return t, nil
}

// HasEventType reports whether the photographer covers eventType. The match is
// case-sensitive.
func (p *Photographer) HasEventType(eventType string) bool {
	for _, t := range p.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// Summarize projects p, computing the age at now.
func (p *Photographer) Summarize(now time.Time) (Summary, error) {
	birth, err := p.BirthDate()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		ID:         p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		EventTypes: append([]string(nil), p.EventTypes...),
		Age:        Age(birth, now),
	}, nil
}

// Summarize projects every photographer. The result is never nil.
func Summarize(photographers []*Photographer, now time.Time) ([]Summary, error) {
	out := make([]Summary, 0, len(photographers))
	for _, p := range photographers {
		s, err := p.Summarize(now)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Age returns the number of whole years between birth and now.
func Age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

// SortYoungest orders summaries by age, then first name.
func SortYoungest(summaries []Summary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Age != summaries[j].Age {
			return summaries[i].Age < summaries[j].Age
		}
		return summaries[i].FirstName < summaries[j].FirstName
	})
}
