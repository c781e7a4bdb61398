package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(BirthDateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAge(t *testing.T) {
	tests := []struct {
		name  string
		birth string
		now   string
		want  int
	}{
		{"day before birthday", "1990-06-15", "2024-06-14", 33},
		{"on birthday", "1990-06-15", "2024-06-15", 34},
		{"earlier month", "1990-06-15", "2024-03-01", 33},
		{"leap day before march", "2000-02-29", "2023-02-28", 22},
		{"leap day in march", "2000-02-29", "2023-03-01", 23},
		{"newborn", "2024-01-01", "2024-01-01", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Age(date(tt.birth), date(tt.now)))
		})
	}
}

func TestSummarize(t *testing.T) {
	now := date("2024-06-01")

	t.Run("Should project the listing fields with age", func(t *testing.T) {
		p := &Photographer{
			ID: 7, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			DateOfBirth: "1994-12-10", EventTypes: []string{"Wedding", "Birthday"},
		}
		s, err := p.Summarize(now)
		require.NoError(t, err)
		assert.Equal(t, Summary{
			ID: 7, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			EventTypes: []string{"Wedding", "Birthday"}, Age: 29,
		}, s)

		s.EventTypes[0] = "changed"
		assert.Equal(t, "Wedding", p.EventTypes[0])
	})

	t.Run("Should reject malformed birth dates", func(t *testing.T) {
		_, err := (&Photographer{ID: 1, DateOfBirth: "10/12/1994"}).Summarize(now)
		assert.ErrorIs(t, err, ErrInvalidBirthDate)

		_, err = Summarize([]*Photographer{{ID: 1, DateOfBirth: "bad"}}, now)
		assert.ErrorIs(t, err, ErrInvalidBirthDate)
	})

	t.Run("Should return an empty non-nil slice for no input", func(t *testing.T) {
		out, err := Summarize(nil, now)
		require.NoError(t, err)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})
}

func TestHasEventType(t *testing.T) {
	p := &Photographer{EventTypes: []string{"Wedding", "Corporate"}}
	assert.True(t, p.HasEventType("Wedding"))
	assert.False(t, p.HasEventType("wedding"))
	assert.False(t, p.HasEventType("Birthday"))
}

func TestSortYoungest(t *testing.T) {
	s := []Summary{
		{FirstName: "Zoe", Age: 25},
		{FirstName: "Bob", Age: 30},
		{FirstName: "Amy", Age: 25},
	}
	SortYoungest(s)
	assert.Equal(t, []string{"Amy", "Zoe", "Bob"}, []string{s[0].FirstName, s[1].FirstName, s[2].FirstName})
}
