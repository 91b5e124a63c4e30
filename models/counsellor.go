package models

import "time"

// Counsellor is an entry of the counsellor directory.
type Counsellor struct {
	ID              string    `gorm:"primaryKey;size:64" json:"id"`
	Name            string    `gorm:"size:128" json:"name"`
	Email           string    `gorm:"size:255" json:"email"`
	Specialties     []string  `gorm:"serializer:json;type:text" json:"specialties"`
	ExperienceYears int       `json:"experience_years"`
	Rating          float64   `json:"rating"`
	Languages       []string  `gorm:"serializer:json;type:text" json:"languages"`
	Availability    string    `gorm:"size:255" json:"availability"`
	Bio             string    `gorm:"type:text" json:"bio"`
	PricePerSession int       `json:"price_per_session"`
	Image           string    `gorm:"size:512" json:"image"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// WithDefaults fills display defaults for sparsely populated rows.
func (c Counsellor) WithDefaults() Counsellor {
	if c.Name == "" {
		c.Name = "Unknown Counsellor"
	}
	if c.Specialties == nil {
		c.Specialties = []string{}
	}
	if c.Rating == 0 {
		c.Rating = 4.5
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{"English"}
	}
	if c.Availability == "" {
		c.Availability = "Contact for availability"
	}
	if c.Bio == "" {
		c.Bio = "Professional counsellor specializing in mental health support."
	}
	if c.PricePerSession == 0 {
		c.PricePerSession = 100
	}
	if c.Image == "" {
		c.Image = "https://images.unsplash.com/photo-1559839734-2b71ea197ec2?w=150&h=150&fit=crop&crop=face"
	}
	return c
}

// HasSpecialty reports whether the counsellor lists the given specialty.
func (c Counsellor) HasSpecialty(s string) bool {
	for _, sp := range c.Specialties {
		if sp == s {
			return true
		}
	}
	return false
}

// PredefinedSpecialties are always offered in the specialty filter.
var PredefinedSpecialties = []string{
	"anxiety", "depression", "trauma", "ptsd", "stress-management",
	"relationship-counseling", "family-therapy", "addiction", "substance-abuse",
	"eating-disorders", "body-image", "self-esteem", "adhd", "learning-disabilities",
	"adolescent-therapy", "bipolar-disorder", "mood-disorders", "ocd", "phobias",
	"grief-counseling", "anger-management", "couples-therapy", "child-therapy",
	"elderly-care", "workplace-stress", "sleep-disorders", "panic-disorders",
	"social-anxiety", "general-counseling",
}

// All returns the models migrated at startup.
func All() []interface{} {
	return []interface{}{&User{}, &CheckIn{}, &Counsellor{}}
}
