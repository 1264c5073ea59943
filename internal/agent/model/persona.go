package model

import "strings"

// NewUserPlaceholder is the persona name that marks an empty profile.
const NewUserPlaceholder = "Новый пользователь"

type Persona struct {
	ID              string    `yaml:"id" json:"id"`
	Name            string    `yaml:"name" json:"name"`
	Age             int       `yaml:"age" json:"age"`
	Gender          string    `yaml:"gender" json:"gender"`
	Goals           []string  `yaml:"goals" json:"goals"`
	Workouts        Workouts  `yaml:"workouts" json:"workouts"`
	Nutrition       Nutrition `yaml:"nutrition" json:"nutrition"`
	Health          Health    `yaml:"health" json:"health"`
	PurchaseHistory []string  `yaml:"purchase_history" json:"purchase_history"`
}

type Workouts struct {
	Frequency int      `yaml:"frequency" json:"frequency"`
	Types     []string `yaml:"types" json:"types"`
	Intensity string   `yaml:"intensity" json:"intensity"`
}

type Nutrition struct {
	Diet         string   `yaml:"diet" json:"diet"`
	Restrictions []string `yaml:"restrictions" json:"restrictions"`
	Preferences  []string `yaml:"preferences" json:"preferences"`
}

type Health struct {
	Weight     float64            `yaml:"weight" json:"weight"`
	Height     float64            `yaml:"height" json:"height"`
	BMI        float64            `yaml:"bmi" json:"bmi"`
	BloodTests map[string]float64 `yaml:"blood_tests" json:"blood_tests"`
	Issues     []string           `yaml:"issues" json:"issues"`
}

// IsNewUser reports whether the persona has no usable profile.
func (p *Persona) IsNewUser() bool {
	return p.Name == "" || p.Name == NewUserPlaceholder || p.Age == 0
}

// FirstName is the first whitespace separated token of Name.
func (p *Persona) FirstName() string {
	fields := strings.Fields(p.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

type Product struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Category    string   `yaml:"category" json:"category"`
	Price       int      `yaml:"price" json:"price"`
	Summary     string   `yaml:"summary" json:"summary"`
	Description string   `yaml:"description" json:"description"`
	Benefits    []string `yaml:"benefits" json:"benefits"`
	Volume      string   `yaml:"volume" json:"volume"`
	Effect      string   `yaml:"effect" json:"effect"`
}
