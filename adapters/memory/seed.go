package memory

import "github.com/lborres/medauth/core"

// DemoAccounts are the built-in sign-ins for local development.
func DemoAccounts() []core.RegisterInput {
	return []core.RegisterInput{
		{Email: "doctor@medinexus.com", Password: "password123", Name: "Dr. Zhang", Role: core.RoleDoctor, Department: "Internal Medicine"},
		{Email: "admin@medinexus.com", Password: "admin123", Name: "Administrator Li", Role: core.RoleAdmin},
		{Email: "researcher@medinexus.com", Password: "research123", Name: "Researcher Wang", Role: core.RoleResearcher, Department: "R&D"},
	}
}
