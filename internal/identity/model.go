package identity

import "time"

// User represents a registered merchant account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CompanyName  string
	Address      string
	Phone        string
	CreatedAt    time.Time
}

// Registration request structure.
type Registration struct {
	Username    string
	Password    string
	CompanyName string
	Address     string
	Phone       string
}
