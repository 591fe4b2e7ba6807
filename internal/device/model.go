package device

import "time"

// Device is a named merchant credential set owned by a user.
type Device struct {
    ID              string
    UserID          string
    Name            string
    ApplicationCode string
    SecretKey       string
    CreatedAt       time.Time
}

// Credentials are the values needed to sign a gateway request.
type Credentials struct {
    ApplicationCode string
    SecretKey       string
}

// Summary is the public view of a device. The secret never leaves the store.
type Summary struct {
    ID              string `json:"id"`
    Name            string `json:"name"`
    ApplicationCode string `json:"application_code"`
}

// Summary strips the secret.
func (d Device) Summary() Summary {
    return Summary{ID: d.ID, Name: d.Name, ApplicationCode: d.ApplicationCode}
}
