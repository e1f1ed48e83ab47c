package directory

import "time"

// Subject is a tracked member. PIN and QR code are credentials and never
// leave the server.
type Subject struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	PIN       string    `json:"-"`
	QRCode    string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
