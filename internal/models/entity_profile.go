package models

// EntityProfile is the display profile of the business behind a set of tokens
type EntityProfile struct {
	ID       RecordID `json:"id" db:"id"`
	Name     string   `json:"name,omitempty" db:"name"`
	Industry string   `json:"industry,omitempty" db:"industry"`
	Country  string   `json:"country,omitempty" db:"country"`
}
