package entity

// Employee is a bureau staff member who can be assigned to cards and stages
type Employee struct {
	ID         int64  `json:"id"`
	FullName   string `json:"full_name"`
	Position   string `json:"position,omitempty"`
	LarkOpenID string `json:"lark_open_id,omitempty"`
	Active     bool   `json:"active"`
}
