package types

import (
	"strings"
	"time"
)

// Project owns one ordered stage list and one budget list.
type Project struct {
	ProjectID     string    `json:"project_id"`
	Name          string    `json:"name"`
	Client        string    `json:"client,omitempty"`
	ContractValue int64     `json:"contract_value"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the fields a project must carry before it is stored.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if p.ContractValue < 0 {
		return ErrInvalidAmount
	}
	return nil
}
