package model

import (
	"encoding/json"
	"time"
)

// Exception is a failure raised by a background job, kept for auditing and debugging.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Service string `gorm:"size:100;index" json:"service"` // e.g. "monitor"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "valuation"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "RunOnce"

	Message string `gorm:"type:text" json:"message"`
	Level   string `gorm:"size:20;index" json:"level"` // warn | error | fatal

	// JSON object with the ids involved (position id, symbol...)
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewException builds an error-level exception from err with fields serialized as JSON context.
func NewException(service, module, method string, err error, fields map[string]interface{}) *Exception {
	exc := &Exception{
		Service: service,
		Module:  module,
		Method:  method,
		Level:   "error",
	}
	if err != nil {
		exc.Message = err.Error()
	}
	if len(fields) > 0 {
		if raw, mErr := json.Marshal(fields); mErr == nil {
			exc.Context = string(raw)
		}
	}
	return exc
}
