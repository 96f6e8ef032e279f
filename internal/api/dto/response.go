package dto

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK builds a successful envelope.
func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// WhatsAppConfigResponse reports whether the Cloud API is usable.
type WhatsAppConfigResponse struct {
	IsConfigured  bool   `json:"isConfigured"`
	PhoneNumberID string `json:"phoneNumberId"`
}
